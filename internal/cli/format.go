package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"aggregat4/bookmarkcatalog/internal/domain"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

const (
	colId    = 6
	colTitle = 30
	colURL   = 50
	colTags  = 25
	colTag   = 30
	colCount = 10
)

// terminalWriter returns w prepared for styled output: terminals get escape
// sequences translated where needed, everything else gets them stripped.
func terminalWriter(w io.Writer, noColor bool) io.Writer {
	if f, ok := w.(*os.File); ok && !noColor && isatty.IsTerminal(f.Fd()) {
		return colorable.NewColorable(f)
	}
	return colorable.NewNonColorable(w)
}

func style(code, s string) string {
	if s == "" {
		return s
	}
	return code + s + ansiReset
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(ansiGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func info(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(ansiCyan, fmt.Sprintf(format, args...)))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(ansiYellow, fmt.Sprintf(format, args...)))
}

func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(ansiRed, fmt.Sprintf(format, args...)))
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, truncate(s, width))
}

// highlighter marks case-insensitive occurrences of a search query.
type highlighter struct {
	pattern *regexp.Regexp
}

func newHighlighter(query string) highlighter {
	query = strings.TrimSpace(query)
	if query == "" {
		return highlighter{}
	}
	return highlighter{pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))}
}

func (h highlighter) apply(s string) string {
	if h.pattern == nil {
		return s
	}
	return h.pattern.ReplaceAllStringFunc(s, func(match string) string {
		return ansiBold + ansiYellow + match + ansiReset
	})
}

func printBookmarkTable(w io.Writer, bookmarks []domain.Bookmark, h highlighter) {
	header := strings.Join([]string{pad("ID", colId), pad("Title", colTitle), pad("URL", colURL), pad("Tags", colTags)}, " ")
	fmt.Fprintln(w, style(ansiBold, header))
	fmt.Fprintln(w, strings.Repeat("-", colId+colTitle+colURL+colTags+3))
	for _, b := range bookmarks {
		fmt.Fprintln(w, strings.TrimRight(strings.Join([]string{
			pad(fmt.Sprint(b.Id), colId),
			h.apply(pad(b.Title, colTitle)),
			h.apply(pad(b.URL, colURL)),
			pad(strings.Join(b.Tags, ", "), colTags),
		}, " "), " "))
	}
}

func printBookmarkDetail(w io.Writer, b domain.Bookmark) {
	orDash := func(s string) string {
		if s == "" {
			return "—"
		}
		return s
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, style(ansiBold+ansiYellow, fmt.Sprintf("Bookmark #%d", b.Id)))
	fmt.Fprintf(w, "  %-14s: %s\n", "URL", b.URL)
	fmt.Fprintf(w, "  %-14s: %s\n", "Title", orDash(b.Title))
	fmt.Fprintf(w, "  %-14s: %s\n", "Description", orDash(b.Description))
	fmt.Fprintf(w, "  %-14s: %s\n", "Tags", orDash(strings.Join(b.Tags, ", ")))
	fmt.Fprintf(w, "  %-14s: %s\n", "Created", b.Created.Local().Format(time.DateTime))
	fmt.Fprintf(w, "  %-14s: %s\n", "Updated", b.Updated.Local().Format(time.DateTime))
	fmt.Fprintln(w)
}

func printTagTable(w io.Writer, tags []domain.TagCount) {
	separator := strings.Repeat("-", colTag+colCount+1)
	fmt.Fprintln(w, style(ansiBold, fmt.Sprintf("%-*s %*s", colTag, "Tag", colCount, "Count")))
	fmt.Fprintln(w, separator)
	total := 0
	for _, tag := range tags {
		fmt.Fprintf(w, "%-*s %*d\n", colTag, tag.Name, colCount, tag.Count)
		total += tag.Count
	}
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%-*s %*d\n", colTag, "Total bookmarks tagged", colCount, total)
}

// maxShownErrors bounds the per-entry messages printed after an import.
const maxShownErrors = 10

func printImportResult(w io.Writer, result *domain.ImportResult, source string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, style(ansiBold, "Import complete: "+source))
	fmt.Fprintf(w, "  Parsed   : %d\n", result.Total)
	success(w, " Imported : %d", result.Imported)
	if result.Skipped > 0 {
		warn(w, "  Skipped  : %d (duplicates)", result.Skipped)
	}
	if result.Failed > 0 {
		failure(w, "  Failed   : %d", result.Failed)
		shown := result.Errors
		if len(shown) > maxShownErrors {
			shown = shown[:maxShownErrors]
		}
		for _, msg := range shown {
			failure(w, "    - %s", msg)
		}
		if hidden := result.Failed - len(shown); hidden > 0 {
			failure(w, "    ... and %d more", hidden)
		}
	}
	fmt.Fprintln(w)
}
