// Package netscape reads and writes the Netscape bookmark file format that
// browsers use for bookmark import and export.
package netscape

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"aggregat4/bookmarkcatalog/internal/domain"
)

// Entry is a bookmark as found in a bookmark file, before normalization.
type Entry struct {
	URL         string
	Title       string
	Description string
	Tags        []string
	// AddDate is informational only; zero when the file does not carry one.
	AddDate time.Time
}

// schemes that do not point at a navigable resource
var skippedSchemes = []string{"javascript:", "place:", "data:"}

// Parse extracts every bookmark anchor from a bookmark file, flattening the
// folder structure. Invalid UTF-8 is replaced rather than rejected and a
// document without anchors yields an empty result.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if entry, ok := parseAnchor(n); ok {
				entries = append(entries, entry)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}

func parseAnchor(a *html.Node) (Entry, bool) {
	href := strings.TrimSpace(attr(a, "href"))
	if href == "" || hasSkippedScheme(href) {
		return Entry{}, false
	}
	entry := Entry{
		URL:         href,
		Title:       strings.TrimSpace(text(a)),
		Description: description(a),
		Tags:        splitTags(attr(a, "tags")),
	}
	if seconds, err := strconv.ParseInt(strings.TrimSpace(attr(a, "add_date")), 10, 64); err == nil && seconds > 0 {
		entry.AddDate = time.Unix(seconds, 0)
	}
	return entry, true
}

// description returns the text of the DD element that directly follows the
// anchor's containing DT, if there is one.
func description(a *html.Node) string {
	if a.Parent == nil {
		return ""
	}
	for sibling := a.Parent.NextSibling; sibling != nil; sibling = sibling.NextSibling {
		switch sibling.Type {
		case html.TextNode:
			if strings.TrimSpace(sibling.Data) == "" {
				continue
			}
			return ""
		case html.CommentNode:
			continue
		case html.ElementNode:
			if sibling.DataAtom == atom.Dd {
				return strings.TrimSpace(text(sibling))
			}
			return ""
		}
	}
	return ""
}

// text concatenates the text below n, leaving out nested folder lists.
func text(n *html.Node) string {
	var sb strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Dl:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasSkippedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func splitTags(value string) []string {
	tags := make([]string, 0)
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
`

const footer = "</DL><p>\n"

// Writer emits a bookmark file incrementally: the header on the first call to
// Write and the footer on Close. Close does not close the underlying writer.
type Writer struct {
	w       *bufio.Writer
	started bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(bookmarks []domain.Bookmark) error {
	if !w.started {
		if _, err := w.w.WriteString(header); err != nil {
			return err
		}
		w.started = true
	}
	for _, b := range bookmarks {
		if _, err := fmt.Fprintf(w.w, "    <DT><A HREF=\"%s\" ADD_DATE=\"%d\" LAST_MODIFIED=\"%d\" TAGS=\"%s\">%s</A>\n",
			html.EscapeString(b.URL), b.Created.Unix(), b.Updated.Unix(),
			html.EscapeString(strings.Join(b.Tags, ",")), html.EscapeString(b.Title)); err != nil {
			return err
		}
		if b.Description != "" {
			if _, err := fmt.Fprintf(w.w, "    <DD>%s\n", html.EscapeString(b.Description)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close writes the footer, and the header for an empty file, then flushes.
func (w *Writer) Close() error {
	if err := w.Write(nil); err != nil {
		return err
	}
	if _, err := w.w.WriteString(footer); err != nil {
		return err
	}
	return w.w.Flush()
}

// Write renders bookmarks as a complete bookmark file.
func Write(out io.Writer, bookmarks []domain.Bookmark) error {
	w := NewWriter(out)
	if err := w.Write(bookmarks); err != nil {
		return err
	}
	return w.Close()
}
