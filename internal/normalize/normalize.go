// Package normalize turns raw user input into the canonical form that is
// stored and compared. Nothing in here performs I/O.
package normalize

import (
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
)

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+\-.]*://`)

type Normalizer struct {
	defaultScheme        string
	acceptedSchemes      []string
	maxTagLength         int
	maxTagsPerBookmark   int
	maxTitleLength       int
	maxDescriptionLength int
}

func New(config domain.Configuration) *Normalizer {
	schemes := make([]string, 0, len(config.AcceptedSchemes))
	for _, s := range config.AcceptedSchemes {
		schemes = append(schemes, strings.ToLower(s))
	}
	return &Normalizer{
		defaultScheme:        strings.ToLower(config.DefaultScheme),
		acceptedSchemes:      schemes,
		maxTagLength:         config.MaxTagLength,
		maxTagsPerBookmark:   config.MaxTagsPerBookmark,
		maxTitleLength:       config.MaxTitleLength,
		maxDescriptionLength: config.MaxDescriptionLength,
	}
}

// URL returns the canonical form of rawURL: default scheme added when missing,
// scheme and host lowercased and a bare "/" path dropped. Normalizing a
// canonical URL returns it unchanged.
func (n *Normalizer) URL(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", catalogerrors.InvalidInput("URL is empty")
	}
	if !schemePrefix.MatchString(s) {
		s = n.defaultScheme + "://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", catalogerrors.InvalidInputf("invalid URL %q", rawURL).WithCause(unwrapURLError(err))
	}
	if !slices.Contains(n.acceptedSchemes, u.Scheme) {
		return "", catalogerrors.InvalidInputf("invalid URL %q: scheme %q is not allowed, use one of %s",
			rawURL, u.Scheme, strings.Join(n.acceptedSchemes, ", "))
	}
	if u.Host == "" {
		return "", catalogerrors.InvalidInputf("invalid URL %q: URL has no host", rawURL)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" && u.RawPath == "" {
		u.Path = ""
	}
	return u.String(), nil
}

// Tag trims, lowercases and truncates a single tag. The empty string means the
// tag is to be dropped.
func (n *Normalizer) Tag(raw string) string {
	tag := strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
	return strings.TrimSpace(truncate(tag, n.maxTagLength))
}

// Tags normalizes a tag list: empties are dropped, duplicates collapse onto the
// first occurrence and the list is capped at the per-bookmark maximum. Tags
// beyond the cap are dropped silently rather than failing the whole operation.
func (n *Normalizer) Tags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, r := range raw {
		if len(tags) >= n.maxTagsPerBookmark {
			break
		}
		tag := n.Tag(r)
		if tag == "" || slices.Contains(tags, tag) {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func (n *Normalizer) Title(raw string) string {
	return truncate(strings.TrimSpace(raw), n.maxTitleLength)
}

func (n *Normalizer) Description(raw string) string {
	return truncate(strings.TrimSpace(raw), n.maxDescriptionLength)
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if catalogerrors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
