package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
)

func newNormalizer() *Normalizer {
	return New(domain.DefaultConfiguration())
}

func TestURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"HTTPS://Example.com/", "https://example.com"},
		{"  http://example.com/path  ", "http://example.com/path"},
		{"https://Example.COM/Path/", "https://example.com/Path/"},
		{"https://example.com/?q=1", "https://example.com?q=1"},
		{"https://example.com/#top", "https://example.com#top"},
		{"ftp://files.example.com/pub", "ftp://files.example.com/pub"},
		{"localhost:8080/admin", "https://localhost:8080/admin"},
		{"https://example.com/a b", "https://example.com/a%20b"},
		{"https://user@Example.com/", "https://user@example.com"},
	}
	n := newNormalizer()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := n.URL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLIsIdempotent(t *testing.T) {
	inputs := []string{
		"example.com",
		"HTTPS://Example.com/",
		"https://example.com/a b?x=1&y=%2F#frag",
		"http://EXAMPLE.org:8080/",
		"https://example.com/?",
		"https://example.com/path/with%2Fslash",
		"ftps://Host.example/dir/",
		"https://例え.jp/パス",
	}
	n := newNormalizer()
	for _, in := range inputs {
		once, err := n.URL(in)
		require.NoError(t, err, in)
		twice, err := n.URL(once)
		require.NoError(t, err, once)
		assert.Equal(t, once, twice, "normalizing %q twice", in)
	}
}

func TestURLRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   \t"},
		{"scheme not accepted", "gopher://example.com"},
		{"javascript pseudo scheme with slashes", "javascript://alert(1)x:y"},
		{"file scheme", "file:///etc/passwd"},
		{"no host", "https://"},
		{"bad port", "https://example.com:port/"},
	}
	n := newNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.URL(tt.input)
			require.Error(t, err)
			assert.True(t, catalogerrors.Is(err, catalogerrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestTags(t *testing.T) {
	n := newNormalizer()

	assert.Equal(t, []string{"python"}, n.Tags([]string{"Python", "PYTHON", " python "}))
	assert.Equal(t, []string{"go", "sql"}, n.Tags([]string{"", "  ", "Go", "SQL", "go"}))
	assert.Empty(t, n.Tags(nil))
}

func TestTagTruncation(t *testing.T) {
	n := newNormalizer()

	long := strings.Repeat("x", 100)
	assert.Len(t, n.Tag(long), 64)
	assert.Equal(t, strings.Repeat("ü", 64), n.Tag(strings.Repeat("Ü", 80)))
}

func TestTagUnicodeForms(t *testing.T) {
	n := newNormalizer()

	// "é" precomposed and decomposed collapse onto one tag
	assert.Equal(t, []string{"caf\u00e9"}, n.Tags([]string{"caf\u00e9", "cafe\u0301"}))
}

func TestTagsCapIsSilent(t *testing.T) {
	config := domain.DefaultConfiguration()
	config.MaxTagsPerBookmark = 3
	n := New(config)

	tags := n.Tags([]string{"a", "b", "A", "c", "d", "e"})
	assert.Equal(t, []string{"a", "b", "c"}, tags)
}

func TestTitleAndDescription(t *testing.T) {
	config := domain.DefaultConfiguration()
	config.MaxTitleLength = 5
	config.MaxDescriptionLength = 8
	n := New(config)

	assert.Equal(t, "Hello", n.Title("  Hello, world  "))
	assert.Equal(t, "", n.Title("   "))
	assert.Equal(t, "a longer", n.Description("\na longer description\n"))
}
