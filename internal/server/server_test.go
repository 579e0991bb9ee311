package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregat4/bookmarkcatalog/internal/catalog"
	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/exchange"
	"aggregat4/bookmarkcatalog/internal/normalize"
	"aggregat4/bookmarkcatalog/internal/repository"
)

// TestServer represents a test server instance
type TestServer struct {
	Server  *echo.Echo
	Catalog *catalog.Service
	Config  domain.Configuration
}

// setupTestServer creates a test server backed by a temporary database
func setupTestServer(t *testing.T) *TestServer {
	config := domain.DefaultConfiguration()
	config.BaseUrl = "http://bookmarks.test"

	store, err := repository.Open(filepath.Join(t.TempDir(), "test.db"), config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service := catalog.NewService(store, normalize.New(config), nil)
	e := NewServer(Controller{
		Catalog:  service,
		Exchange: exchange.New(service, config, nil),
		Config:   config,
	})
	return &TestServer{Server: e, Catalog: service, Config: config}
}

// addTestBookmarks adds sample bookmarks, the last one being the newest
func (ts *TestServer) addTestBookmarks(t *testing.T) []domain.Bookmark {
	inputs := []domain.NewBookmark{
		{URL: "https://example.com/article3", Title: "Test Article 3", Description: "A third test article about programming", Tags: []string{"programming", "golang"}},
		{URL: "https://example.com/article2", Title: "Test Article 2", Description: "Another test article about science", Tags: []string{"science", "research"}},
		{URL: "https://example.com/article1", Title: "Test Article 1", Description: "This is a test article about <b>technology</b>", Tags: []string{"tech", "programming"}},
	}
	bookmarks := make([]domain.Bookmark, 0, len(inputs))
	for _, in := range inputs {
		b, err := ts.Catalog.AddBookmark(context.Background(), in)
		require.NoError(t, err)
		bookmarks = append(bookmarks, b)
	}
	return bookmarks
}

func (ts *TestServer) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.Server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIntegration_ListBookmarks(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/api/bookmarks", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	bookmarks := decode[[]domain.Bookmark](t, rec)
	require.Len(t, bookmarks, 3)
	assert.Equal(t, "https://example.com/article1", bookmarks[0].URL)
	assert.Equal(t, []string{"programming", "tech"}, bookmarks[0].Tags)
}

func TestIntegration_ListBookmarksByTagAndPage(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/api/bookmarks?tag=Programming&limit=1&offset=1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	bookmarks := decode[[]domain.Bookmark](t, rec)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://example.com/article3", bookmarks[0].URL)
}

func TestIntegration_ListBookmarksRejectsBadLimit(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bookmarks?limit=many", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, catalogerrors.CodeInvalidInput, decode[errorResponse](t, rec).Code)
}

func TestIntegration_SearchBookmarks(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/api/bookmarks/search?q=SCIENCE", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	bookmarks := decode[[]domain.Bookmark](t, rec)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "Test Article 2", bookmarks[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/bookmarks/search?q=", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Bookmark](t, rec))
}

func TestIntegration_AddBookmark(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookmarks",
		`{"url": "Example.com/new-article", "title": " New Test Article ", "tags": ["Test", "new", "test"]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	bookmark := decode[domain.Bookmark](t, rec)
	assert.Equal(t, "https://example.com/new-article", bookmark.URL)
	assert.Equal(t, "New Test Article", bookmark.Title)
	assert.Equal(t, []string{"new", "test"}, bookmark.Tags)
	assert.Equal(t, "/api/bookmarks/"+jsonNumber(bookmark.Id), rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(t, http.MethodPost, "/api/bookmarks", `{"url": "https://example.com/new-article/"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, catalogerrors.CodeDuplicateKey, decode[errorResponse](t, rec).Code)
}

func TestIntegration_AddBookmarkValidation(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookmarks", `{"title": "no url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	response := decode[errorResponse](t, rec)
	assert.Equal(t, catalogerrors.CodeInvalidInput, response.Code)
	assert.Contains(t, response.Message, "url is required")

	rec = ts.do(t, http.MethodPost, "/api/bookmarks", `{"url": "gopher://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/bookmarks", `{"url": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_GetBookmark(t *testing.T) {
	ts := setupTestServer(t)
	bookmarks := ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/api/bookmarks/"+jsonNumber(bookmarks[0].Id), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookmarks[0].URL, decode[domain.Bookmark](t, rec).URL)

	rec = ts.do(t, http.MethodGet, "/api/bookmarks/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, catalogerrors.CodeNotFound, decode[errorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodGet, "/api/bookmarks/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_UpdateBookmark(t *testing.T) {
	ts := setupTestServer(t)
	bookmarks := ts.addTestBookmarks(t)
	target := "/api/bookmarks/" + jsonNumber(bookmarks[0].Id)

	rec := ts.do(t, http.MethodPatch, target, `{"title": "Renamed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	updated := decode[domain.Bookmark](t, rec)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, bookmarks[0].Description, updated.Description)
	assert.Equal(t, bookmarks[0].Tags, updated.Tags)

	rec = ts.do(t, http.MethodPatch, target, `{"tags": []}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.Bookmark](t, rec).Tags)

	rec = ts.do(t, http.MethodPatch, target, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_DeleteBookmark(t *testing.T) {
	ts := setupTestServer(t)
	bookmarks := ts.addTestBookmarks(t)
	target := "/api/bookmarks/" + jsonNumber(bookmarks[0].Id)

	rec := ts.do(t, http.MethodDelete, target, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, target, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegration_BookmarkTags(t *testing.T) {
	ts := setupTestServer(t)
	bookmarks := ts.addTestBookmarks(t)
	target := "/api/bookmarks/" + jsonNumber(bookmarks[1].Id) + "/tags"

	rec := ts.do(t, http.MethodPost, target, `{"tags": ["Extra"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"extra", "research", "science"}, decode[domain.Bookmark](t, rec).Tags)

	rec = ts.do(t, http.MethodDelete, target+"?tag=science&tag=research", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"extra"}, decode[domain.Bookmark](t, rec).Tags)

	rec = ts.do(t, http.MethodPost, target, `{"tags": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegration_Tags(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/api/tags?limit=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.TagCount{{Name: "programming", Count: 2}, {Name: "golang", Count: 1}}, decode[[]domain.TagCount](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/tags/Programming", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/tags/programming", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/tags/prune", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"pruned": 0}, decode[map[string]int](t, rec))
}

const importFile = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://python.org" TAGS="python">Python</A>
    <DD>The Python programming language
    <DT><A HREF="https://example.com/article1">Duplicate</A>
    <DT><A HREF="gopher://old.example.com">Invalid</A>
</DL><p>`

func TestIntegration_ImportRawBody(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import?tag=imported", strings.NewReader(importFile))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextHTML)
	rec := httptest.NewRecorder()
	ts.Server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	result := decode[domain.ImportResult](t, rec)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)

	b, found, err := ts.Catalog.FindByURL(context.Background(), "https://python.org")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"imported", "python"}, b.Tags)
}

func TestIntegration_ImportMultipart(t *testing.T) {
	ts := setupTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "bookmarks.html")
	require.NoError(t, err)
	_, err = part.Write([]byte(importFile))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.Server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[domain.ImportResult](t, rec).Imported)
}

func TestIntegration_Export(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)

	rec := ts.do(t, http.MethodGet, "/export.html?tag=programming", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "bookmarks.html")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE NETSCAPE-Bookmark-file-1>"))
	assert.Contains(t, body, "https://example.com/article1")
	assert.Contains(t, body, "https://example.com/article3")
	assert.NotContains(t, body, "https://example.com/article2")
	assert.Contains(t, body, "&lt;b&gt;technology&lt;/b&gt;")
}

func TestIntegration_RSSFeed(t *testing.T) {
	ts := setupTestServer(t)
	ts.addTestBookmarks(t)
	_, err := ts.Catalog.AddBookmark(context.Background(), domain.NewBookmark{URL: "https://untitled.example.com"})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/feed.rss", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/rss+xml")
	body := rec.Body.String()
	assert.Contains(t, body, "<?xml")
	assert.Contains(t, body, "<rss")
	assert.Contains(t, body, "Test Article 1")
	assert.Contains(t, body, "Test Article 2")
	assert.Contains(t, body, "<title>https://untitled.example.com</title>")
	assert.Contains(t, body, "This is a test article about technology")
	assert.NotContains(t, body, "&lt;b&gt;")

	// unchanged catalog answers conditional requests with 304
	req := httptest.NewRequest(http.MethodGet, "/feed.rss", nil)
	req.Header.Set(echo.HeaderIfModifiedSince, rec.Header().Get(echo.HeaderLastModified))
	rec = httptest.NewRecorder()
	ts.Server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestIntegration_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, catalogerrors.CodeNotFound, decode[errorResponse](t, rec).Code)
}

func jsonNumber(id int64) string {
	return strconv.FormatInt(id, 10)
}
