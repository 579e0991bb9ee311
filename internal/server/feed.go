package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aggregat4/go-baselib/lang"
	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/microcosm-cc/bluemonday"

	"aggregat4/bookmarkcatalog/internal/domain"
)

var descriptionPolicy = bluemonday.StrictPolicy()

// showFeed renders the most recently added bookmarks, optionally restricted to
// the given tags, as an RSS feed.
func (controller *Controller) showFeed(c echo.Context) error {
	tags := c.QueryParams()["tag"]
	bookmarks, err := controller.Catalog.ListBookmarks(c.Request().Context(), domain.ListOptions{
		Tags:  tags,
		Limit: controller.Config.FeedSize,
	})
	if err != nil {
		return err
	}
	lastModified := time.Unix(0, 0)
	for _, b := range bookmarks {
		if b.Updated.After(lastModified) {
			lastModified = b.Updated
		}
	}
	if c.Request().Header.Get(echo.HeaderIfModifiedSince) == lastModified.UTC().Format(http.TimeFormat) {
		return c.NoContent(http.StatusNotModified)
	}

	feed := buildFeed(controller.Config.BaseUrl+c.Request().URL.RequestURI(), bookmarks)
	rss, err := feed.ToRss()
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLastModified, lastModified.UTC().Format(http.TimeFormat))
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=UTF-8")
	return c.String(http.StatusOK, rss)
}

func buildFeed(link string, bookmarks []domain.Bookmark) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "Bookmarks",
		Link:        &feeds.Link{Href: link},
		Description: "The most recently added bookmarks.",
		Created:     time.Now(),
	}
	for _, b := range bookmarks {
		feed.Add(&feeds.Item{
			Title:       lang.IfElse(b.Title != "", b.Title, b.URL),
			Link:        &feeds.Link{Href: b.URL},
			Description: descriptionPolicy.Sanitize(b.Description),
			Id:          b.URL + "#" + strconv.FormatInt(b.Id, 10),
			Created:     b.Created,
			Updated:     b.Updated,
		})
	}
	return feed
}
