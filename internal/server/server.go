// Package server exposes the catalog over HTTP: a JSON API, a Netscape
// bookmark file download and an RSS feed of the latest bookmarks.
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"aggregat4/bookmarkcatalog/internal/catalog"
	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/exchange"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/validation"
)

type Controller struct {
	Catalog  *catalog.Service
	Exchange *exchange.Exchange
	Config   domain.Configuration
	Logger   *slog.Logger
}

// NewServer wires routes and middleware without starting to listen.
func NewServer(controller Controller) *echo.Echo {
	controller.Logger = logger.OrDiscard(controller.Logger)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Set server timeouts based on advice from https://blog.cloudflare.com/the-complete-guide-to-golang-net-http-timeouts/#1687428081
	e.Server.ReadTimeout = time.Duration(controller.Config.ServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(controller.Config.ServerWriteTimeoutSeconds) * time.Second
	e.Validator = validation.New()
	e.HTTPErrorHandler = controller.handleError

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			controller.Logger.Info("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))

	api := e.Group("/api")
	api.GET("/bookmarks", controller.listBookmarks)
	api.GET("/bookmarks/search", controller.searchBookmarks)
	api.GET("/bookmarks/:id", controller.getBookmark)
	api.POST("/bookmarks", controller.addBookmark)
	api.PATCH("/bookmarks/:id", controller.updateBookmark)
	api.DELETE("/bookmarks/:id", controller.deleteBookmark)
	api.POST("/bookmarks/:id/tags", controller.addTags)
	api.DELETE("/bookmarks/:id/tags", controller.removeTags)
	api.GET("/tags", controller.listTags)
	api.DELETE("/tags/:name", controller.deleteTag)
	api.POST("/tags/prune", controller.pruneTags)
	api.POST("/import", controller.importBookmarks, middleware.BodyLimit("32M"))

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/api/bookmarks")
	})
	e.GET("/export.html", controller.exportBookmarks)
	e.GET("/feed.rss", controller.showFeed)
	return e
}

// RunServer serves until ctx is cancelled and then shuts down gracefully.
func RunServer(ctx context.Context, controller Controller) error {
	e := NewServer(controller)
	addr := ":" + strconv.Itoa(controller.Config.ServerPort)
	errs := make(chan error, 1)
	go func() {
		errs <- e.Start(addr)
	}()
	logger.OrDiscard(controller.Logger).Info("Server started", "addr", addr)

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Code    catalogerrors.Code `json:"code"`
	Message string             `json:"message"`
	Details any                `json:"details,omitempty"`
}

func (controller *Controller) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	response := errorResponse{Code: catalogerrors.CodeUnknown, Message: err.Error()}
	status := http.StatusInternalServerError

	var coded *catalogerrors.Error
	var httpErr *echo.HTTPError
	switch {
	case catalogerrors.As(err, &coded):
		response = errorResponse{Code: coded.Code, Message: err.Error(), Details: coded.Details}
		status = coded.Code.HTTPStatus()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		response.Message = http.StatusText(status)
		if msg, ok := httpErr.Message.(string); ok {
			response.Message = msg
		}
		switch status {
		case http.StatusNotFound:
			response.Code = catalogerrors.CodeNotFound
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			response.Code = catalogerrors.CodeInvalidInput
		}
	}
	if status >= http.StatusInternalServerError {
		controller.Logger.Error("Request failed", "uri", c.Request().RequestURI, "error", err)
		if response.Code == catalogerrors.CodeUnknown {
			response.Message = "internal server error"
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, response)
	}
	if err != nil {
		controller.Logger.Error("Writing error response failed", "error", err)
	}
}

func (controller *Controller) listBookmarks(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	offset, err := intParam(c, "offset")
	if err != nil {
		return err
	}
	bookmarks, err := controller.Catalog.ListBookmarks(c.Request().Context(), domain.ListOptions{
		Tags:   c.QueryParams()["tag"],
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmarks)
}

func (controller *Controller) searchBookmarks(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	bookmarks, err := controller.Catalog.SearchBookmarks(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmarks)
}

func (controller *Controller) getBookmark(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	bookmark, err := controller.Catalog.GetBookmark(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmark)
}

func (controller *Controller) addBookmark(c echo.Context) error {
	var input domain.NewBookmark
	if err := c.Bind(&input); err != nil {
		return catalogerrors.InvalidInput("invalid request body").WithCause(err)
	}
	if err := c.Validate(&input); err != nil {
		return err
	}
	bookmark, err := controller.Catalog.AddBookmark(c.Request().Context(), input)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/bookmarks/"+strconv.FormatInt(bookmark.Id, 10))
	return c.JSON(http.StatusCreated, bookmark)
}

func (controller *Controller) updateBookmark(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var patch domain.BookmarkPatch
	if err := c.Bind(&patch); err != nil {
		return catalogerrors.InvalidInput("invalid request body").WithCause(err)
	}
	if patch.IsEmpty() {
		return catalogerrors.InvalidInput("nothing to update: provide title, description or tags")
	}
	bookmark, err := controller.Catalog.UpdateBookmark(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmark)
}

func (controller *Controller) deleteBookmark(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := controller.Catalog.DeleteBookmark(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1"`
}

func (controller *Controller) addTags(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var request tagsRequest
	if err := c.Bind(&request); err != nil {
		return catalogerrors.InvalidInput("invalid request body").WithCause(err)
	}
	if err := c.Validate(&request); err != nil {
		return err
	}
	bookmark, err := controller.Catalog.AddTags(c.Request().Context(), id, request.Tags)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmark)
}

func (controller *Controller) removeTags(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	tags := c.QueryParams()["tag"]
	if len(tags) == 0 {
		return catalogerrors.InvalidInput("at least one tag parameter is required")
	}
	bookmark, err := controller.Catalog.RemoveTags(c.Request().Context(), id, tags)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmark)
}

func (controller *Controller) listTags(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	tags, err := controller.Catalog.ListTags(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (controller *Controller) deleteTag(c echo.Context) error {
	if err := controller.Catalog.DeleteTag(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *Controller) pruneTags(c echo.Context) error {
	pruned, err := controller.Catalog.PruneTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"pruned": pruned})
}

// importBookmarks accepts a bookmark file either as a multipart "file" field
// or as the raw request body.
func (controller *Controller) importBookmarks(c echo.Context) error {
	source := "request body"
	var body io.Reader = c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return catalogerrors.InvalidInput("multipart upload needs a \"file\" field").WithCause(err)
		}
		file, err := fileHeader.Open()
		if err != nil {
			return catalogerrors.ImportFault(fileHeader.Filename, err)
		}
		defer file.Close()
		source, body = fileHeader.Filename, file
	}
	result, err := controller.Exchange.Import(c.Request().Context(), source, body, c.QueryParams()["tag"])
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (controller *Controller) exportBookmarks(c echo.Context) error {
	// rendered into memory first so that a failure can still produce an error response
	var buf bytes.Buffer
	if _, err := controller.Exchange.Export(c.Request().Context(), &buf, c.QueryParams()["tag"]); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="bookmarks.html"`)
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, buf.Bytes())
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, catalogerrors.InvalidInputf("invalid bookmark id %q", c.Param("id"))
	}
	return id, nil
}

// intParam parses an optional non-negative integer query parameter, zero when absent.
func intParam(c echo.Context, name string) (int, error) {
	value := c.QueryParam(name)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, catalogerrors.InvalidInputf("invalid %s %q: must be a non-negative integer", name, value)
	}
	return n, nil
}
