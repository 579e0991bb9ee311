package domain

import (
	"fmt"
	"time"
)

// Bookmark is an immutable snapshot of a stored bookmark. Every query returns a
// fresh value; mutations go through the store and callers re-fetch.
type Bookmark struct {
	Id          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NewBookmark carries raw, not yet normalized user input for an add operation.
type NewBookmark struct {
	URL         string   `json:"url" validate:"required"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// BookmarkPatch describes a partial update. A nil field means "leave unchanged";
// a non-nil Tags pointer replaces the whole tag set, even when it points at an
// empty slice.
type BookmarkPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

func (p BookmarkPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil
}

// ListOptions restricts a listing to bookmarks carrying all of Tags.
type ListOptions struct {
	Tags   []string
	Limit  int
	Offset int
}

// ImportResult accumulates the outcome of one import run. It is never persisted.
type ImportResult struct {
	RunId    string   `json:"runId"`
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	// MaxErrors bounds len(Errors); zero means unbounded.
	MaxErrors       int  `json:"-"`
	ErrorsTruncated bool `json:"errorsTruncated"`
}

func NewImportResult(runId string, maxErrors int) *ImportResult {
	return &ImportResult{RunId: runId, MaxErrors: maxErrors, Errors: make([]string, 0)}
}

func (r *ImportResult) AddSuccess() {
	r.Total++
	r.Imported++
}

func (r *ImportResult) AddSkip() {
	r.Total++
	r.Skipped++
}

func (r *ImportResult) AddFailure(message string) {
	r.Total++
	r.Failed++
	if r.MaxErrors > 0 && len(r.Errors) >= r.MaxErrors {
		r.ErrorsTruncated = true
		return
	}
	r.Errors = append(r.Errors, message)
}

func (r *ImportResult) String() string {
	return fmt.Sprintf("import complete: %d imported, %d skipped, %d failed (total processed: %d)",
		r.Imported, r.Skipped, r.Failed, r.Total)
}

type Configuration struct {
	DefaultScheme             string   `validate:"required,oneof=http https ftp ftps"`
	AcceptedSchemes           []string `validate:"required,min=1,dive,required"`
	DefaultListLimit          int      `validate:"gte=1,ltefield=MaxListLimit"`
	MaxListLimit              int      `validate:"gte=1"`
	MaxTagLength              int      `validate:"gte=1"`
	MaxTagsPerBookmark        int      `validate:"gte=1"`
	MaxTitleLength            int      `validate:"gte=1"`
	MaxDescriptionLength      int      `validate:"gte=1"`
	MaxImportErrorMessages    int      `validate:"gte=0"`
	DbFilename                string   `validate:"required"`
	LogLevel                  string   `validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat                 string   `validate:"omitempty,oneof=json text"`
	ServerPort                int      `validate:"gte=1,lte=65535"`
	ServerReadTimeoutSeconds  int      `validate:"gte=1"`
	ServerWriteTimeoutSeconds int      `validate:"gte=1"`
	BaseUrl                   string   `validate:"required,url"`
	FeedSize                  int      `validate:"gte=1"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultScheme:             "https",
		AcceptedSchemes:           []string{"http", "https", "ftp", "ftps"},
		DefaultListLimit:          50,
		MaxListLimit:              1000,
		MaxTagLength:              64,
		MaxTagsPerBookmark:        20,
		MaxTitleLength:            500,
		MaxDescriptionLength:      2000,
		MaxImportErrorMessages:    100,
		DbFilename:                "bookmarks.sqlite",
		LogLevel:                  "info",
		ServerPort:                1323,
		ServerReadTimeoutSeconds:  5,
		ServerWriteTimeoutSeconds: 10,
		BaseUrl:                   "http://localhost:1323",
		FeedSize:                  50,
	}
}
