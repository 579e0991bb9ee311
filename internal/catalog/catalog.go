// Package catalog is the application-facing API of the bookmark catalog. It
// normalizes all input before handing it to the storage engine.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/normalize"
)

// Storage is the subset of the storage engine the service relies on.
type Storage interface {
	CreateBookmark(ctx context.Context, url, title, description string, tags []string) (domain.Bookmark, error)
	GetBookmarkByID(ctx context.Context, id int64) (domain.Bookmark, error)
	GetBookmarkByURL(ctx context.Context, url string) (domain.Bookmark, bool, error)
	ListBookmarks(ctx context.Context, opts domain.ListOptions) ([]domain.Bookmark, error)
	SearchBookmarks(ctx context.Context, text string, limit int) ([]domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, id int64) error
	AddTagsToBookmark(ctx context.Context, id int64, names []string) error
	RemoveTagsFromBookmark(ctx context.Context, id int64, names []string) error
	ListTagsWithCounts(ctx context.Context) ([]domain.TagCount, error)
	DeleteTag(ctx context.Context, name string) error
	PruneOrphanTags(ctx context.Context) (int, error)
	CountBookmarks(ctx context.Context) (int, error)
}

type Service struct {
	store      Storage
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

func NewService(store Storage, normalizer *normalize.Normalizer, log *slog.Logger) *Service {
	return &Service{store: store, normalizer: normalizer, logger: logger.OrDiscard(log)}
}

// AddBookmark normalizes and stores a new bookmark. The returned bookmark
// carries its tags.
func (s *Service) AddBookmark(ctx context.Context, input domain.NewBookmark) (domain.Bookmark, error) {
	url, err := s.normalizer.URL(input.URL)
	if err != nil {
		return domain.Bookmark{}, err
	}
	bookmark, err := s.store.CreateBookmark(ctx, url,
		s.normalizer.Title(input.Title),
		s.normalizer.Description(input.Description),
		s.normalizer.Tags(input.Tags))
	if err != nil {
		return domain.Bookmark{}, err
	}
	s.logger.Info("Added bookmark", "id", bookmark.Id, "url", bookmark.URL)
	return bookmark, nil
}

func (s *Service) GetBookmark(ctx context.Context, id int64) (domain.Bookmark, error) {
	return s.store.GetBookmarkByID(ctx, id)
}

// FindByURL normalizes rawURL and looks it up. The boolean reports whether a
// bookmark was found.
func (s *Service) FindByURL(ctx context.Context, rawURL string) (domain.Bookmark, bool, error) {
	url, err := s.normalizer.URL(rawURL)
	if err != nil {
		return domain.Bookmark{}, false, err
	}
	return s.store.GetBookmarkByURL(ctx, url)
}

// ListBookmarks lists bookmarks newest first, restricted to those carrying all
// of opts.Tags.
func (s *Service) ListBookmarks(ctx context.Context, opts domain.ListOptions) ([]domain.Bookmark, error) {
	if len(opts.Tags) > 0 {
		tags := s.normalizer.Tags(opts.Tags)
		if len(tags) == 0 {
			// every filter tag normalized away: nothing can match
			return []domain.Bookmark{}, nil
		}
		opts.Tags = tags
	}
	return s.store.ListBookmarks(ctx, opts)
}

// SearchBookmarks returns no results for a blank query without touching
// storage.
func (s *Service) SearchBookmarks(ctx context.Context, query string, limit int) ([]domain.Bookmark, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Bookmark{}, nil
	}
	return s.store.SearchBookmarks(ctx, query, limit)
}

// UpdateBookmark changes only the fields present in patch. Tags, when present,
// replace the whole set, an empty list clears it.
func (s *Service) UpdateBookmark(ctx context.Context, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	normalized := domain.BookmarkPatch{}
	if patch.Title != nil {
		title := s.normalizer.Title(*patch.Title)
		normalized.Title = &title
	}
	if patch.Description != nil {
		description := s.normalizer.Description(*patch.Description)
		normalized.Description = &description
	}
	if patch.Tags != nil {
		tags := s.normalizer.Tags(*patch.Tags)
		normalized.Tags = &tags
	}
	bookmark, err := s.store.UpdateBookmark(ctx, id, normalized)
	if err != nil {
		return domain.Bookmark{}, err
	}
	s.logger.Info("Updated bookmark", "id", id)
	return bookmark, nil
}

func (s *Service) DeleteBookmark(ctx context.Context, id int64) error {
	if err := s.store.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Deleted bookmark", "id", id)
	return nil
}

// AddTags attaches tags to the bookmark and returns the updated bookmark.
func (s *Service) AddTags(ctx context.Context, id int64, tags []string) (domain.Bookmark, error) {
	if err := s.store.AddTagsToBookmark(ctx, id, s.normalizer.Tags(tags)); err != nil {
		return domain.Bookmark{}, err
	}
	return s.store.GetBookmarkByID(ctx, id)
}

// RemoveTags detaches tags from the bookmark and returns the updated bookmark.
func (s *Service) RemoveTags(ctx context.Context, id int64, tags []string) (domain.Bookmark, error) {
	if err := s.store.RemoveTagsFromBookmark(ctx, id, s.normalizer.Tags(tags)); err != nil {
		return domain.Bookmark{}, err
	}
	return s.store.GetBookmarkByID(ctx, id)
}

// ListTags returns tags in use, most used first. A positive limit truncates
// the list.
func (s *Service) ListTags(ctx context.Context, limit int) ([]domain.TagCount, error) {
	tags, err := s.store.ListTagsWithCounts(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

func (s *Service) DeleteTag(ctx context.Context, name string) error {
	tag := s.normalizer.Tag(name)
	if tag == "" {
		return catalogerrors.InvalidInput("tag name is empty")
	}
	if err := s.store.DeleteTag(ctx, tag); err != nil {
		return err
	}
	s.logger.Info("Deleted tag", "tag", tag)
	return nil
}

func (s *Service) PruneTags(ctx context.Context) (int, error) {
	return s.store.PruneOrphanTags(ctx)
}

func (s *Service) CountBookmarks(ctx context.Context) (int, error) {
	return s.store.CountBookmarks(ctx)
}

// ImportOne adds a single imported bookmark and records the outcome in result.
// Duplicates count as skipped and invalid entries as failed; any other error
// is returned and is meant to abort the import.
func (s *Service) ImportOne(ctx context.Context, input domain.NewBookmark, result *domain.ImportResult) error {
	_, err := s.AddBookmark(ctx, input)
	switch {
	case err == nil:
		result.AddSuccess()
	case catalogerrors.Is(err, catalogerrors.ErrDuplicateKey):
		s.logger.Debug("Skipping duplicate bookmark", "url", input.URL, "run", result.RunId)
		result.AddSkip()
	case catalogerrors.Is(err, catalogerrors.ErrInvalidInput):
		s.logger.Warn("Skipping invalid bookmark", "url", input.URL, "error", err, "run", result.RunId)
		result.AddFailure(err.Error())
	default:
		return err
	}
	return nil
}
