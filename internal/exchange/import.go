// Package exchange moves bookmarks between the catalog and Netscape bookmark
// files.
package exchange

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/netscape"
)

// Catalog is what import and export need from the catalog service.
type Catalog interface {
	ImportOne(ctx context.Context, input domain.NewBookmark, result *domain.ImportResult) error
	ListBookmarks(ctx context.Context, opts domain.ListOptions) ([]domain.Bookmark, error)
}

type Exchange struct {
	catalog Catalog
	config  domain.Configuration
	logger  *slog.Logger
}

func New(catalog Catalog, config domain.Configuration, log *slog.Logger) *Exchange {
	return &Exchange{catalog: catalog, config: config, logger: logger.OrDiscard(log)}
}

// ImportFile imports the bookmark file at path. A missing or unreadable file
// is an ImportFault.
func (x *Exchange) ImportFile(ctx context.Context, path string, defaultTags []string) (*domain.ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, catalogerrors.ImportFault(path, catalogerrors.New("file not found"))
		}
		return nil, catalogerrors.ImportFault(path, err)
	}
	if info.IsDir() {
		return nil, catalogerrors.ImportFault(path, catalogerrors.New("path is not a file"))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, catalogerrors.ImportFault(path, err)
	}
	defer file.Close()
	return x.Import(ctx, path, file, defaultTags)
}

// Import adds every bookmark found in r, merging defaultTags into each entry's
// own tags. Duplicates are skipped and invalid entries are counted as failed.
// Any other error stops the import; the result then covers the entries
// processed so far.
func (x *Exchange) Import(ctx context.Context, source string, r io.Reader, defaultTags []string) (*domain.ImportResult, error) {
	entries, err := netscape.Parse(r)
	if err != nil {
		return nil, catalogerrors.ImportFault(source, err)
	}
	result := domain.NewImportResult(uuid.NewString(), x.config.MaxImportErrorMessages)
	log := x.logger.With("run", result.RunId, "source", source)
	log.Info("Importing bookmarks", "entries", len(entries))

	for _, entry := range entries {
		tags := make([]string, 0, len(entry.Tags)+len(defaultTags))
		tags = append(tags, entry.Tags...)
		tags = append(tags, defaultTags...)
		err := x.catalog.ImportOne(ctx, domain.NewBookmark{
			URL:         entry.URL,
			Title:       entry.Title,
			Description: entry.Description,
			Tags:        tags,
		}, result)
		if err != nil {
			log.Error("Aborting import", "processed", result.Total, "error", err)
			return result, err
		}
		if result.Total%100 == 0 {
			log.Debug("Import progress", "processed", result.Total)
		}
	}
	log.Info("Import finished", "imported", result.Imported, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}
