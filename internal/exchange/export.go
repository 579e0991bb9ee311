package exchange

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/netscape"
)

// ExportFile writes the bookmarks carrying all of tags (every bookmark when
// tags is empty) to path. The file is replaced atomically, so a failed export
// leaves an existing file untouched.
func (x *Exchange) ExportFile(ctx context.Context, path string, tags []string) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, catalogerrors.ExportFault(path, err)
	}
	tmp, err := os.CreateTemp(dir, ".bookmarks-*.html.tmp")
	if err != nil {
		return 0, catalogerrors.ExportFault(path, err)
	}
	defer os.Remove(tmp.Name())

	count, err := x.export(ctx, tmp, tags)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return 0, x.exportFault(path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, catalogerrors.ExportFault(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, catalogerrors.ExportFault(path, err)
	}
	x.logger.Info("Exported bookmarks", "count", count, "path", path)
	return count, nil
}

// Export writes the bookmarks carrying all of tags to w, newest first.
func (x *Exchange) Export(ctx context.Context, w io.Writer, tags []string) (int, error) {
	count, err := x.export(ctx, w, tags)
	if err != nil {
		return 0, x.exportFault("-", err)
	}
	return count, nil
}

func (x *Exchange) export(ctx context.Context, out io.Writer, tags []string) (int, error) {
	w := netscape.NewWriter(out)
	pageSize := x.config.MaxListLimit
	count := 0
	for {
		page, err := x.catalog.ListBookmarks(ctx, domain.ListOptions{Tags: tags, Limit: pageSize, Offset: count})
		if err != nil {
			return 0, err
		}
		if err := w.Write(page); err != nil {
			return 0, err
		}
		count += len(page)
		if len(page) < pageSize {
			break
		}
	}
	return count, w.Close()
}

// exportFault keeps coded errors from the catalog and reports write failures
// as an ExportFault.
func (x *Exchange) exportFault(path string, err error) error {
	if catalogerrors.CodeOf(err) != catalogerrors.CodeUnknown {
		return err
	}
	return catalogerrors.ExportFault(path, err)
}
