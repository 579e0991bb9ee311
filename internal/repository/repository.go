// Package repository is the SQLite storage engine for the catalog. Every
// public method runs in its own transaction and returns *errors.Error values.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/migrations"
)

const bookmarkColumns = "b.id, b.url, b.title, b.description, b.created, b.updated"

type Store struct {
	// writeDb holds a single connection so that writers queue instead of
	// failing with SQLITE_BUSY.
	writeDb *sql.DB
	readDb  *sql.DB
	config  domain.Configuration
	logger  *slog.Logger
	now     func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (and creates when missing) the database at dbFilename and brings
// its schema up to date.
func Open(dbFilename string, config domain.Configuration, log *slog.Logger) (*Store, error) {
	log = logger.OrDiscard(log)
	if dir := filepath.Dir(dbFilename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, catalogerrors.StorageFault(err, "open")
		}
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbFilename)

	writeDb, err := sql.Open("sqlite3", dsn+"&_txlock=immediate")
	if err != nil {
		return nil, catalogerrors.StorageFault(err, "open")
	}
	writeDb.SetMaxOpenConns(1)
	if err := migrations.MigrateSchema(writeDb, bookmarkMigrations, log); err != nil {
		writeDb.Close()
		return nil, catalogerrors.StorageFault(err, "migrate")
	}

	readDb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writeDb.Close()
		return nil, catalogerrors.StorageFault(err, "open")
	}
	readDb.SetMaxOpenConns(4)

	log.Debug("Opened database", "path", dbFilename)
	return &Store{writeDb: writeDb, readDb: readDb, config: config, logger: log, now: time.Now}, nil
}

func (store *Store) Close() error {
	return catalogerrors.Join(store.readDb.Close(), store.writeDb.Close())
}

// CreateBookmark inserts a bookmark together with its initial tags. The values
// are expected to be normalized already. A URL that is already stored fails
// with DuplicateKey.
func (store *Store) CreateBookmark(ctx context.Context, url, title, description string, tags []string) (domain.Bookmark, error) {
	var bookmark domain.Bookmark
	err := store.inWriteTx(ctx, "create bookmark", func(tx *sql.Tx) error {
		now := store.now().Unix()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO bookmarks (url, title, description, created, updated) VALUES (?, ?, ?, ?, ?)",
			url, title, description, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return catalogerrors.DuplicateKeyf("bookmark already exists: %s", url)
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := addTags(ctx, tx, id, tags, now); err != nil {
			return err
		}
		bookmark, err = getBookmark(ctx, tx, id)
		return err
	})
	return bookmark, err
}

func (store *Store) GetBookmarkByID(ctx context.Context, id int64) (domain.Bookmark, error) {
	var bookmark domain.Bookmark
	err := store.inReadTx(ctx, "get bookmark", func(tx *sql.Tx) error {
		var err error
		bookmark, err = getBookmark(ctx, tx, id)
		return err
	})
	return bookmark, err
}

// GetBookmarkByURL looks up a bookmark by canonical URL. A missing bookmark is
// reported through the boolean, not as an error.
func (store *Store) GetBookmarkByURL(ctx context.Context, url string) (domain.Bookmark, bool, error) {
	var bookmark domain.Bookmark
	found := false
	err := store.inReadTx(ctx, "get bookmark by url", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks b WHERE b.url = ?", url)
		if err != nil {
			return err
		}
		bookmarks, err := scanBookmarks(rows)
		if err != nil || len(bookmarks) == 0 {
			return err
		}
		if err := loadTags(ctx, tx, bookmarks); err != nil {
			return err
		}
		bookmark, found = bookmarks[0], true
		return nil
	})
	return bookmark, found, err
}

// ListBookmarks returns bookmarks newest first. When opts.Tags is set only
// bookmarks carrying every one of those tags are returned.
func (store *Store) ListBookmarks(ctx context.Context, opts domain.ListOptions) ([]domain.Bookmark, error) {
	limit, offset := store.clampPage(opts.Limit, opts.Offset)
	tags := distinctNonEmpty(opts.Tags)

	var query strings.Builder
	args := make([]any, 0, len(tags)+3)
	query.WriteString("SELECT " + bookmarkColumns + " FROM bookmarks b")
	if len(tags) > 0 {
		query.WriteString(`
			WHERE b.id IN (
				SELECT bt.bookmark_id
				FROM bookmark_tags bt JOIN tags t ON t.id = bt.tag_id
				WHERE t.name IN (` + placeholders(len(tags)) + `)
				GROUP BY bt.bookmark_id
				HAVING COUNT(DISTINCT t.id) = ?
			)`)
		for _, tag := range tags {
			args = append(args, tag)
		}
		args = append(args, len(tags))
	}
	query.WriteString(" ORDER BY b.created DESC, b.id DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	return store.queryBookmarks(ctx, "list bookmarks", query.String(), args...)
}

// SearchBookmarks matches text as a case-insensitive substring of the URL,
// title or description. Case folding covers ASCII letters only.
func (store *Store) SearchBookmarks(ctx context.Context, text string, limit int) ([]domain.Bookmark, error) {
	if strings.TrimSpace(text) == "" {
		return []domain.Bookmark{}, nil
	}
	limit, _ = store.clampPage(limit, 0)
	pattern := "%" + escapeLike(text) + "%"
	return store.queryBookmarks(ctx, "search bookmarks", `
		SELECT `+bookmarkColumns+`
		FROM bookmarks b
		WHERE b.url LIKE ? ESCAPE '\'
		OR b.title LIKE ? ESCAPE '\'
		OR b.description LIKE ? ESCAPE '\'
		ORDER BY b.created DESC, b.id DESC
		LIMIT ?`,
		pattern, pattern, pattern, limit)
}

// UpdateBookmark applies patch to the bookmark. Tags, when present, replace the
// whole tag set.
func (store *Store) UpdateBookmark(ctx context.Context, id int64, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	var bookmark domain.Bookmark
	err := store.inWriteTx(ctx, "update bookmark", func(tx *sql.Tx) error {
		existing, err := getBookmark(ctx, tx, id)
		if err != nil {
			return err
		}
		title, description := existing.Title, existing.Description
		if patch.Title != nil {
			title = *patch.Title
		}
		if patch.Description != nil {
			description = *patch.Description
		}
		now := store.now().Unix()
		if _, err := tx.ExecContext(ctx,
			"UPDATE bookmarks SET title = ?, description = ?, updated = MAX(?, created) WHERE id = ?",
			title, description, now, id); err != nil {
			return err
		}
		if patch.Tags != nil {
			if err := setTags(ctx, tx, id, *patch.Tags, now); err != nil {
				return err
			}
		}
		bookmark, err = getBookmark(ctx, tx, id)
		return err
	})
	return bookmark, err
}

func (store *Store) DeleteBookmark(ctx context.Context, id int64) error {
	return store.inWriteTx(ctx, "delete bookmark", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmark_tags WHERE bookmark_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return bookmarkNotFound(id)
		}
		return nil
	})
}

func (store *Store) CountBookmarks(ctx context.Context) (int, error) {
	var count int
	err := store.inReadTx(ctx, "count bookmarks", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookmarks").Scan(&count)
	})
	return count, err
}

func (store *Store) queryBookmarks(ctx context.Context, operation string, query string, args ...any) ([]domain.Bookmark, error) {
	var bookmarks []domain.Bookmark
	err := store.inReadTx(ctx, operation, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		bookmarks, err = scanBookmarks(rows)
		if err != nil {
			return err
		}
		return loadTags(ctx, tx, bookmarks)
	})
	return bookmarks, err
}

// clampPage applies the configured default and maximum to a page request.
func (store *Store) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = store.config.DefaultListLimit
	}
	if limit > store.config.MaxListLimit {
		limit = store.config.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (store *Store) inWriteTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	return store.inTx(ctx, store.writeDb, operation, fn)
}

func (store *Store) inReadTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	return store.inTx(ctx, store.readDb, operation, fn)
}

func (store *Store) inTx(ctx context.Context, db *sql.DB, operation string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return store.fault(err, operation)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return store.fault(err, operation)
	}
	if err := tx.Commit(); err != nil {
		return store.fault(err, operation)
	}
	return nil
}

// fault passes coded errors through and turns everything else into a
// StorageFault for operation.
func (store *Store) fault(err error, operation string) error {
	var coded *catalogerrors.Error
	if catalogerrors.As(err, &coded) {
		return err
	}
	store.logger.Error("Database error", "operation", operation, "error", err)
	return catalogerrors.StorageFault(err, operation)
}

func getBookmark(ctx context.Context, q queryer, id int64) (domain.Bookmark, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks b WHERE b.id = ?", id)
	if err != nil {
		return domain.Bookmark{}, err
	}
	bookmarks, err := scanBookmarks(rows)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if len(bookmarks) == 0 {
		return domain.Bookmark{}, bookmarkNotFound(id)
	}
	if err := loadTags(ctx, q, bookmarks); err != nil {
		return domain.Bookmark{}, err
	}
	return bookmarks[0], nil
}

func scanBookmarks(rows *sql.Rows) ([]domain.Bookmark, error) {
	defer rows.Close()
	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		var b domain.Bookmark
		var created, updated int64
		if err := rows.Scan(&b.Id, &b.URL, &b.Title, &b.Description, &created, &updated); err != nil {
			return nil, err
		}
		b.Created = time.Unix(created, 0)
		b.Updated = time.Unix(updated, 0)
		b.Tags = make([]string, 0)
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// loadTags fills in the tags of all bookmarks with a single query. Tags come
// back sorted by name.
func loadTags(ctx context.Context, q queryer, bookmarks []domain.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	index := make(map[int64]int, len(bookmarks))
	args := make([]any, 0, len(bookmarks))
	for i, b := range bookmarks {
		index[b.Id] = i
		args = append(args, b.Id)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT bt.bookmark_id, t.name
		FROM bookmark_tags bt JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id IN (`+placeholders(len(args))+`)
		ORDER BY t.name ASC`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bookmarkId int64
		var name string
		if err := rows.Scan(&bookmarkId, &name); err != nil {
			return err
		}
		if i, ok := index[bookmarkId]; ok {
			bookmarks[i].Tags = append(bookmarks[i].Tags, name)
		}
	}
	return rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if catalogerrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func bookmarkNotFound(id int64) error {
	return catalogerrors.NotFoundf("bookmark %d not found", id)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// escapeLike escapes the LIKE wildcards so that text matches literally.
func escapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}

func distinctNonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(result, v) {
			result = append(result, v)
		}
	}
	return result
}
