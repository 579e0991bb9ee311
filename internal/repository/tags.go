package repository

import (
	"context"
	"database/sql"
	"errors"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
)

// AddTagsToBookmark attaches names to the bookmark, creating tags as needed.
// Names that are already attached are ignored.
func (store *Store) AddTagsToBookmark(ctx context.Context, id int64, names []string) error {
	return store.inWriteTx(ctx, "add tags", func(tx *sql.Tx) error {
		now := store.now().Unix()
		if err := touchBookmark(ctx, tx, id, now); err != nil {
			return err
		}
		return addTags(ctx, tx, id, names, now)
	})
}

// SetTagsForBookmark replaces the tag set of the bookmark with names.
func (store *Store) SetTagsForBookmark(ctx context.Context, id int64, names []string) error {
	return store.inWriteTx(ctx, "set tags", func(tx *sql.Tx) error {
		now := store.now().Unix()
		if err := touchBookmark(ctx, tx, id, now); err != nil {
			return err
		}
		return setTags(ctx, tx, id, names, now)
	})
}

// RemoveTagsFromBookmark detaches names from the bookmark. Names that are not
// attached are ignored. The tags themselves are kept.
func (store *Store) RemoveTagsFromBookmark(ctx context.Context, id int64, names []string) error {
	return store.inWriteTx(ctx, "remove tags", func(tx *sql.Tx) error {
		if err := touchBookmark(ctx, tx, id, store.now().Unix()); err != nil {
			return err
		}
		names = distinctNonEmpty(names)
		if len(names) == 0 {
			return nil
		}
		args := make([]any, 0, len(names)+1)
		args = append(args, id)
		for _, name := range names {
			args = append(args, name)
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM bookmark_tags
			WHERE bookmark_id = ?
			AND tag_id IN (SELECT id FROM tags WHERE name IN (`+placeholders(len(names))+`))`, args...)
		return err
	})
}

// ListTagsWithCounts returns every tag that is attached to at least one
// bookmark, most used first and then by name.
func (store *Store) ListTagsWithCounts(ctx context.Context) ([]domain.TagCount, error) {
	tags := make([]domain.TagCount, 0)
	err := store.inReadTx(ctx, "list tags", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT t.name, COUNT(DISTINCT bt.bookmark_id) AS bookmark_count
			FROM tags t JOIN bookmark_tags bt ON bt.tag_id = t.id
			GROUP BY t.id, t.name
			ORDER BY bookmark_count DESC, t.name ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var tag domain.TagCount
			if err := rows.Scan(&tag.Name, &tag.Count); err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return rows.Err()
	})
	return tags, err
}

// DeleteTag removes the tag and detaches it from all bookmarks.
func (store *Store) DeleteTag(ctx context.Context, name string) error {
	return store.inWriteTx(ctx, "delete tag", func(tx *sql.Tx) error {
		var tagId int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tagId)
		if errors.Is(err, sql.ErrNoRows) {
			return catalogerrors.NotFoundf("tag %q not found", name)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM bookmark_tags WHERE tag_id = ?", tagId); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", tagId)
		return err
	})
}

// PruneOrphanTags deletes tags that no bookmark carries and returns how many
// were removed.
func (store *Store) PruneOrphanTags(ctx context.Context) (int, error) {
	var pruned int64
	err := store.inWriteTx(ctx, "prune tags", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM bookmark_tags)")
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})
	if err == nil && pruned > 0 {
		store.logger.Info("Pruned orphan tags", "count", pruned)
	}
	return int(pruned), err
}

func addTags(ctx context.Context, tx *sql.Tx, bookmarkId int64, names []string, now int64) error {
	for _, name := range distinctNonEmpty(names) {
		tagId, err := getOrCreateTag(ctx, tx, name, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO bookmark_tags (bookmark_id, tag_id, created) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
			bookmarkId, tagId, now); err != nil {
			return err
		}
	}
	return nil
}

func setTags(ctx context.Context, tx *sql.Tx, bookmarkId int64, names []string, now int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmark_tags WHERE bookmark_id = ?", bookmarkId); err != nil {
		return err
	}
	return addTags(ctx, tx, bookmarkId, names, now)
}

func getOrCreateTag(ctx context.Context, tx *sql.Tx, name string, now int64) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO tags (name, created) VALUES (?, ?) ON CONFLICT(name) DO NOTHING", name, now); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&id)
	return id, err
}

// touchBookmark refreshes the update timestamp and fails with NotFound when
// the bookmark does not exist.
func touchBookmark(ctx context.Context, tx *sql.Tx, id int64, now int64) error {
	res, err := tx.ExecContext(ctx, "UPDATE bookmarks SET updated = MAX(?, created) WHERE id = ?", now, id)
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
}
