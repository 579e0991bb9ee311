package repository

import "aggregat4/bookmarkcatalog/internal/migrations"

var bookmarkMigrations = []migrations.Migration{
	{SequenceId: 1,
		Sql: `
		CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		CHECK (updated >= created)
		);

		-- listing and search order by creation time, newest first, ties broken by id
		CREATE INDEX IF NOT EXISTS bookmarks_created_idx ON bookmarks(created DESC, id DESC);

		CREATE TABLE IF NOT EXISTS tags (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created INTEGER NOT NULL
		);
		`,
	},
	// many-to-many association between bookmarks and tags, removed together with either side
	{SequenceId: 2,
		Sql: `
		CREATE TABLE IF NOT EXISTS bookmark_tags (
		bookmark_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		created INTEGER NOT NULL,
		PRIMARY KEY (bookmark_id, tag_id),
		FOREIGN KEY(bookmark_id) REFERENCES bookmarks(id) ON DELETE CASCADE,
		FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);

		-- the primary key covers lookups by bookmark, this one covers filtering by tag
		CREATE INDEX IF NOT EXISTS bookmark_tags_tag_idx ON bookmark_tags(tag_id, bookmark_id);
		`,
	},
}
