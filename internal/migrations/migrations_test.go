package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrateSchemaAppliesInOrder(t *testing.T) {
	db := openTestDb(t)
	migrations := []Migration{
		{SequenceId: 1, Sql: "CREATE TABLE a (id INTEGER PRIMARY KEY);"},
		{SequenceId: 2, Sql: "ALTER TABLE a ADD COLUMN name TEXT;"},
	}

	require.NoError(t, MigrateSchema(db, migrations, nil))

	assert.True(t, tableExists(t, db, "a"))
	_, err := db.Exec("INSERT INTO a (name) VALUES ('x')")
	assert.NoError(t, err)
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	db := openTestDb(t)
	migrations := []Migration{
		{SequenceId: 1, Sql: "CREATE TABLE a (id INTEGER PRIMARY KEY);"},
		{SequenceId: 2, Sql: "ALTER TABLE a ADD COLUMN name TEXT;"},
	}

	require.NoError(t, MigrateSchema(db, migrations, nil))
	// re-running would fail on the ALTER TABLE if it were executed again
	require.NoError(t, MigrateSchema(db, migrations, nil))

	applied, err := getAppliedMigrations(db)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, applied)
}

func TestMigrateSchemaRollsBackFailedMigration(t *testing.T) {
	db := openTestDb(t)
	migrations := []Migration{
		{SequenceId: 1, Sql: "CREATE TABLE a (id INTEGER PRIMARY KEY); CREATE TABLE broken (;"},
	}

	err := MigrateSchema(db, migrations, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 1")

	applied, err := getAppliedMigrations(db)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
