package migrations

import (
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

type Migration struct {
	SequenceId int
	Sql        string
}

// MigrateSchema applies every migration whose sequence id is not yet recorded
// in the migrations table, in slice order. Each migration and its bookkeeping
// row are committed together.
func MigrateSchema(db *sql.DB, migrations []Migration, logger *slog.Logger) error {
	if err := initMigrationTable(db); err != nil {
		return err
	}
	appliedMigrations, err := getAppliedMigrations(db)
	if err != nil {
		return err
	}
	for _, migration := range migrations {
		if slices.Contains(appliedMigrations, migration.SequenceId) {
			continue
		}
		if logger != nil {
			logger.Info("Executing migration", "sequence", migration.SequenceId)
		}
		if err := apply(db, migration); err != nil {
			return fmt.Errorf("migration %d: %w", migration.SequenceId, err)
		}
	}
	return nil
}

func apply(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err = tx.Exec(migration.Sql); err != nil {
		return err
	}
	if _, err = tx.Exec("INSERT INTO migrations (sequence_id) VALUES (?)", migration.SequenceId); err != nil {
		return err
	}
	return tx.Commit()
}

func initMigrationTable(db *sql.DB) error {
	_, err := db.Exec("CREATE TABLE IF NOT EXISTS migrations (sequence_id INTEGER NOT NULL PRIMARY KEY)")
	return err
}

func getAppliedMigrations(db *sql.DB) ([]int, error) {
	rows, err := db.Query("SELECT sequence_id FROM migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var migrations []int
	for rows.Next() {
		var sequenceId int
		err = rows.Scan(&sequenceId)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, sequenceId)
	}
	return migrations, rows.Err()
}
