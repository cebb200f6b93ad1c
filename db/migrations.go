package db

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is one schema step. Up runs inside the transaction that also
// records the step in schema_version.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var migrations []Migration

// RegisterMigration is called from the init of each migration_*.go file.
func RegisterMigration(m Migration) {
	migrations = append(migrations, m)
}

const schemaVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT,
		description TEXT
	)`

func runMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	current, err := schemaVersion(conn)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		logger.Info().
			Int("version", m.Version).
			Str("description", m.Description).
			Msg("applied migration")
	}
	return nil
}

func applyMigration(conn *sql.DB, m Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339), m.Description,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

// CurrentVersion returns the highest applied migration.
func (d *DB) CurrentVersion() (int, error) {
	return schemaVersion(d.conn)
}
