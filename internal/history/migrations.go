package history

import (
	"database/sql"
	"fmt"
	"time"
)

// migration is one versioned schema step.
type migration struct {
	version int
	name    string
	apply   func(*sql.Tx) error
}

var migrations = []migration{
	{
		version: 1,
		name:    "run executions",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS run_executions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					room INTEGER NOT NULL,
					workers INTEGER NOT NULL,
					total_accounts INTEGER NOT NULL,
					processed INTEGER NOT NULL DEFAULT 0,
					completed INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'running',
					started_at TIMESTAMP NOT NULL,
					finished_at TIMESTAMP,
					duration_seconds INTEGER
				)
			`)
			return err
		},
	},
	{
		version: 2,
		name:    "per-account results",
		apply: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS account_results (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id INTEGER NOT NULL REFERENCES run_executions(id),
					email TEXT NOT NULL,
					room INTEGER NOT NULL,
					success INTEGER NOT NULL,
					error_message TEXT,
					duration_ms INTEGER,
					processed_at TIMESTAMP NOT NULL
				)
			`); err != nil {
				return err
			}
			_, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_account_results_run
				ON account_results(run_id)
			`)
			return err
		},
	},
	{
		version: 3,
		name:    "account result email index",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_account_results_email
				ON account_results(email)
			`)
			return err
		},
	},
}

// SchemaVersion is the version RunMigrations brings a database up to.
const SchemaVersion = 3

// RunMigrations applies any schema steps newer than the database's current
// version, each in its own transaction.
func (db *DB) RunMigrations() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := db.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			_, err := tx.Exec(
				"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
				m.version, time.Now(),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}
