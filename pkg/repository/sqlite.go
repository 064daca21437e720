package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores records in a predictions table.
type SQLite struct {
	db   *sql.DB
	opts *options
}

var _ Repository = (*SQLite)(nil)

// migration represents a single schema migration.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_predictions",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS predictions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TEXT NOT NULL,
				audio_file_path TEXT NOT NULL,
				prediction REAL NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp)`,
		},
	},
}

// OpenSQLite opens or creates the database at path and applies pending
// migrations.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	// One writer; sqlite serialises writes anyway.
	db.SetMaxOpenConns(1)

	r := &SQLite{db: db, opts: newOptions(opts)}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLite) migrate() error {
	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("repository: create migrations table: %w", err)
	}

	var version int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return fmt.Errorf("repository: read schema version: %w", err)
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		r.opts.logger.Debug("repository: running migration", "version", m.version, "name", m.name)
		tx, err := r.db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("repository: migration %d failed: %w", m.version, err)
			}
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("repository: record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("repository: commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Save implements Repository.
func (r *SQLite) Save(ctx context.Context, path string, prediction float64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO predictions (timestamp, audio_file_path, prediction) VALUES (?, ?, ?)",
		r.opts.now().Format(time.RFC3339Nano), path, prediction)
	if err != nil {
		return fmt.Errorf("repository: insert prediction: %w", err)
	}
	return nil
}

// List implements Repository.
func (r *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT timestamp, audio_file_path, prediction FROM predictions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("repository: query predictions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			ts  string
			rec Record
		)
		if err := rows.Scan(&ts, &rec.AudioFilePath, &rec.Prediction); err != nil {
			return nil, fmt.Errorf("repository: scan prediction: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("repository: parse timestamp %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close implements Repository.
func (r *SQLite) Close() error {
	return r.db.Close()
}
