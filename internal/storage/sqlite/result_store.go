// Package sqlite provides a SQLite-backed result store for single-machine runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/storage"
)

// ResultStore writes validated records into a SQLite database.
type ResultStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// New opens (or creates) the database at path and runs migrations.
func New(ctx context.Context, path, table string) (*ResultStore, error) {
	if path == "" {
		return nil, errors.New("store.dsn is required")
	}
	name, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	s := &ResultStore{db: db, table: name, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *ResultStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			run_id             TEXT    NOT NULL,
			primer_id          TEXT    NOT NULL,
			position           INTEGER NOT NULL,
			status             TEXT    NOT NULL,
			validation_status  TEXT    NOT NULL,
			validation_passed  INTEGER,
			matched_pair_index INTEGER,
			results_url        TEXT,
			record             TEXT    NOT NULL,
			saved_at           DATETIME NOT NULL,
			PRIMARY KEY (run_id, primer_id, position)
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_validation_status ON %[1]s(validation_status);
	`, s.table))
	return err
}

// SaveResults replaces the rows of the run inside one transaction.
func (s *ResultStore) SaveResults(ctx context.Context, runID string, jobs []primerblast.Job) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	rows, err := storage.Rows(runID, jobs, s.now())
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
			(run_id, primer_id, position, status, validation_status,
			 validation_passed, matched_pair_index, results_url, record, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.RunID,
			row.PrimerID,
			row.Position,
			row.Status,
			row.ValidationStatus,
			nullableBool(row.ValidationPassed),
			nullableInt(row.MatchedPairIndex),
			nullableString(row.ResultsURL),
			string(row.Record),
			row.SavedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert result %s: %w", row.PrimerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// CountByStatus returns the number of rows per validation status for runID.
func (s *ResultStore) CountByStatus(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT validation_status, COUNT(*) FROM %s WHERE run_id = ? GROUP BY validation_status`, s.table,
	), runID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *ResultStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
	return nil
}

func nullableBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
