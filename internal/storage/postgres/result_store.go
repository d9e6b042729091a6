// Package postgres provides a Postgres-backed result store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/storage"
)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ResultStore upserts validated records into Postgres.
type ResultStore struct {
	pool  txPool
	table string
	now   func() time.Time
}

// New connects a pool using cfg and ensures the results table exists.
func New(ctx context.Context, cfg Config) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewWithPool(pool, cfg.Table, nil)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool txPool, table string, now func() time.Time) (*ResultStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	name, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &ResultStore{pool: pool, table: name, now: now}, nil
}

// EnsureSchema creates the results table when it does not exist.
func (s *ResultStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id              TEXT        NOT NULL,
	primer_id           TEXT        NOT NULL,
	position            INTEGER     NOT NULL,
	status              TEXT        NOT NULL,
	validation_status   TEXT        NOT NULL,
	validation_passed   BOOLEAN,
	matched_pair_index  INTEGER,
	results_url         TEXT,
	record              JSONB       NOT NULL,
	saved_at            TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, primer_id, position)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// SaveResults upserts every record of the run in one transaction.
func (s *ResultStore) SaveResults(ctx context.Context, runID string, jobs []primerblast.Job) (err error) {
	if s == nil || s.pool == nil {
		return errors.New("result store is not configured")
	}
	if runID == "" {
		return errors.New("run id is required")
	}
	rows, err := storage.Rows(runID, jobs, s.now())
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	primer_id,
	position,
	status,
	validation_status,
	validation_passed,
	matched_pair_index,
	results_url,
	record,
	saved_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id, primer_id, position) DO UPDATE SET
	status = EXCLUDED.status,
	validation_status = EXCLUDED.validation_status,
	validation_passed = EXCLUDED.validation_passed,
	matched_pair_index = EXCLUDED.matched_pair_index,
	results_url = EXCLUDED.results_url,
	record = EXCLUDED.record,
	saved_at = EXCLUDED.saved_at`, s.table)

	for _, row := range rows {
		if _, err = tx.Exec(ctx, query,
			row.RunID,
			row.PrimerID,
			row.Position,
			row.Status,
			row.ValidationStatus,
			row.ValidationPassed,
			row.MatchedPairIndex,
			row.ResultsURL,
			row.Record,
			row.SavedAt,
		); err != nil {
			return fmt.Errorf("upsert result %s: %w", row.PrimerID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
