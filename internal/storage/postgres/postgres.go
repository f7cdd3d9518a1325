// Package postgres implements storage.RemoteStore directly against
// PostgreSQL with a pgx connection pool. It shares the table layout of the
// PostgREST backend, so both can point at the same database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kotlinhustle/power-split/internal/storage"
)

// DefaultTable matches the PostgREST backend.
const DefaultTable = "apartments"

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var _ storage.RemoteStore = (*Store)(nil)

// Store is a RemoteStore backed by pgxpool.
type Store struct {
	pool  *pgxpool.Pool
	table string
	now   func() time.Time
}

// Open connects to dsn and creates the table if needed.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &Store{pool: pool, table: table, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		data JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table))
	return err
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Load returns the row for key, or nil when there is none.
func (s *Store) Load(ctx context.Context, key string) (*storage.Record, error) {
	rec := &storage.Record{}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT key, COALESCE(data::text, 'null'), updated_at FROM %s WHERE key = $1`, s.table),
		key,
	).Scan(&rec.Key, &rec.Data, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// Save upserts the row, or inserts it when opts.InsertOnly is set.
func (s *Store) Save(ctx context.Context, key string, data []byte, opts storage.SaveOptions) error {
	query := `INSERT INTO %s (key, data, updated_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if opts.InsertOnly {
		query = `INSERT INTO %s (key, data, updated_at) VALUES ($1, $2::jsonb, $3)`
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(query, s.table), key, string(data), s.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrConflict, key)
		}
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}
