// Package postgres provides the pgx-backed persistence layer for records,
// tags, authors and their relation edges.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"archive-ingest/internal/ingest"
)

const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements ingest.Store on top of Postgres.
type Store struct {
	pool pgxPool
}

// New connects a store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
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
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertRecord inserts one record row and returns the store-assigned id.
func (s *Store) InsertRecord(ctx context.Context, record ingest.Record) (int64, error) {
	attribution, err := json.Marshal(record.Attribution)
	if err != nil {
		return 0, fmt.Errorf("marshal attribution: %w", err)
	}

	const query = `
INSERT INTO records (
	magazine,
	period_label,
	volume,
	title,
	document_url,
	content,
	summary,
	conclusion,
	authors,
	attribution
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, query,
		record.Magazine,
		record.PeriodLabel,
		record.Volume,
		record.Title,
		record.DocumentURL,
		record.Text,
		record.Summary,
		record.Conclusion,
		record.Authors,
		attribution,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// FindEntity looks up a tag or author by case-insensitive exact name.
// A missing row is (nil, nil), not an error.
func (s *Store) FindEntity(ctx context.Context, kind ingest.EntityKind, name string) (*ingest.Entity, error) {
	table, err := entityTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, name FROM %s WHERE lower(name) = lower($1)`, table)

	var e ingest.Entity
	err = s.pool.QueryRow(ctx, query, name).Scan(&e.ID, &e.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	return &e, nil
}

// CreateEntity inserts a new tag or author row. A lost uniqueness race is
// reported as an error wrapping ingest.ErrDuplicateEntity so the caller can
// re-query for the winner.
func (s *Store) CreateEntity(ctx context.Context, kind ingest.EntityKind, name string) (*ingest.Entity, error) {
	table, err := entityTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, table)

	var id int64
	if err := s.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("insert %s %q: %w", kind, name, ingest.ErrDuplicateEntity)
		}
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}
	return &ingest.Entity{ID: id, Name: name}, nil
}

// AttachTag links a record to a tag. Duplicate edges are no-ops.
func (s *Store) AttachTag(ctx context.Context, recordID, tagID int64) error {
	const query = `INSERT INTO record_tags (record_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, recordID, tagID); err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// AttachAuthor links a record to an author. Duplicate edges are no-ops.
func (s *Store) AttachAuthor(ctx context.Context, recordID, authorID int64) error {
	const query = `INSERT INTO record_authors (record_id, author_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, recordID, authorID); err != nil {
		return fmt.Errorf("attach author: %w", err)
	}
	return nil
}

func entityTable(kind ingest.EntityKind) (string, error) {
	switch kind {
	case ingest.KindTag:
		return "tags", nil
	case ingest.KindAuthor:
		return "authors", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}
