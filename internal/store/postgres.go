package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projstat_sources (
	session_id TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projstat_loads (
	id          UUID PRIMARY KEY,
	session_id  TEXT NOT NULL,
	source      TEXT NOT NULL,
	sheet_id    TEXT NOT NULL DEFAULT '',
	strategy    TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	client_ip   TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS projstat_loads_session_created_idx
	ON projstat_loads (session_id, created_at DESC);
`

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a pool (or any DBTX, e.g. a transaction in tests).
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// Connect parses url, applies pool limits and verifies the connection.
func Connect(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// PoolOptions mirrors the database section of the configuration.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) SaveSource(ctx context.Context, sessionID, source string) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO projstat_sources (session_id, source, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET source = EXCLUDED.source, updated_at = now()`,
		sessionID, source,
	)
	if err != nil {
		return fmt.Errorf("save source: %w", err)
	}
	return nil
}

func (p *Postgres) LastSource(ctx context.Context, sessionID string) (string, error) {
	var source string
	err := p.db.QueryRow(ctx,
		`SELECT source FROM projstat_sources WHERE session_id = $1`, sessionID,
	).Scan(&source)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("last source: %w", err)
	}
	return source, nil
}

func (p *Postgres) ClearSource(ctx context.Context, sessionID string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM projstat_sources WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear source: %w", err)
	}
	return nil
}

func (p *Postgres) RecordLoad(ctx context.Context, rec LoadRecord) (LoadRecord, error) {
	id := uuid.New()
	var createdAt pgtype.Timestamptz

	err := p.db.QueryRow(ctx, `
		INSERT INTO projstat_loads
			(id, session_id, source, sheet_id, strategy, row_count, error, duration_ms, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		pgtype.UUID{Bytes: id, Valid: true},
		rec.SessionID, rec.Source, rec.SheetID, rec.Strategy,
		int32(rec.Rows), rec.Error, rec.DurationMS,
		rec.ClientIP, rec.UserAgent,
	).Scan(&createdAt)
	if err != nil {
		return LoadRecord{}, fmt.Errorf("record load: %w", err)
	}

	rec.ID = id.String()
	rec.CreatedAt = createdAt.Time.UTC()
	return rec, nil
}

func (p *Postgres) RecentLoads(ctx context.Context, sessionID string, limit int) ([]LoadRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, session_id, source, sheet_id, strategy, row_count, error,
			duration_ms, client_ip, user_agent, created_at
		FROM projstat_loads
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent loads: %w", err)
	}
	defer rows.Close()

	out := make([]LoadRecord, 0)
	for rows.Next() {
		rec, err := scanLoadRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent loads: %w", err)
	}
	return out, nil
}

func (p *Postgres) PurgeLoads(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM projstat_loads WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge loads: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanLoadRow(rows pgx.Rows) (LoadRecord, error) {
	var (
		id        pgtype.UUID
		rec       LoadRecord
		rowCount  int32
		createdAt pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &rec.SessionID, &rec.Source, &rec.SheetID, &rec.Strategy, &rowCount,
		&rec.Error, &rec.DurationMS, &rec.ClientIP, &rec.UserAgent, &createdAt,
	)
	if err != nil {
		return LoadRecord{}, err
	}

	if id.Valid {
		rec.ID = uuid.UUID(id.Bytes).String()
	}
	rec.Rows = int(rowCount)
	rec.CreatedAt = createdAt.Time.UTC()
	return rec, nil
}
