package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/alinassarrr/remotelyx/internal/extract"
)

// Postgres stores records in a jobs table with the extraction payload as
// JSONB next to the columns the dedup lookup needs.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, &PersistenceError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &PersistenceError{Op: "ping", Err: err}
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// EnsureSchema creates the jobs table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id          UUID PRIMARY KEY,
			company     TEXT NOT NULL,
			title       TEXT NOT NULL,
			source_url  TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'new',
			payload     JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS jobs_dedup_idx ON jobs (LOWER(company), LOWER(title));
		CREATE UNIQUE INDEX IF NOT EXISTS jobs_source_url_idx ON jobs (source_url);`)
	if err != nil {
		return &PersistenceError{Op: "ensure schema", Err: err}
	}
	return nil
}

// FindByKey looks a record up by either dedup key. Case-insensitive on
// company+title, exact on source URL.
func (p *Postgres) FindByKey(ctx context.Context, company, title, sourceURL string) (*JobRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, status, payload, created_at, updated_at
		FROM jobs
		WHERE (LOWER(company) = LOWER($1) AND LOWER(title) = LOWER($2))
		   OR source_url = $3
		LIMIT 1`,
		company, title, sourceURL)

	var (
		rec     JobRecord
		payload []byte
	)
	err := row.Scan(&rec.ID, &rec.Status, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	if err := json.Unmarshal(payload, &rec.Result); err != nil {
		return nil, &PersistenceError{Op: "find", Err: fmt.Errorf("decode payload: %w", err)}
	}
	return &rec, nil
}

// Insert writes a new record. When a concurrent writer beat us to the same
// source URL the insert affects zero rows (or trips the unique index) and
// ErrDuplicate comes back. IDs and timestamps are assigned here when the
// caller left them zero.
func (p *Postgres) Insert(ctx context.Context, rec *JobRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusNew
	}

	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return &PersistenceError{Op: "insert", Err: err}
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO jobs (id, company, title, source_url, status, payload, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6::jsonb, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM jobs WHERE source_url = $4
		)`,
		rec.ID, rec.Company, rec.Title, rec.SourceURL, rec.Status, payload, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		// Two conditional inserts can still race past each other's NOT EXISTS
		// check; the unique index turns the loser into a duplicate too.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrDuplicate
		}
		return &PersistenceError{Op: "insert", Err: err}
	}
	if tag.RowsAffected() == 0 {
		log.Debug().Str("sourceURL", rec.SourceURL).Msg("insert skipped, source url already stored")
		return ErrDuplicate
	}
	return nil
}

// Update replaces the payload of an existing record. Status is written as
// given; the reconciler decides whether it may change.
func (p *Postgres) Update(ctx context.Context, rec *JobRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return &PersistenceError{Op: "update", Err: err}
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE jobs
		SET company = $2, title = $3, source_url = $4, status = $5, payload = $6::jsonb, updated_at = $7
		WHERE id = $1`,
		rec.ID, rec.Company, rec.Title, rec.SourceURL, rec.Status, payload, rec.UpdatedAt)
	if err != nil {
		return &PersistenceError{Op: "update", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &PersistenceError{Op: "update", Err: fmt.Errorf("no record with id %s", rec.ID)}
	}
	return nil
}

// List returns records ordered newest first, for the CLI's summary output.
func (p *Postgres) List(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, status, payload, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var (
			rec     JobRecord
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Status, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		var res extract.Result
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		rec.Result = res
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return out, nil
}
