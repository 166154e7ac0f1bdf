package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the research log in Postgres, for deployments where the
// service runs alongside an existing database.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at connString and ensures the schema
// exists.
func OpenPostgres(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) createSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS research_log (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			category TEXT NOT NULL,
			query TEXT NOT NULL,
			response_text TEXT NOT NULL DEFAULT '',
			sources_json TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'success'
		);
		CREATE INDEX IF NOT EXISTS idx_research_log_created ON research_log(created_at);
		CREATE INDEX IF NOT EXISTS idx_research_log_session ON research_log(session_id);
	`)
	return err
}

func (s *PGStore) Save(ctx context.Context, rec Record) error {
	status := rec.Status
	if status == "" {
		status = "success"
	}
	sources := rec.SourcesJSON
	if sources == "" {
		sources = "[]"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO research_log (id, created_at, session_id, mode, category, query, response_text, sources_json, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.CreatedAt.UTC(), rec.SessionID, rec.Mode,
		rec.Category, rec.Query, rec.ResponseText, sources, status,
	)
	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, created_at, session_id, mode, category, query, response_text, sources_json, status
		FROM research_log WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.SessionID, &rec.Mode, &rec.Category, &rec.Query, &rec.ResponseText, &rec.SourcesJSON, &rec.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting record: %w", err)
	}
	return rec, nil
}

func (s *PGStore) ListRecent(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, session_id, mode, category, query, response_text, sources_json, status
		FROM research_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.SessionID, &rec.Mode, &rec.Category, &rec.Query, &rec.ResponseText, &rec.SourcesJSON, &rec.Status); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return results, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM research_log WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Purge(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM research_log`)
	return err
}

var _ Store = (*PGStore)(nil)
