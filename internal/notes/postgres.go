package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists notes in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// seq orders rows inside one Add batch, which all share created_at.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`ALTER TABLE notes ADD COLUMN IF NOT EXISTS seq BIGSERIAL;`,
	`CREATE INDEX IF NOT EXISTS idx_notes_seq ON notes (seq);`,
}

const listNotesQuery = `SELECT id, text, source, created_at FROM notes ORDER BY seq DESC LIMIT $1`

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, items []string, source string) ([]Note, error) {
	items = cleanItems(items)
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	at := time.Now().UTC()
	created := make([]Note, 0, len(items))
	batch := &pgx.Batch{}
	for _, it := range items {
		n := Note{ID: uuid.NewString(), Text: it, Source: source, CreatedAt: at}
		batch.Queue(`INSERT INTO notes (id, text, source, created_at) VALUES ($1, $2, $3, $4)`,
			n.ID, n.Text, n.Source, n.CreatedAt)
		created = append(created, n)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range created {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("insert note: %w", err)
		}
	}
	return created, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, listNotesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	out := make([]Note, 0, limit)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Text, &n.Source, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note rows: %w", err)
	}

	// Oldest first, matching the in-memory store.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
