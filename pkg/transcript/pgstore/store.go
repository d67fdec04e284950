// Package pgstore keeps transcripts in Postgres.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vango-go/vai-character/pkg/transcript"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ transcript.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// Migration is one applied schema step.
type Migration struct {
	Version int64
	Path    string
}

// Migrate applies pending migrations and returns the ones it ran.
func (s *Store) Migrate(ctx context.Context) ([]Migration, error) {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) ([]Migration, error) {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("opening migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	applied := make([]Migration, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		applied = append(applied, Migration{Version: r.Source.Version, Path: r.Source.Path})
	}
	return applied, nil
}

func (s *Store) Append(ctx context.Context, entries ...transcript.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `
INSERT INTO transcript_entries
    (session_id, direction, kind, source, targets, interaction_id, utterance_id, packet_id, body, final, occurred_at)
VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::text[]), $6, $7, $8, $9, $10, $11)
`
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query,
			e.SessionID,
			string(e.Direction),
			e.Kind,
			e.Source,
			e.Targets,
			e.InteractionID,
			e.UtteranceID,
			e.PacketID,
			e.Text,
			e.Final,
			e.At,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("appending transcript entries: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]transcript.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
SELECT id, session_id, direction, kind, source, targets, interaction_id, utterance_id, packet_id, body, final, occurred_at
FROM (
    SELECT * FROM transcript_entries
    WHERE session_id = $1
    ORDER BY occurred_at DESC, id DESC
    LIMIT $2
) recent
ORDER BY occurred_at ASC, id ASC
`
	rows, err := s.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var out []transcript.Entry
	for rows.Next() {
		var (
			e   transcript.Entry
			dir string
		)
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&dir,
			&e.Kind,
			&e.Source,
			&e.Targets,
			&e.InteractionID,
			&e.UtteranceID,
			&e.PacketID,
			&e.Text,
			&e.Final,
			&e.At,
		); err != nil {
			return nil, fmt.Errorf("scanning transcript entry: %w", err)
		}
		e.Direction = transcript.Direction(dir)
		e.At = e.At.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transcript: %w", err)
	}
	return out, nil
}
