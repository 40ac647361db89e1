package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Guizzs26/scorebook-sync/internal/models"
)

// ErrVersionMismatch is returned when a partial update names a version that
// is not the stored one. It matches models.ErrConflict.
var ErrVersionMismatch = fmt.Errorf("%w: version mismatch", models.ErrConflict)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS balls (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    match_id   TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS balls_match_idx ON balls (match_id, seq);
`

// PostgresRepository is the score API's document store. Matches carry an
// optimistic version that every update bumps.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres did not answer ping: %w", err)
	}

	return &PostgresRepository{pool: p}, nil
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateMatch stores a new match under a server-generated id at version 1.
func (r *PostgresRepository) CreateMatch(ctx context.Context, fields models.Document) (models.Document, error) {
	doc := fields.Clone()
	doc["id"] = uuid.NewString()
	doc["createdAt"] = time.Now().UnixMilli()
	delete(doc, "version")
	delete(doc, "isOffline")

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `INSERT INTO matches (id, doc, version) VALUES ($1, $2, 1)`, doc.ID(), body); err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	doc["version"] = int64(1)
	return doc, nil
}

func (r *PostgresRepository) GetMatch(ctx context.Context, id string) (models.Document, error) {
	var (
		doc     models.Document
		version int64
	)
	err := r.pool.QueryRow(ctx, `SELECT doc, version FROM matches WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	doc["version"] = version
	return doc, nil
}

// UpdateMatch merges partial into the stored match. When partial carries a
// "version" it must equal the stored one or ErrVersionMismatch is returned.
func (r *PostgresRepository) UpdateMatch(ctx context.Context, id string, partial models.Document) (models.Document, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		doc     models.Document
		version int64
	)
	err = tx.QueryRow(ctx, `SELECT doc, version FROM matches WHERE id = $1 FOR UPDATE`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}

	changes := partial.Clone()
	if raw, ok := changes["version"]; ok {
		want, valid := VersionOf(raw)
		if !valid || want != version {
			return nil, fmt.Errorf("match %s at version %d, update names %v: %w", id, version, raw, ErrVersionMismatch)
		}
		delete(changes, "version")
	}
	delete(changes, "id")
	doc.Merge(changes)

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match: %w", err)
	}

	version++
	if _, err := tx.Exec(ctx, `
		UPDATE matches
		SET doc = $2, version = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, body, version); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit match update: %w", err)
	}

	doc["version"] = version
	return doc, nil
}

// AddBall appends a delivery to a match and returns the stored ball.
func (r *PostgresRepository) AddBall(ctx context.Context, matchID string, fields models.Document) (models.Document, error) {
	ball := fields.Clone()
	ball["id"] = uuid.NewString()
	ball["matchId"] = matchID

	body, err := json.Marshal(ball)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ball: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO balls (id, match_id, doc)
		SELECT $1, id, $3 FROM matches WHERE id = $2
	`, ball.ID(), matchID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ball: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("match %s: %w", matchID, models.ErrNotFound)
	}
	return ball, nil
}

func (r *PostgresRepository) ListBalls(ctx context.Context, matchID string) ([]models.Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM balls WHERE match_id = $1 ORDER BY seq ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balls: %w", err)
	}
	defer rows.Close()

	balls := []models.Document{}
	for rows.Next() {
		var ball models.Document
		if err := rows.Scan(&ball); err != nil {
			return nil, fmt.Errorf("failed to scan ball: %w", err)
		}
		balls = append(balls, ball)
	}
	return balls, rows.Err()
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// VersionOf reads a version number decoded from JSON or stored natively.
func VersionOf(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
