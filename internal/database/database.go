// Package database persists round snapshots and the action audit trail
// in Postgres. The cache keeps the hot copies; this is the durable
// record a finished match leaves behind.
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Chrizpy/royalletters-sub000/engine"
	"github.com/Chrizpy/royalletters-sub000/internal/game"
)

// Store wraps a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the given connection string.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS game_rounds (
    game_id    UUID        NOT NULL,
    round      INT         NOT NULL,
    seed       TEXT        NOT NULL,
    snapshot   JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (game_id, round)
);
CREATE TABLE IF NOT EXISTS game_actions (
    game_id      UUID   NOT NULL,
    action_index INT    NOT NULL,
    actor_id     UUID   NOT NULL,
    action       JSONB  NOT NULL,
    message      TEXT   NOT NULL DEFAULT '',
    ts_millis    BIGINT NOT NULL,
    PRIMARY KEY (game_id, action_index)
);
CREATE TABLE IF NOT EXISTS game_results (
    game_id     UUID        PRIMARY KEY,
    winner_id   UUID        NOT NULL,
    ruleset     TEXT        NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveRoundStart stores the post-deal snapshot so any round can be
// replayed from its seed. Re-running the same round upserts.
func (s *Store) SaveRoundStart(ctx context.Context, gameID uuid.UUID, state *engine.GameState) error {
	snapshot, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal round snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO game_rounds (game_id, round, seed, snapshot)
VALUES ($1, $2, $3, $4)
ON CONFLICT (game_id, round) DO UPDATE SET seed = $3, snapshot = $4`,
		gameID, state.Round, state.Seed, snapshot)
	if err != nil {
		return fmt.Errorf("save round snapshot: %w", err)
	}
	return nil
}

// SaveAction appends one applied action to the audit trail.
func (s *Store) SaveAction(ctx context.Context, rec game.ActionRecord) error {
	action, err := json.Marshal(rec.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO game_actions (game_id, action_index, actor_id, action, message, ts_millis)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (game_id, action_index) DO NOTHING`,
		rec.GameID, rec.Index, rec.ActorID, action, rec.Message, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("save action: %w", err)
	}
	return nil
}

// SaveResult records the final winner of a finished game.
func (s *Store) SaveResult(ctx context.Context, gameID, winnerID uuid.UUID, rs engine.Ruleset) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO game_results (game_id, winner_id, ruleset)
VALUES ($1, $2, $3)
ON CONFLICT (game_id) DO UPDATE SET winner_id = $2`,
		gameID, winnerID, string(rs))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
