// Package cache keeps the short-lived operational state that outlives
// a single connection but not the match: resume records for
// disconnected guests and the per-game action stream.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Chrizpy/royalletters-sub000/internal/game"
)

// ResumeTTL bounds how long a dropped guest may come back. Records
// older than this are discarded even if redis has not expired them yet.
const ResumeTTL = 30 * time.Minute

// ResumeRecord remembers a disconnected guest so the host can match a
// RECONNECT claim against it.
type ResumeRecord struct {
	GuestPeerID uuid.UUID `json:"guest_peer_id"`
	HostPeerID  uuid.UUID `json:"host_peer_id"`
	Nickname    string    `json:"nickname"`
	Timestamp   int64     `json:"timestamp"` // unix millis at disconnect
}

// Store wraps the redis client for resume records and action history.
type Store struct {
	rdb *redis.Client
}

// New connects a store to the given redis address.
func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func resumeKey(guestID uuid.UUID) string {
	return "royalletters:resume:" + guestID.String()
}

func actionsKey(gameID uuid.UUID) string {
	return "royalletters:game:" + gameID.String() + ":actions"
}

// SaveResume records a disconnection, replacing any previous record for
// the same guest.
func (s *Store) SaveResume(ctx context.Context, rec ResumeRecord) error {
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal resume record: %w", err)
	}
	if err := s.rdb.Set(ctx, resumeKey(rec.GuestPeerID), data, ResumeTTL).Err(); err != nil {
		return fmt.Errorf("save resume record: %w", err)
	}
	return nil
}

// LoadResume fetches the resume record for a guest. A missing or
// expired record returns (nil, nil): the guest must join fresh.
func (s *Store) LoadResume(ctx context.Context, guestID uuid.UUID) (*ResumeRecord, error) {
	data, err := s.rdb.Get(ctx, resumeKey(guestID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load resume record: %w", err)
	}
	var rec ResumeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal resume record: %w", err)
	}
	if time.Since(time.UnixMilli(rec.Timestamp)) > ResumeTTL {
		s.rdb.Del(ctx, resumeKey(guestID))
		return nil, nil
	}
	return &rec, nil
}

// DropResume removes a record once the guest is back in the game.
func (s *Store) DropResume(ctx context.Context, guestID uuid.UUID) error {
	return s.rdb.Del(ctx, resumeKey(guestID)).Err()
}

// PublishAction appends one applied action to the game's history list.
func (s *Store) PublishAction(ctx context.Context, rec game.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := s.rdb.RPush(ctx, actionsKey(rec.GameID), data).Err(); err != nil {
		return fmt.Errorf("publish action: %w", err)
	}
	return nil
}

// ActionHistory returns the full ordered action stream of one game.
func (s *Store) ActionHistory(ctx context.Context, gameID uuid.UUID) ([]game.ActionRecord, error) {
	raw, err := s.rdb.LRange(ctx, actionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load action history: %w", err)
	}
	out := make([]game.ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec game.ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal action record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
