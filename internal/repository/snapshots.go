package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/musiliandrew/pesamali-financial-journey/internal/match"
)

// SnapshotStore persists match snapshots as JSONB rows keyed by match id.
// Every save overwrites the previous row; the table holds only the latest
// state per match.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates the store and ensures the backing table exists.
func NewSnapshotStore(ctx context.Context, db *DB) (*SnapshotStore, error) {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS match_snapshots (
			match_id   TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return nil, fmt.Errorf("create match_snapshots table: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// SaveSnapshot upserts the latest state for a match.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap match.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", snap.MatchID, err)
	}
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO match_snapshots (match_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (match_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = now()`,
		snap.MatchID, payload)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", snap.MatchID, err)
	}
	return nil
}

// LoadSnapshot retrieves the latest state for a match. A missing row is
// reported as match.ErrMatchNotFound.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, matchID string) (match.Snapshot, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT state FROM match_snapshots WHERE match_id = $1`, matchID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return match.Snapshot{}, fmt.Errorf("snapshot %q: %w", matchID, match.ErrMatchNotFound)
	}
	if err != nil {
		return match.Snapshot{}, fmt.Errorf("load snapshot %q: %w", matchID, err)
	}

	var snap match.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return match.Snapshot{}, fmt.Errorf("decode snapshot %q: %w", matchID, err)
	}
	return snap, nil
}

// DeleteSnapshot removes a match row. Missing rows are not an error.
func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, matchID string) error {
	_, err := s.db.Pool.Exec(ctx,
		`DELETE FROM match_snapshots WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", matchID, err)
	}
	return nil
}
