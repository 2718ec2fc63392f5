package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/musiliandrew/pesamali-financial-journey/internal/board"
	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
	"github.com/musiliandrew/pesamali-financial-journey/internal/rng"
	"github.com/musiliandrew/pesamali-financial-journey/internal/stream"
)

// SnapshotStore is the external persistence collaborator. The manager hands
// it a full state snapshot after every broadcast update; it never reads it
// back except through Rehydrate.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshot(ctx context.Context, matchID string) (Snapshot, error)
}

// Settings carries the per-deployment game parameters.
type Settings struct {
	BoardLength       int
	SeatCount         int
	SubscriberBacklog int
}

// runtime pairs a match with the lock that serializes its actions. At most
// one action is being applied to a match at any instant; matches proceed
// independently.
type runtime struct {
	mu    sync.Mutex
	match *Match
}

// Manager is the match registry: it owns every live match, serializes
// access per match id, and fans state changes out through the hub.
type Manager struct {
	logger   *zap.Logger
	hub      *stream.Hub
	store    SnapshotStore
	catalog  *catalog.Catalog
	settings Settings

	mu      sync.RWMutex
	matches map[string]*runtime
	closed  bool
}

// NewManager creates a match registry. store may be nil for a memory-only
// engine.
func NewManager(settings Settings, cat *catalog.Catalog, hub *stream.Hub, store SnapshotStore, logger *zap.Logger) *Manager {
	if settings.BoardLength <= 0 {
		settings.BoardLength = board.DefaultLength
	}
	if settings.SeatCount <= 0 {
		settings.SeatCount = 2
	}
	return &Manager{
		logger:   logger,
		hub:      hub,
		store:    store,
		catalog:  cat,
		settings: settings,
		matches:  make(map[string]*runtime),
	}
}

// CreateMatch registers a new match in the waiting phase and returns its id.
func (mgr *Manager) CreateMatch(ctx context.Context, seatCount int) (string, error) {
	if seatCount <= 0 {
		seatCount = mgr.settings.SeatCount
	}
	seed, err := rng.NewSeed()
	if err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}
	return mgr.createWithSeed(ctx, uuid.New().String(), seed, seatCount)
}

// CreateMatchWithSeed registers a match with a caller-chosen id and seed,
// used by tests and by deterministic replays.
func (mgr *Manager) CreateMatchWithSeed(ctx context.Context, id, seed string, seatCount int) (string, error) {
	if seatCount <= 0 {
		seatCount = mgr.settings.SeatCount
	}
	return mgr.createWithSeed(ctx, id, seed, seatCount)
}

func (mgr *Manager) createWithSeed(ctx context.Context, id, seed string, seatCount int) (string, error) {
	m := New(id, seed, seatCount, board.NewGeometry(mgr.settings.BoardLength, nil), mgr.catalog)

	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return "", fmt.Errorf("registry closed: %w", ErrMatchEnded)
	}
	if _, exists := mgr.matches[id]; exists {
		mgr.mu.Unlock()
		return "", fmt.Errorf("match %q already registered: %w", id, ErrSeatTaken)
	}
	mgr.matches[id] = &runtime{match: m}
	mgr.mu.Unlock()

	mgr.persist(ctx, m)
	mgr.logger.Info("match created",
		zap.String("match_id", id),
		zap.Int("seats", seatCount),
	)
	return id, nil
}

// Rehydrate loads a match snapshot from the store and registers it,
// resuming its draw counter exactly.
func (mgr *Manager) Rehydrate(ctx context.Context, matchID string) error {
	if mgr.store == nil {
		return fmt.Errorf("rehydrate %q: no store: %w", matchID, ErrMatchNotFound)
	}
	snap, err := mgr.store.LoadSnapshot(ctx, matchID)
	if err != nil {
		return fmt.Errorf("rehydrate %q: %w", matchID, err)
	}
	m := Restore(snap, mgr.catalog)

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.closed {
		return fmt.Errorf("registry closed: %w", ErrMatchEnded)
	}
	if _, exists := mgr.matches[matchID]; exists {
		return fmt.Errorf("match %q already live: %w", matchID, ErrSeatTaken)
	}
	mgr.matches[matchID] = &runtime{match: m}
	mgr.logger.Info("match rehydrated",
		zap.String("match_id", matchID),
		zap.Uint64("draw_counter", snap.DrawCounter),
	)
	return nil
}

func (mgr *Manager) runtimeFor(matchID string) (*runtime, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	rt, ok := mgr.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match %q: %w", matchID, ErrMatchNotFound)
	}
	return rt, nil
}

// Join seats a user and broadcasts the refreshed lobby state.
func (mgr *Manager) Join(ctx context.Context, matchID, userID string, seat int, isAI bool) error {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := rt.match.Join(userID, seat, isAI); err != nil {
		return err
	}
	mgr.publish(ctx, rt.match, Event{Type: stream.UpdateStateSnapshot, Data: rt.match.Snapshot()})
	return nil
}

// Start moves a match into asset selection and announces the first seat.
func (mgr *Manager) Start(ctx context.Context, matchID string) error {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := rt.match.Start(); err != nil {
		return err
	}
	mgr.publish(ctx, rt.match, Event{Type: stream.UpdateTurnChange, Data: TurnChangeEvent{NextSeat: rt.match.TurnSeat()}})
	mgr.logger.Info("match started", zap.String("match_id", matchID))
	return nil
}

// Submit applies one action to a match. All actions for a match id are
// serialized; errors return synchronously and are never broadcast. On
// success the first resulting update is returned with its assigned
// sequence number.
func (mgr *Manager) Submit(ctx context.Context, matchID string, action Action) (stream.Update, error) {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return stream.Update{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return stream.Update{}, err
	}

	events, err := rt.match.Apply(action)
	if err != nil {
		mgr.logger.Debug("action rejected",
			zap.String("match_id", matchID),
			zap.String("action", string(action.Type)),
			zap.String("user_id", action.UserID),
			zap.Error(err),
		)
		return stream.Update{}, err
	}

	var first stream.Update
	for i, ev := range events {
		update := mgr.publish(ctx, rt.match, ev)
		if i == 0 {
			first = update
		}
	}

	if rt.match.Status() == StatusEnded {
		mgr.hub.CloseMatch(matchID)
		mgr.logger.Info("match ended",
			zap.String("match_id", matchID),
			zap.String("winner", rt.match.Winner()),
		)
	}
	return first, nil
}

// publish assigns the update's sequence number, fans it out, and hands the
// resulting snapshot to the store. Caller holds the runtime lock.
func (mgr *Manager) publish(ctx context.Context, m *Match, ev Event) stream.Update {
	update := mgr.hub.Publish(m.ID, stream.Update{
		MatchID:   m.ID,
		Type:      ev.Type,
		Data:      ev.Data,
		Timestamp: time.Now(),
	})
	mgr.persist(ctx, m)
	return update
}

func (mgr *Manager) persist(ctx context.Context, m *Match) {
	if mgr.store == nil {
		return
	}
	if err := mgr.store.SaveSnapshot(ctx, m.Snapshot()); err != nil {
		// Persistence failures never fail the action; the engine stays
		// authoritative in memory.
		mgr.logger.Warn("snapshot persistence failed",
			zap.String("match_id", m.ID),
			zap.Error(err),
		)
	}
}

// Subscribe attaches a consumer to a match's update stream. An ended
// match has no stream left to follow: its topic is gone, so a late
// subscription would start a fresh topic at sequence zero and never
// close. The runtime lock serializes the status check with Submit's
// end-of-match topic teardown.
func (mgr *Manager) Subscribe(matchID string) (*stream.Subscription, error) {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.match.Status() == StatusEnded {
		return nil, fmt.Errorf("subscribe to %q: %w", matchID, ErrMatchEnded)
	}
	return mgr.hub.Subscribe(matchID), nil
}

// Snapshot returns a consistent copy of a match's state.
func (mgr *Manager) Snapshot(matchID string) (Snapshot, error) {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return Snapshot{}, err
	}
	return rt.match.Snapshot(), nil
}

// Abandon terminates a match without a winner and ends its stream.
func (mgr *Manager) Abandon(ctx context.Context, matchID string) error {
	rt, err := mgr.runtimeFor(matchID)
	if err != nil {
		return err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.match.Abandon()
	mgr.persist(ctx, rt.match)
	mgr.hub.CloseMatch(matchID)
	mgr.logger.Info("match abandoned", zap.String("match_id", matchID))
	return nil
}

// ActiveCount returns the number of matches that have not ended.
func (mgr *Manager) ActiveCount() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	count := 0
	for _, rt := range mgr.matches {
		if rt.match.Status() != StatusEnded {
			count++
		}
	}
	return count
}

// Close drains the registry on shutdown: every live stream ends and no new
// matches can be created.
func (mgr *Manager) Close() {
	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return
	}
	mgr.closed = true
	mgr.mu.Unlock()

	mgr.hub.Close()
	mgr.logger.Info("match registry closed")
}
