// Package stream implements the per-match broadcast fan-out: an ordered,
// gap-free sequence of state updates delivered to every subscriber of a
// match. Publishing never blocks on a slow consumer; a subscriber that
// falls behind its backlog is disconnected instead.
package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// UpdateType identifies what a broadcast update carries.
type UpdateType string

const (
	UpdateJoined        UpdateType = "joined"
	UpdateTurnChange    UpdateType = "turn_change"
	UpdateDiceResult    UpdateType = "dice_result"
	UpdateMoveEvent     UpdateType = "move_event"
	UpdateAssetPurchase UpdateType = "asset_purchase"
	UpdateAssetReturn   UpdateType = "asset_return"
	UpdateCardPlayed    UpdateType = "card_played"
	UpdateCardDrawn     UpdateType = "card_drawn"
	UpdateDreamPurchase UpdateType = "dream_purchase"
	UpdateStateSnapshot UpdateType = "state_update"
	UpdateGameEnded     UpdateType = "game_ended"
)

// Update is the broadcast payload. SequenceNumber is per-match monotonic
// with no gaps; consumers use it to detect loss or reordering.
type Update struct {
	MatchID        string     `json:"matchId"`
	Type           UpdateType `json:"type"`
	Data           any        `json:"data"`
	Timestamp      time.Time  `json:"timestamp"`
	SequenceNumber uint64     `json:"sequenceNumber"`
}

// Subscription is one consumer's view of a match's update stream. Updates
// arrive on C in strictly increasing sequence order. C is closed when the
// subscriber cancels, the match stream closes, or the subscriber is dropped
// for falling behind.
type Subscription struct {
	C <-chan Update

	hub     *Hub
	matchID string
	ch      chan Update

	mu            sync.Mutex
	closed        bool
	backpressured bool
}

// Close cancels the subscription. Safe to call at any time and more than
// once; it never affects the match or other subscribers.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.matchID, s, false)
}

// Backpressured reports whether the hub dropped this subscriber for
// exceeding its backlog.
func (s *Subscription) Backpressured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backpressured
}

func (s *Subscription) terminate(backpressured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.backpressured = backpressured
	close(s.ch)
}

// topic is the per-match subscriber set and sequence counter.
type topic struct {
	mu   sync.Mutex
	seq  uint64
	subs map[*Subscription]bool
}

// Hub fans updates out to match subscribers.
type Hub struct {
	logger  *zap.Logger
	backlog int

	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
}

// DefaultBacklog is the per-subscriber buffer used when no backlog is
// configured.
const DefaultBacklog = 64

// NewHub creates a hub whose subscribers each buffer up to backlog updates.
func NewHub(backlog int, logger *zap.Logger) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{
		logger:  logger,
		backlog: backlog,
		topics:  make(map[string]*topic),
	}
}

func (h *Hub) topicFor(matchID string, create bool) *topic {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	t, ok := h.topics[matchID]
	if !ok && create {
		t = &topic{subs: make(map[*Subscription]bool)}
		h.topics[matchID] = t
	}
	return t
}

// Subscribe attaches a new consumer to a match's stream. The first update
// on the channel is a joined sentinel carrying the match's current sequence
// number; there is no replay of history.
func (h *Hub) Subscribe(matchID string) *Subscription {
	ch := make(chan Update, h.backlog)
	sub := &Subscription{C: ch, ch: ch, hub: h, matchID: matchID}

	t := h.topicFor(matchID, true)
	if t == nil {
		sub.terminate(false)
		return sub
	}

	t.mu.Lock()
	t.subs[sub] = true
	ch <- Update{
		MatchID:        matchID,
		Type:           UpdateJoined,
		Timestamp:      time.Now(),
		SequenceNumber: t.seq,
	}
	t.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("subscriber joined", zap.String("match_id", matchID))
	}
	return sub
}

func (h *Hub) unsubscribe(matchID string, sub *Subscription, backpressured bool) {
	t := h.topicFor(matchID, false)
	if t != nil {
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
	}
	sub.terminate(backpressured)
}

// Publish assigns the next sequence number for the match and delivers the
// update to every subscriber. A subscriber whose buffer is full is dropped
// rather than blocking the match or its peers. Publish returns the update
// with its assigned sequence number.
func (h *Hub) Publish(matchID string, update Update) Update {
	t := h.topicFor(matchID, true)
	if t == nil {
		return update
	}

	t.mu.Lock()
	t.seq++
	update.SequenceNumber = t.seq
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	var dropped []*Subscription
	for sub := range t.subs {
		select {
		case sub.ch <- update:
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		delete(t.subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range dropped {
		sub.terminate(true)
		if h.logger != nil {
			h.logger.Warn("subscriber dropped for backpressure",
				zap.String("match_id", matchID),
				zap.Uint64("sequence", update.SequenceNumber),
			)
		}
	}
	return update
}

// CloseMatch ends a match's stream, closing every remaining subscription.
func (h *Hub) CloseMatch(matchID string) {
	h.mu.Lock()
	t := h.topics[matchID]
	delete(h.topics, matchID)
	h.mu.Unlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	subs := make([]*Subscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.subs = make(map[*Subscription]bool)
	t.mu.Unlock()

	for _, sub := range subs {
		sub.terminate(false)
	}
}

// Close shuts the hub down, ending every stream.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	topics := h.topics
	h.topics = make(map[string]*topic)
	h.mu.Unlock()

	for _, t := range topics {
		t.mu.Lock()
		subs := make([]*Subscription, 0, len(t.subs))
		for sub := range t.subs {
			subs = append(subs, sub)
		}
		t.subs = make(map[*Subscription]bool)
		t.mu.Unlock()
		for _, sub := range subs {
			sub.terminate(false)
		}
	}
}
