// Package server exposes the match engine over WebSocket and gRPC.
// The WebSocket surface carries the full client protocol: lobby
// operations, action submission and the live update stream. The gRPC
// surface carries health checking for load balancers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/musiliandrew/pesamali-financial-journey/internal/match"
	"github.com/musiliandrew/pesamali-financial-journey/internal/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is the inbound envelope. Type selects the operation;
// the remaining fields are populated per type.
type ClientMessage struct {
	Type      string        `json:"type"`
	MatchID   string        `json:"matchId,omitempty"`
	UserID    string        `json:"userId,omitempty"`
	Seat      int           `json:"seat,omitempty"`
	SeatCount int           `json:"seatCount,omitempty"`
	Action    *match.Action `json:"action,omitempty"`
}

// ServerMessage is the outbound envelope for direct (non-stream)
// responses. Stream updates are forwarded as stream.Update verbatim.
type ServerMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Client is one WebSocket connection. Writes go through send so the
// write pump is the only goroutine touching the connection.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[string]*stream.Subscription
	closed bool
}

// enqueue hands raw to the write pump. Returns false once the client is
// gone or its buffer is full.
func (c *Client) enqueue(raw []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- raw:
		return true
	default:
		return false
	}
}

// WebSocketServer bridges connections to the match manager.
type WebSocketServer struct {
	manager *match.Manager
	logger  *zap.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewWebSocketServer creates the bridge. It does not listen; mount
// Handler on an http.Server.
func NewWebSocketServer(manager *match.Manager, logger *zap.Logger) *WebSocketServer {
	return &WebSocketServer{
		manager: manager,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Handler upgrades the request and starts the connection pumps.
func (s *WebSocketServer) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: s.logger,
		subs:   make(map[string]*stream.Subscription),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	go client.writePump()
	go s.readPump(client)
}

// Shutdown closes every open connection.
func (s *WebSocketServer) Shutdown() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (s *WebSocketServer) unregister(client *Client) {
	client.mu.Lock()
	for _, sub := range client.subs {
		sub.Close()
	}
	client.subs = nil
	alreadyClosed := client.closed
	client.closed = true
	client.mu.Unlock()

	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()

	if !alreadyClosed {
		close(client.send)
	}
}

func (s *WebSocketServer) readPump(client *Client) {
	defer func() {
		s.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.reply(ServerMessage{Type: "error", Error: "malformed message"})
			continue
		}

		s.handleMessage(client, msg)
	}
}

func (s *WebSocketServer) handleMessage(client *Client, msg ClientMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "create_match":
		id, err := s.manager.CreateMatch(ctx, msg.SeatCount)
		if err != nil {
			client.replyError(msg, err)
			return
		}
		client.reply(ServerMessage{Type: "match_created", MatchID: id})

	case "join_match":
		if err := s.manager.Join(ctx, msg.MatchID, msg.UserID, msg.Seat, false); err != nil {
			client.replyError(msg, err)
			return
		}
		client.reply(ServerMessage{Type: "joined", MatchID: msg.MatchID})

	case "start_match":
		if err := s.manager.Start(ctx, msg.MatchID); err != nil {
			client.replyError(msg, err)
		}

	case "subscribe":
		s.subscribe(client, msg.MatchID)

	case "unsubscribe":
		client.mu.Lock()
		if sub, ok := client.subs[msg.MatchID]; ok {
			sub.Close()
			delete(client.subs, msg.MatchID)
		}
		client.mu.Unlock()

	case "action":
		if msg.Action == nil {
			client.reply(ServerMessage{Type: "error", MatchID: msg.MatchID, Error: "action payload required"})
			return
		}
		action := *msg.Action
		if action.UserID == "" {
			action.UserID = msg.UserID
		}
		if _, err := s.manager.Submit(ctx, msg.MatchID, action); err != nil {
			client.replyError(msg, err)
		}
		// Accepted actions reach the client through its subscription.

	case "snapshot":
		snap, err := s.manager.Snapshot(msg.MatchID)
		if err != nil {
			client.replyError(msg, err)
			return
		}
		client.reply(ServerMessage{Type: "snapshot", MatchID: msg.MatchID, Data: snap})

	case "abandon":
		if err := s.manager.Abandon(ctx, msg.MatchID); err != nil {
			client.replyError(msg, err)
		}

	default:
		client.reply(ServerMessage{Type: "error", Error: "unknown message type: " + msg.Type})
	}
}

func (s *WebSocketServer) subscribe(client *Client, matchID string) {
	client.mu.Lock()
	if _, ok := client.subs[matchID]; ok {
		client.mu.Unlock()
		return
	}
	client.mu.Unlock()

	sub, err := s.manager.Subscribe(matchID)
	if err != nil {
		client.replyError(ClientMessage{MatchID: matchID}, err)
		return
	}

	client.mu.Lock()
	if client.subs == nil {
		client.mu.Unlock()
		sub.Close()
		return
	}
	client.subs[matchID] = sub
	client.mu.Unlock()

	go s.forward(client, matchID, sub)
}

// forward relays one subscription to the connection, preserving the
// hub's sequence order.
func (s *WebSocketServer) forward(client *Client, matchID string, sub *stream.Subscription) {
	for update := range sub.C {
		raw, err := json.Marshal(update)
		if err != nil {
			s.logger.Error("marshal stream update", zap.Error(err))
			continue
		}
		if !client.enqueue(raw) {
			// The connection cannot keep up; drop it rather than stall
			// the stream.
			s.logger.Warn("websocket client overflow",
				zap.String("match_id", matchID),
			)
			client.conn.Close()
			return
		}
	}

	if sub.Backpressured() {
		client.reply(ServerMessage{
			Type:    "stream_lost",
			MatchID: matchID,
			Error:   "subscriber too slow, resubscribe for current state",
		})
	}
}

func (c *Client) reply(msg ServerMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal reply", zap.Error(err))
		return
	}
	c.enqueue(raw)
}

func (c *Client) replyError(msg ClientMessage, err error) {
	kind := "internal"
	switch {
	case errors.Is(err, match.ErrMatchNotFound):
		kind = "not_found"
	case match.IsTerminal(err):
		kind = "match_ended"
	case match.IsRuleViolation(err):
		kind = "rule_violation"
	case match.IsValidation(err):
		kind = "invalid_request"
	}
	c.reply(ServerMessage{
		Type:    "error",
		MatchID: msg.MatchID,
		Error:   kind + ": " + err.Error(),
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
