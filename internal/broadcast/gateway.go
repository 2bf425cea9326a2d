// Package broadcast delivers events to the sockets behind a room's
// namespace. The coordinators decide what to send and to whom; delivery is
// best-effort fan-out and per-connection failures are logged, not returned.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/repository/session"
)

var ErrDeliveryFailed = errors.New("target connection not resolvable")

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type iSessionSource interface {
	GetRoomSessions(roomId string) []session.Session
	FindByUserId(roomId, userId string) (session.Session, error)
	GetAllSessions() []session.Session
}

type Gateway struct {
	rooms     iSessionSource
	approvals iSessionSource
	monitors  iSessionSource
	// gorilla connections do not allow concurrent writers
	mu     sync.Mutex
	logger *slog.Logger
}

func NewGateway(rooms, approvals, monitors iSessionSource, logger *slog.Logger) *Gateway {
	return &Gateway{
		rooms:     rooms,
		approvals: approvals,
		monitors:  monitors,
		logger:    logger,
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, out *Output) error {
	if conn == nil {
		return ErrDeliveryFailed
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := conn.WriteJSON(out); err != nil {
		g.logger.DebugContext(ctx, "failed to write to conn", "event", out.Type, "error", err)
		return err
	}

	return nil
}

// ToRoom fans an event out to every session in the room namespace.
func (g *Gateway) ToRoom(ctx context.Context, roomId, event string, payload any) {
	out := &Output{Type: event, Payload: payload}
	for _, s := range g.rooms.GetRoomSessions(roomId) {
		g.write(ctx, s.Conn, out)
	}
}

// ToApproval fans an event out to the room's pending-member namespace.
func (g *Gateway) ToApproval(ctx context.Context, roomId, event string, payload any) {
	out := &Output{Type: event, Payload: payload}
	for _, s := range g.approvals.GetRoomSessions(roomId) {
		g.write(ctx, s.Conn, out)
	}
}

// ToUser delivers directly to a user's current room-namespace connection.
func (g *Gateway) ToUser(ctx context.Context, roomId, userId, event string, payload any) error {
	s, err := g.rooms.FindByUserId(roomId, userId)
	if err != nil {
		return ErrDeliveryFailed
	}

	return g.write(ctx, s.Conn, &Output{Type: event, Payload: payload})
}

// ToApprovalUser delivers directly to a pending member's connection.
func (g *Gateway) ToApprovalUser(ctx context.Context, roomId, userId, event string, payload any) error {
	s, err := g.approvals.FindByUserId(roomId, userId)
	if err != nil {
		return ErrDeliveryFailed
	}

	return g.write(ctx, s.Conn, &Output{Type: event, Payload: payload})
}

// ToConn delivers to a single known connection.
func (g *Gateway) ToConn(ctx context.Context, conn *websocket.Conn, event string, payload any) error {
	return g.write(ctx, conn, &Output{Type: event, Payload: payload})
}

// Global delivers to every presence-monitor session, e.g. lobby clients
// watching the room list.
func (g *Gateway) Global(ctx context.Context, event string, payload any) {
	out := &Output{Type: event, Payload: payload}
	for _, s := range g.monitors.GetAllSessions() {
		g.write(ctx, s.Conn, out)
	}
}

// CloseConn sends a close frame with the given code and closes the socket.
func (g *Gateway) CloseConn(conn *websocket.Conn, code int, reason string) {
	if conn == nil {
		return
	}

	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(5*time.Second))
	conn.Close()
}
