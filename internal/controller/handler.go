package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	roomrepo "github.com/jamhub/server/internal/repository/room"
	"github.com/jamhub/server/internal/repository/session"
	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/internal/service/voice"
)

// joinRoom upgrades the socket and resolves it into room membership. The
// same endpoint serves approved members and pending requesters; the join
// outcome decides which message surface the connection gets.
func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userId := r.URL.Query().Get("user-id")
	username := r.URL.Query().Get("username")
	role := r.URL.Query().Get("role")

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()

	joinResp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomId:   roomId,
		UserId:   userId,
		Username: username,
		Role:     roomrepo.Role(role),
		ConnId:   connId,
		Conn:     conn,
	})
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to join room", "room_id", roomId, "error", err)
		c.broadcaster.ToConn(r.Context(), conn, "error", map[string]any{"message": joinErrorMessage(err)})
		conn.Close()
		return
	}

	if joinResp.Status == room.StatusPending {
		c.servePendingConn(r.Context(), conn, roomId, joinResp.UserId, connId)
		return
	}

	if err := c.broadcaster.ToConn(r.Context(), conn, "joined_room", map[string]any{
		"status":  joinResp.Status,
		"user_id": joinResp.UserId,
		"room":    joinResp.RoomState,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to confirm join", "room_id", roomId, "error", err)
	}

	ctx := context.WithValue(r.Context(), roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, userIdCtxKey, joinResp.UserId)
	ctx = context.WithValue(ctx, connIdCtxKey, connId)

	if err := c.roomMux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "room conn closed", "room_id", roomId, "user_id", joinResp.UserId, "error", err)
	}

	// the socket is gone: drop the voice seat immediately, membership gets
	// the grace period
	if err := c.voiceService.LeaveVoice(ctx, &voice.LeaveVoiceParams{RoomId: roomId, UserId: joinResp.UserId}); err != nil {
		c.logger.WarnContext(ctx, "failed to leave voice on disconnect", "room_id", roomId, "error", err)
	}
	if err := c.roomService.Disconnect(ctx, &room.DisconnectParams{RoomId: roomId, UserId: joinResp.UserId, ConnId: connId}); err != nil {
		c.logger.WarnContext(ctx, "failed to handle disconnect", "room_id", roomId, "error", err)
	}
}

// servePendingConn parks a pending member's socket until the owner decides.
// The connection only carries keepalives and the approval verdict pushed by
// the coordinator.
func (c controller) servePendingConn(ctx context.Context, conn *websocket.Conn, roomId, userId, connId string) {
	if err := c.broadcaster.ToConn(ctx, conn, "approval_pending", map[string]any{
		"room_id": roomId,
		"user_id": userId,
	}); err != nil {
		c.logger.DebugContext(ctx, "failed to confirm pending state", "room_id", roomId, "error", err)
	}

	serveCtx := context.WithValue(ctx, roomIdCtxKey, roomId)
	serveCtx = context.WithValue(serveCtx, userIdCtxKey, userId)
	serveCtx = context.WithValue(serveCtx, connIdCtxKey, connId)

	if err := c.pendingMux.ServeConn(serveCtx, conn); err != nil {
		c.logger.DebugContext(serveCtx, "pending conn closed", "room_id", roomId, "user_id", userId, "error", err)
	}

	if err := c.roomService.CancelPending(serveCtx, &room.CancelPendingParams{RoomId: roomId, ConnId: connId}); err != nil {
		c.logger.WarnContext(serveCtx, "failed to cancel pending request", "room_id", roomId, "error", err)
	}
}

// presence serves lobby clients watching the room list. They get the list on
// connect and room_closed_broadcast pushes afterwards.
func (c controller) presence(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connId := uuid.NewString()
	c.monitors.SetSession(&session.SetSessionParams{
		ConnId:        connId,
		UserId:        connId,
		NamespacePath: session.PresenceNamespace,
		Conn:          conn,
	})

	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to list rooms for presence client", "error", err)
	} else if err := c.broadcaster.ToConn(r.Context(), conn, "rooms", map[string]any{"rooms": rooms}); err != nil {
		c.logger.DebugContext(r.Context(), "failed to send initial room list", "error", err)
	}

	ctx := context.WithValue(r.Context(), connIdCtxKey, connId)
	if err := c.presenceMux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "presence conn closed", "error", err)
	}

	c.monitors.RemoveSession(connId)
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	default:
		return "failed to join room"
	}
}
