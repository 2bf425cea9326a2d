package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/internal/service/voice"
	"github.com/jamhub/server/pkg/wsrouter"
)

func (c controller) getRoomWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.touchSessionWSMw(c.sessions))
	mux.Use(c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)

	// membership
	wsrouter.Handle(mux, "leave_room", c.handleLeaveRoom)
	wsrouter.Handle(mux, "approve_member", c.handleApproveMember)
	wsrouter.Handle(mux, "reject_member", c.handleRejectMember)
	wsrouter.Handle(mux, "transfer_ownership", c.handleTransferOwnership)

	// profile
	wsrouter.Handle(mux, "update_ready", c.handleUpdateReady)
	wsrouter.Handle(mux, "update_instrument", c.handleUpdateInstrument)

	// jam
	wsrouter.Handle(mux, "chat_message", c.handleChatMessage)
	wsrouter.Handle(mux, "synth_params_update", c.handleSynthParamsUpdate)
	wsrouter.Handle(mux, "metronome_update", c.handleMetronomeUpdate)

	// voice mesh
	wsrouter.Handle(mux, "join_voice", c.handleJoinVoice)
	wsrouter.Handle(mux, "leave_voice", c.handleLeaveVoice)
	wsrouter.Handle(mux, "request_mesh_connections", c.handleRequestMeshConnections)
	wsrouter.Handle(mux, "voice_offer", c.handleVoiceOffer)
	wsrouter.Handle(mux, "voice_answer", c.handleVoiceAnswer)
	wsrouter.Handle(mux, "voice_ice_candidate", c.handleVoiceIceCandidate)
	wsrouter.Handle(mux, "voice_heartbeat", c.handleVoiceHeartbeat)
	wsrouter.Handle(mux, "voice_connection_failed", c.handleVoiceConnectionFailed)

	return mux
}

func (c controller) getPendingWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.touchSessionWSMw(c.approvals))
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)

	return mux
}

func (c controller) getPresenceWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw())
	mux.Use(c.touchSessionWSMw(c.monitors))
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, "alive", c.handleAlive)
	wsrouter.Handle(mux, "list_rooms", c.handleListRooms)

	return mux
}

// handleWSError reports a failed message to its sender only; broadcasts
// never carry another user's failure.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.DebugContext(ctx, "websocket message failed", "message_type", wsrouter.GetMessageTypeFromCtx(ctx), "error", err)

	c.broadcaster.ToConn(ctx, conn, "error", map[string]any{
		"message": wsErrorMessage(err),
	})
}

func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, room.ErrNotPending):
		return "member is not pending approval"
	case errors.Is(err, voice.ErrParticipantNotFound):
		return "not a voice participant"
	case errors.Is(err, ErrValidationError):
		return "validation error"
	default:
		return "internal error"
	}
}
