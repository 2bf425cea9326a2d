package voice

import (
	"context"
	"time"
)

type HeartbeatParams struct {
	RoomId           string
	UserId           string
	ConnectionStates map[string]PeerConnectionState
}

// Heartbeat records the reporter's liveness and its view of each peer
// connection. A peer reported as failed or disconnected is told to attempt
// recovery; actually tearing the mesh down is left to the stale sweep.
func (s *service) Heartbeat(ctx context.Context, params *HeartbeatParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	room := s.getRoom(params.RoomId)
	if room == nil {
		return ErrParticipantNotFound
	}
	p, ok := room[params.UserId]
	if !ok {
		return ErrParticipantNotFound
	}

	p.lastHeartbeat = time.Now()
	p.connectionStates = make(map[string]PeerConnectionState, len(params.ConnectionStates))

	for peerId, state := range params.ConnectionStates {
		p.connectionStates[peerId] = state

		if state.ConnectionState != "failed" && state.ConnectionState != "disconnected" {
			continue
		}
		if _, present := room[peerId]; !present {
			continue
		}

		if err := s.broadcaster.ToUser(ctx, params.RoomId, peerId, "voice_connection_failed", map[string]any{
			"user_id": params.UserId,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to notify failed peer", "room_id", params.RoomId, "user_id", peerId, "error", err)
		}
	}

	return nil
}

type RequestReconnectionParams struct {
	RoomId       string
	FromUserId   string
	TargetUserId string
}

// RequestReconnection relays a client-side failure report to the peer the
// reporter wants a fresh negotiation with.
func (s *service) RequestReconnection(ctx context.Context, params *RequestReconnectionParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	room := s.getRoom(params.RoomId)
	if room == nil {
		return ErrParticipantNotFound
	}
	if _, ok := room[params.TargetUserId]; !ok {
		return ErrParticipantNotFound
	}

	if err := s.broadcaster.ToUser(ctx, params.RoomId, params.TargetUserId, "voice_reconnection_requested", map[string]any{
		"user_id": params.FromUserId,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to request reconnection", "room_id", params.RoomId, "target_user_id", params.TargetUserId, "error", err)
	}

	return nil
}
