package voice

import (
	"context"
	"time"
)

type JoinVoiceParams struct {
	RoomId   string
	UserId   string
	Username string
	IsMuted  bool
}

type JoinVoiceResponse struct {
	Participants []Participant
}

// JoinVoice registers a user in the room's voice mesh. The response carries
// the participants that were present before this join: the caller dials
// them, while they learn about the newcomer from user_joined_voice.
func (s *service) JoinVoice(ctx context.Context, params *JoinVoiceParams) (JoinVoiceResponse, error) {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	room := s.getOrCreateRoom(params.RoomId)
	existing := participantList(room, params.UserId)

	now := time.Now()
	room[params.UserId] = &participant{
		username:         params.Username,
		isMuted:          params.IsMuted,
		joinedAt:         now,
		lastHeartbeat:    now,
		connectionStates: make(map[string]PeerConnectionState),
	}

	s.logger.InfoContext(ctx, "user joined voice", "room_id", params.RoomId, "user_id", params.UserId)

	for _, p := range existing {
		if err := s.broadcaster.ToUser(ctx, params.RoomId, p.UserId, "user_joined_voice", map[string]any{
			"user_id":  params.UserId,
			"username": params.Username,
			"is_muted": params.IsMuted,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to notify voice peer", "room_id", params.RoomId, "user_id", p.UserId, "error", err)
		}
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "voice_participants", map[string]any{
		"participants": participantList(room, ""),
	})

	return JoinVoiceResponse{Participants: existing}, nil
}

type LeaveVoiceParams struct {
	RoomId string
	UserId string
}

// LeaveVoice removes a user from the mesh. Leaving voice twice, or leaving
// without ever joining, is a no-op: the room-socket disconnect path calls
// this unconditionally.
func (s *service) LeaveVoice(ctx context.Context, params *LeaveVoiceParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	room := s.getRoom(params.RoomId)
	if room == nil {
		return nil
	}
	if _, ok := room[params.UserId]; !ok {
		return nil
	}

	delete(room, params.UserId)
	s.logger.InfoContext(ctx, "user left voice", "room_id", params.RoomId, "user_id", params.UserId)

	s.broadcaster.ToRoom(ctx, params.RoomId, "user_left_voice", map[string]any{"user_id": params.UserId})
	s.broadcaster.ToRoom(ctx, params.RoomId, "voice_participants", map[string]any{
		"participants": participantList(room, ""),
	})

	s.dropRoomIfEmpty(params.RoomId)

	return nil
}

// CleanupRoom drops the whole mesh for a closed room without any per-user
// broadcasts; the sockets are already gone. The caller holds the room's
// lock, so only the rooms map itself needs guarding here.
func (s *service) CleanupRoom(roomId string) {
	s.mu.Lock()
	delete(s.rooms, roomId)
	s.mu.Unlock()
}
