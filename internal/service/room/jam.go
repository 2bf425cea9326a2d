package room

import (
	"context"
	"time"

	"github.com/jamhub/server/internal/repository/room"
)

type SendChatMessageParams struct {
	RoomId   string
	SenderId string
	Message  string
}

// SendChatMessage relays a chat line to the room. The username is resolved
// server side so a client cannot speak as someone else.
func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) error {
	user, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: params.SenderId})
	if err != nil {
		s.logger.InfoContext(ctx, "chat message from unknown user", "room_id", params.RoomId, "user_id", params.SenderId)
		return ErrUserNotFound
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "new_chat_message", map[string]any{
		"user_id":  params.SenderId,
		"username": user.Username,
		"message":  params.Message,
		"sent_at":  time.Now().UnixMilli(),
	})

	return nil
}

type UpdateMetronomeParams struct {
	RoomId    string
	SenderId  string
	Bpm       int
	IsPlaying bool
}

// UpdateMetronome is owner only: a shared click track with two conductors
// is worse than none.
func (s *service) UpdateMetronome(ctx context.Context, params *UpdateMetronomeParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.checkIsOwner(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "metronome_updated", map[string]any{
		"bpm":        params.Bpm,
		"is_playing": params.IsPlaying,
		"updated_at": time.Now().UnixMilli(),
	})

	return nil
}
