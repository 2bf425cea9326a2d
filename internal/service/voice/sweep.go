package voice

import (
	"context"
	"time"
)

// StaleSweep evicts participants whose heartbeats stopped without a clean
// disconnect, such as a crashed tab whose socket lingered. Eviction looks
// exactly like a voluntary leave to the rest of the room. Returns the
// number of evicted participants.
func (s *service) StaleSweep(ctx context.Context) int {
	now := time.Now()
	evicted := 0

	for _, roomId := range s.roomIds() {
		evicted += s.sweepRoom(ctx, roomId, now)
	}

	return evicted
}

func (s *service) sweepRoom(ctx context.Context, roomId string, now time.Time) int {
	s.locks.Lock(roomId)
	defer s.locks.Unlock(roomId)

	room := s.getRoom(roomId)
	if room == nil {
		return 0
	}

	stale := make([]string, 0)
	for userId, p := range room {
		if s.health.IsStale(p.joinedAt, p.lastHeartbeat, now) {
			stale = append(stale, userId)
		}
	}

	for _, userId := range stale {
		delete(room, userId)
		s.logger.InfoContext(ctx, "evicted stale voice participant", "room_id", roomId, "user_id", userId)
		s.broadcaster.ToRoom(ctx, roomId, "user_left_voice", map[string]any{"user_id": userId})
	}

	if len(stale) > 0 {
		s.broadcaster.ToRoom(ctx, roomId, "voice_participants", map[string]any{
			"participants": participantList(room, ""),
		})
	}

	s.dropRoomIfEmpty(roomId)

	return len(stale)
}
