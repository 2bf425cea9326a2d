package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/repository/room"
)

type LeaveRoomParams struct {
	RoomId string
	UserId string
	ConnId string
}

// LeaveRoom is an explicit departure: no grace period, and the
// closure-or-transfer evaluation runs synchronously.
func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	user, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: params.UserId})
	if err != nil {
		s.logger.InfoContext(ctx, "leave from unknown user", "room_id", params.RoomId, "user_id", params.UserId)
		return nil
	}

	if err := s.roomRepo.RemoveUserFromRoom(ctx, &room.RemoveUserParams{
		RoomId:      params.RoomId,
		UserId:      params.UserId,
		Intentional: true,
	}); err != nil {
		return fmt.Errorf("failed to remove user from room: %w", err)
	}

	if params.ConnId != "" {
		s.sessions.RemoveSession(params.ConnId)
	} else if sess, err := s.sessions.FindByUserId(params.RoomId, params.UserId); err == nil {
		s.sessions.RemoveSession(sess.ConnId)
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "user_left", map[string]any{"user_id": params.UserId})

	return s.evaluateDeparture(ctx, params.RoomId, params.UserId, user.Role == room.RoleOwner)
}

type DisconnectParams struct {
	RoomId string
	UserId string
	ConnId string
}

// Disconnect handles an unintentional drop of a room-namespace socket. An
// active user enters the grace period with no departure broadcast: a page
// refresh produces a disconnect followed almost immediately by a rejoin,
// and reacting eagerly would flap ownership or close the room under a
// returning user.
func (s *service) Disconnect(ctx context.Context, params *DisconnectParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	userId := params.UserId
	if sess, err := s.sessions.GetSession(params.ConnId); err == nil {
		s.sessions.RemoveSession(params.ConnId)
		userId = sess.UserId
	} else {
		if userId == "" {
			return nil
		}
		// the session was already swept; only proceed if no newer
		// connection took over this identity
		if cur, err := s.sessions.FindByUserId(params.RoomId, userId); err == nil && cur.ConnId != params.ConnId {
			return nil
		}
	}

	user, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: userId})
	if err != nil {
		return nil
	}

	if err := s.roomRepo.RemoveUserFromRoom(ctx, &room.RemoveUserParams{
		RoomId:      params.RoomId,
		UserId:      userId,
		Intentional: false,
	}); err != nil {
		return fmt.Errorf("failed to remove user from room: %w", err)
	}

	expiresAt := time.Now().Add(s.gracePeriod)
	if err := s.roomRepo.AddToGracePeriod(ctx, &room.AddToGracePeriodParams{
		RoomId:    params.RoomId,
		UserId:    userId,
		User:      user,
		ExpiresAt: expiresAt.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to add to grace period: %w", err)
	}

	s.scheduleGraceTimer(params.RoomId, userId)
	s.logger.InfoContext(ctx, "user entered grace period", "room_id", params.RoomId, "user_id", userId, "expires_at", expiresAt)

	return nil
}

func (s *service) graceTimerKey(roomId, userId string) string {
	return roomId + ":" + userId
}

func (s *service) scheduleGraceTimer(roomId, userId string) {
	key := s.graceTimerKey(roomId, userId)

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if timer, ok := s.graceTimers[key]; ok {
		timer.Stop()
	}
	s.graceTimers[key] = time.AfterFunc(s.gracePeriod, func() {
		s.onGraceExpired(roomId, userId)
	})
}

func (s *service) cancelGraceTimer(roomId, userId string) {
	key := s.graceTimerKey(roomId, userId)

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if timer, ok := s.graceTimers[key]; ok {
		timer.Stop()
		delete(s.graceTimers, key)
	}
}

func (s *service) cancelRoomGraceTimers(roomId string) {
	prefix := roomId + ":"

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	for key, timer := range s.graceTimers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(s.graceTimers, key)
		}
	}
}

// onGraceExpired fires after the grace TTL. State is re-validated at fire
// time: a rejoin or explicit leave may have raced the timer, in which case
// the expiry is a no-op.
func (s *service) onGraceExpired(roomId, userId string) {
	ctx := context.Background()

	s.locks.Lock(roomId)
	defer s.locks.Unlock(roomId)

	s.timersMu.Lock()
	delete(s.graceTimers, s.graceTimerKey(roomId, userId))
	s.timersMu.Unlock()

	inGrace, err := s.roomRepo.IsUserInGracePeriod(ctx, roomId, userId)
	if err != nil || !inGrace {
		return
	}

	entry, err := s.roomRepo.GetGracePeriodEntry(ctx, roomId, userId)
	if err != nil {
		return
	}

	if err := s.roomRepo.RemoveFromGracePeriod(ctx, roomId, userId); err != nil {
		s.logger.Info("failed to remove expired grace entry", "room_id", roomId, "user_id", userId, "error", err)
		return
	}

	s.logger.Info("grace period expired", "room_id", roomId, "user_id", userId)
	s.broadcaster.ToRoom(ctx, roomId, "user_left", map[string]any{"user_id": userId})

	if err := s.evaluateDeparture(ctx, roomId, userId, entry.Role == room.RoleOwner); err != nil {
		s.logger.Info("failed to evaluate departure", "room_id", roomId, "user_id", userId, "error", err)
	}
}

// evaluateDeparture runs the closure-or-transfer decision after a user is
// gone for good. Exactly one of: room deletion (now empty) or ownership
// transfer (departed owner, others remain) happens; otherwise the room
// state is simply refreshed.
func (s *service) evaluateDeparture(ctx context.Context, roomId, departedUserId string, wasOwner bool) error {
	shouldClose, err := s.roomRepo.ShouldCloseRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to check room closure: %w", err)
	}

	if shouldClose {
		return s.closeRoom(ctx, roomId)
	}

	if wasOwner {
		userIds, err := s.roomRepo.GetUserIds(ctx, roomId)
		if err != nil {
			return fmt.Errorf("failed to get user ids: %w", err)
		}

		if len(userIds) > 0 {
			newOwnerId := userIds[0]
			if err := s.roomRepo.TransferOwnership(ctx, roomId, newOwnerId); err != nil {
				return fmt.Errorf("failed to transfer ownership: %w", err)
			}

			s.logger.InfoContext(ctx, "ownership transferred", "room_id", roomId, "old_owner_id", departedUserId, "new_owner_id", newOwnerId)
			s.broadcaster.ToRoom(ctx, roomId, "ownership_transferred", map[string]any{
				"new_owner_id": newOwnerId,
				"old_owner_id": departedUserId,
			})
		}
	}

	s.broadcastRoomState(ctx, roomId)

	return nil
}

func (s *service) closeRoom(ctx context.Context, roomId string) error {
	if err := s.roomRepo.DeleteRoom(ctx, roomId); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	s.cancelRoomGraceTimers(roomId)

	s.broadcaster.ToRoom(ctx, roomId, "room_closed", map[string]any{"room_id": roomId})
	s.broadcaster.ToApproval(ctx, roomId, "room_closed", map[string]any{"room_id": roomId})

	for _, sess := range s.sessions.CleanupRoom(roomId) {
		s.broadcaster.CloseConn(sess.Conn, websocket.CloseNormalClosure, "room closed")
	}
	for _, sess := range s.approvalSessions.CleanupRoom(roomId) {
		s.broadcaster.CloseConn(sess.Conn, websocket.CloseNormalClosure, "room closed")
	}

	// the voice mesh dies with the room, in one drop instead of per-user
	// leave broadcasts into an already emptied namespace
	s.voice.CleanupRoom(roomId)

	s.logger.InfoContext(ctx, "room closed", "room_id", roomId)
	s.broadcaster.Global(ctx, "room_closed_broadcast", map[string]any{"room_id": roomId})

	return nil
}
