package redis

import (
	"context"
	"time"

	"github.com/jamhub/server/internal/repository/room"
)

func (r repo) getPendingMemberKey(roomId, userId string) string {
	return "room:" + roomId + ":pending:" + userId
}

func (r repo) getPendingListKey(roomId string) string {
	return "room:" + roomId + ":pendinglist"
}

func (r repo) AddPendingMember(ctx context.Context, params *room.AddPendingMemberParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	pendingKey := r.getPendingMemberKey(params.RoomId, params.UserId)
	pipe.HSet(ctx, pendingKey, map[string]any{
		"username": params.Username,
		"role":     string(params.Role),
	})
	pipe.Expire(ctx, pendingKey, keyTTL)
	pipe.ZAdd(ctx, r.getPendingListKey(params.RoomId), zMember(float64(time.Now().UnixNano()), params.UserId))
	pipe.Expire(ctx, r.getPendingListKey(params.RoomId), keyTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetPendingMember(ctx context.Context, params *room.GetUserParams) (room.User, error) {
	var user room.User
	if err := r.rc.HGetAll(ctx, r.getPendingMemberKey(params.RoomId, params.UserId)).Scan(&user); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.User{}, err
	}

	if user.Username == "" {
		return room.User{}, room.ErrPendingMemberNotFound
	}

	return user, nil
}

// GetPendingMemberIds returns pending member ids in request order.
func (r repo) GetPendingMemberIds(ctx context.Context, roomId string) ([]string, error) {
	userIds, err := r.rc.ZRange(ctx, r.getPendingListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return userIds, nil
}

func (r repo) RemovePendingMember(ctx context.Context, roomId, userId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
		"user_id": userId,
	})
	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, r.getPendingListKey(roomId), userId)
	pipe.Del(ctx, r.getPendingMemberKey(roomId, userId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// ApproveMember moves a pending member into the user list with the role the
// request carried.
func (r repo) ApproveMember(ctx context.Context, roomId, userId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
		"user_id": userId,
	})

	pending, err := r.GetPendingMember(ctx, &room.GetUserParams{RoomId: roomId, UserId: userId})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if err := r.RemovePendingMember(ctx, roomId, userId); err != nil {
		return err
	}

	return r.AddUserToRoom(ctx, &room.AddUserParams{
		RoomId:   roomId,
		UserId:   userId,
		Username: pending.Username,
		Role:     pending.Role,
	})
}

// RejectMember discards a pending join request.
func (r repo) RejectMember(ctx context.Context, roomId, userId string) error {
	return r.RemovePendingMember(ctx, roomId, userId)
}
