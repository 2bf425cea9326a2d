package redis

import (
	"context"
	"time"

	"github.com/jamhub/server/internal/repository/room"
)

func (r repo) getUserKey(roomId, userId string) string {
	return "room:" + roomId + ":user:" + userId
}

func (r repo) getUserListKey(roomId string) string {
	return "room:" + roomId + ":userlist"
}

func (r repo) getLeaversKey(roomId string) string {
	return "room:" + roomId + ":leavers"
}

func (r repo) AddUserToRoom(ctx context.Context, params *room.AddUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	userKey := r.getUserKey(params.RoomId, params.UserId)
	pipe.HSet(ctx, userKey, map[string]any{
		"username":            params.Username,
		"role":                string(params.Role),
		"is_ready":            params.IsReady,
		"instrument":          params.Instrument,
		"instrument_category": params.InstrumentCategory,
	})
	pipe.Expire(ctx, userKey, keyTTL)
	pipe.ZAdd(ctx, r.getUserListKey(params.RoomId), zMember(float64(time.Now().UnixNano()), params.UserId))
	pipe.Expire(ctx, r.getUserListKey(params.RoomId), keyTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetUser(ctx context.Context, params *room.GetUserParams) (room.User, error) {
	var user room.User
	if err := r.rc.HGetAll(ctx, r.getUserKey(params.RoomId, params.UserId)).Scan(&user); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.User{}, err
	}

	if user.Username == "" {
		return room.User{}, room.ErrUserNotFound
	}

	return user, nil
}

// GetUserIds returns user ids in join order.
func (r repo) GetUserIds(ctx context.Context, roomId string) ([]string, error) {
	userIds, err := r.rc.ZRange(ctx, r.getUserListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return userIds, nil
}

func (r repo) RemoveUserFromRoom(ctx context.Context, params *room.RemoveUserParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	pipe.ZRem(ctx, r.getUserListKey(params.RoomId), params.UserId)
	pipe.Del(ctx, r.getUserKey(params.RoomId, params.UserId))
	if params.Intentional {
		pipe.SAdd(ctx, r.getLeaversKey(params.RoomId), params.UserId)
		pipe.Expire(ctx, r.getLeaversKey(params.RoomId), keyTTL)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) WasIntentionalLeaver(ctx context.Context, roomId, userId string) (bool, error) {
	wasLeaver, err := r.rc.SIsMember(ctx, r.getLeaversKey(roomId), userId).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return wasLeaver, nil
}

func (r repo) updateUserField(ctx context.Context, roomId, userId, field string, value any) error {
	key := r.getUserKey(roomId, userId)
	exists, err := r.rc.Exists(ctx, key).Result()
	if err != nil {
		return err
	}

	if exists == 0 {
		return room.ErrUserNotFound
	}

	return r.rc.HSet(ctx, key, field, value).Err()
}

func (r repo) UpdateUserIsReady(ctx context.Context, roomId, userId string, isReady bool) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id":  roomId,
		"user_id":  userId,
		"is_ready": isReady,
	})
	if err := r.updateUserField(ctx, roomId, userId, "is_ready", isReady); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateUserInstrument(ctx context.Context, roomId, userId, instrument, category string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id":             roomId,
		"user_id":             userId,
		"instrument":          instrument,
		"instrument_category": category,
	})
	key := r.getUserKey(roomId, userId)
	exists, err := r.rc.Exists(ctx, key).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if exists == 0 {
		return room.ErrUserNotFound
	}

	if err := r.rc.HSet(ctx, key, "instrument", instrument, "instrument_category", category).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) UpdateUserRole(ctx context.Context, roomId, userId string, role room.Role) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
		"user_id": userId,
		"role":    role,
	})
	if err := r.updateUserField(ctx, roomId, userId, "role", string(role)); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// TransferOwnership reassigns the owner role atomically so there is never a
// settled instant with two owners.
func (r repo) TransferOwnership(ctx context.Context, roomId, newOwnerId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id":      roomId,
		"new_owner_id": newOwnerId,
	})

	oldOwnerId, err := r.rc.HGet(ctx, r.getRoomKey(roomId), "owner_user_id").Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	exists, err := r.rc.Exists(ctx, r.getUserKey(roomId, newOwnerId)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return room.ErrUserNotFound
	}

	demoteOldOwner := false
	if oldOwnerId != "" && oldOwnerId != newOwnerId {
		// the old owner keeps band membership only if still in the room
		oldExists, err := r.rc.Exists(ctx, r.getUserKey(roomId, oldOwnerId)).Result()
		if err != nil {
			return err
		}
		demoteOldOwner = oldExists == 1
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, r.getRoomKey(roomId), "owner_user_id", newOwnerId)
	pipe.HSet(ctx, r.getUserKey(roomId, newOwnerId), "role", string(room.RoleOwner))
	if demoteOldOwner {
		pipe.HSet(ctx, r.getUserKey(roomId, oldOwnerId), "role", string(room.RoleBandMember))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
