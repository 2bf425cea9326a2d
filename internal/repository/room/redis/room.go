package redis

import (
	"context"

	"github.com/jamhub/server/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getRoomListKey() string {
	return "rooms"
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	roomKey := r.getRoomKey(params.RoomId)
	pipe.HSet(ctx, roomKey, map[string]any{
		"name":          params.Name,
		"owner_user_id": params.OwnerUserId,
		"is_private":    params.IsPrivate,
		"is_hidden":     params.IsHidden,
		"room_type":     params.RoomType,
		"created_at":    params.CreatedAt,
	})
	pipe.Expire(ctx, roomKey, keyTTL)
	pipe.ZAdd(ctx, r.getRoomListKey(), zMember(float64(params.CreatedAt), params.RoomId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	var rm room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&rm); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	if rm.OwnerUserId == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	return rm, nil
}

func (r repo) SetRoomOwner(ctx context.Context, roomId, ownerUserId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id":       roomId,
		"owner_user_id": ownerUserId,
	})
	if err := r.rc.HSet(ctx, r.getRoomKey(roomId), "owner_user_id", ownerUserId).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) IsRoomOwner(ctx context.Context, roomId, userId string) (bool, error) {
	ownerUserId, err := r.rc.HGet(ctx, r.getRoomKey(roomId), "owner_user_id").Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return ownerUserId == userId, nil
}

// ShouldCloseRoom reports whether no active user remains and nobody is
// waiting out a grace period. A room with only grace-disconnected users must
// survive until their entries expire.
func (r repo) ShouldCloseRoom(ctx context.Context, roomId string) (bool, error) {
	pipe := r.rc.TxPipeline()
	usersCmd := pipe.ZCard(ctx, r.getUserListKey(roomId))
	graceCmd := pipe.ZCard(ctx, r.getGraceListKey(roomId))
	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return usersCmd.Val() == 0 && graceCmd.Val() == 0, nil
}

func (r repo) DeleteRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{"room_id": roomId})

	userIds, err := r.rc.ZRange(ctx, r.getUserListKey(roomId), 0, -1).Result()
	if err != nil {
		return err
	}
	pendingIds, err := r.rc.ZRange(ctx, r.getPendingListKey(roomId), 0, -1).Result()
	if err != nil {
		return err
	}
	graceIds, err := r.rc.ZRange(ctx, r.getGraceListKey(roomId), 0, -1).Result()
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	for _, userId := range userIds {
		pipe.Del(ctx, r.getUserKey(roomId, userId))
	}
	for _, userId := range pendingIds {
		pipe.Del(ctx, r.getPendingMemberKey(roomId, userId))
	}
	for _, userId := range graceIds {
		pipe.Del(ctx, r.getGraceKey(roomId, userId))
	}
	pipe.Del(ctx, r.getUserListKey(roomId))
	pipe.Del(ctx, r.getPendingListKey(roomId))
	pipe.Del(ctx, r.getGraceListKey(roomId))
	pipe.Del(ctx, r.getLeaversKey(roomId))
	pipe.Del(ctx, r.getRoomKey(roomId))
	pipe.ZRem(ctx, r.getRoomListKey(), roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// ListRooms returns non-hidden rooms in creation order.
func (r repo) ListRooms(ctx context.Context) ([]room.RoomListItem, error) {
	roomIds, err := r.rc.ZRange(ctx, r.getRoomListKey(), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	rooms := make([]room.RoomListItem, 0, len(roomIds))
	for _, roomId := range roomIds {
		rm, err := r.GetRoom(ctx, roomId)
		if err != nil {
			// rooms list can briefly reference a room deleted mid-iteration
			continue
		}

		if rm.IsHidden {
			continue
		}

		rooms = append(rooms, room.RoomListItem{RoomId: roomId, Room: rm})
	}

	return rooms, nil
}
