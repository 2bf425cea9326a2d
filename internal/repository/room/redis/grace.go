package redis

import (
	"context"
	"time"

	"github.com/jamhub/server/internal/repository/room"
)

// graceKeyBuffer keeps the redis-side expiry slightly behind the logical
// one so the coordinator's timer always wins the race.
const graceKeyBuffer = 10 * time.Second

func (r repo) getGraceKey(roomId, userId string) string {
	return "room:" + roomId + ":grace:" + userId
}

func (r repo) getGraceListKey(roomId string) string {
	return "room:" + roomId + ":gracelist"
}

func (r repo) AddToGracePeriod(ctx context.Context, params *room.AddToGracePeriodParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	graceKey := r.getGraceKey(params.RoomId, params.UserId)
	pipe.HSet(ctx, graceKey, map[string]any{
		"username":            params.User.Username,
		"role":                string(params.User.Role),
		"is_ready":            params.User.IsReady,
		"instrument":          params.User.Instrument,
		"instrument_category": params.User.InstrumentCategory,
		"expires_at":          params.ExpiresAt,
	})
	pipe.PExpireAt(ctx, graceKey, time.UnixMilli(params.ExpiresAt).Add(graceKeyBuffer))
	pipe.ZAdd(ctx, r.getGraceListKey(params.RoomId), zMember(float64(params.ExpiresAt), params.UserId))
	pipe.Expire(ctx, r.getGraceListKey(params.RoomId), keyTTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) IsUserInGracePeriod(ctx context.Context, roomId, userId string) (bool, error) {
	exists, err := r.rc.Exists(ctx, r.getGraceKey(roomId, userId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return exists == 1, nil
}

func (r repo) GetGracePeriodEntry(ctx context.Context, roomId, userId string) (room.GracePeriodEntry, error) {
	var entry room.GracePeriodEntry
	if err := r.rc.HGetAll(ctx, r.getGraceKey(roomId, userId)).Scan(&entry); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.GracePeriodEntry{}, err
	}

	if entry.Username == "" {
		return room.GracePeriodEntry{}, room.ErrGracePeriodNotFound
	}

	return entry, nil
}

func (r repo) RemoveFromGracePeriod(ctx context.Context, roomId, userId string) error {
	r.logger.DebugContext(ctx, "called", "params", map[string]any{
		"room_id": roomId,
		"user_id": userId,
	})
	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, r.getGraceListKey(roomId), userId)
	pipe.Del(ctx, r.getGraceKey(roomId, userId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
