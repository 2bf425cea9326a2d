package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamhub/server/internal/repository/room"
)

type TransferOwnershipParams struct {
	RoomId     string
	SenderId   string
	NewOwnerId string
}

// TransferOwnership hands the owner role to another active user on the
// current owner's request.
func (s *service) TransferOwnership(ctx context.Context, params *TransferOwnershipParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.checkIsOwner(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	if params.NewOwnerId == params.SenderId {
		return nil
	}

	if err := s.roomRepo.TransferOwnership(ctx, params.RoomId, params.NewOwnerId); err != nil {
		if errors.Is(err, room.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "transfer to unknown user", "room_id", params.RoomId, "user_id", params.NewOwnerId)
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "ownership_transferred", map[string]any{
		"new_owner_id": params.NewOwnerId,
		"old_owner_id": params.SenderId,
	})
	s.broadcastRoomState(ctx, params.RoomId)

	return nil
}
