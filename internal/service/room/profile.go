package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamhub/server/internal/repository/room"
)

type UpdateIsReadyParams struct {
	RoomId   string
	SenderId string
	IsReady  bool
}

func (s *service) UpdateIsReady(ctx context.Context, params *UpdateIsReadyParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.roomRepo.UpdateUserIsReady(ctx, params.RoomId, params.SenderId, params.IsReady); err != nil {
		if errors.Is(err, room.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "ready update from unknown user", "room_id", params.RoomId, "user_id", params.SenderId)
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update is ready: %w", err)
	}

	s.broadcastRoomState(ctx, params.RoomId)

	return nil
}

type UpdateInstrumentParams struct {
	RoomId             string
	SenderId           string
	Instrument         string
	InstrumentCategory string
}

func (s *service) UpdateInstrument(ctx context.Context, params *UpdateInstrumentParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.roomRepo.UpdateUserInstrument(ctx, params.RoomId, params.SenderId, params.Instrument, params.InstrumentCategory); err != nil {
		if errors.Is(err, room.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "instrument update from unknown user", "room_id", params.RoomId, "user_id", params.SenderId)
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update instrument: %w", err)
	}

	s.broadcastRoomState(ctx, params.RoomId)

	return nil
}
