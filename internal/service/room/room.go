package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamhub/server/internal/repository/room"
)

type CreateRoomParams struct {
	Name      string
	IsPrivate bool
	IsHidden  bool
	RoomType  string
}

type CreateRoomResponse struct {
	RoomId      string
	OwnerUserId string
}

// CreateRoom registers a new room. The creator becomes its owner and joins
// over the websocket endpoint afterwards.
func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId := uuid.NewString()
	ownerUserId := uuid.NewString()

	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:      roomId,
		Name:        params.Name,
		OwnerUserId: ownerUserId,
		IsPrivate:   params.IsPrivate,
		IsHidden:    params.IsHidden,
		RoomType:    params.RoomType,
		CreatedAt:   time.Now().Unix(),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "owner_user_id", ownerUserId)

	return CreateRoomResponse{
		RoomId:      roomId,
		OwnerUserId: ownerUserId,
	}, nil
}

func (s *service) ListRooms(ctx context.Context) ([]room.RoomListItem, error) {
	rooms, err := s.roomRepo.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return rooms, nil
}

func (s *service) GetRoomState(ctx context.Context, roomId string) (RoomState, error) {
	s.locks.Lock(roomId)
	defer s.locks.Unlock(roomId)

	return s.getRoomState(ctx, roomId)
}
