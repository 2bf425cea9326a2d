package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/jamhub/server/internal/repository/room"
)

func (s *service) getMembers(ctx context.Context, roomId string) ([]Member, error) {
	userIds, err := s.roomRepo.GetUserIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(userIds))
	for _, userId := range userIds {
		user, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: roomId, UserId: userId})
		if err != nil {
			return nil, err
		}

		members = append(members, memberFromUser(userId, user))
	}

	return members, nil
}

func (s *service) getPendingMembers(ctx context.Context, roomId string) ([]Member, error) {
	userIds, err := s.roomRepo.GetPendingMemberIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(userIds))
	for _, userId := range userIds {
		user, err := s.roomRepo.GetPendingMember(ctx, &room.GetUserParams{RoomId: roomId, UserId: userId})
		if err != nil {
			return nil, err
		}

		members = append(members, memberFromUser(userId, user))
	}

	return members, nil
}

func (s *service) getRoomState(ctx context.Context, roomId string) (RoomState, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RoomState{}, ErrRoomNotFound
		}
		return RoomState{}, fmt.Errorf("failed to get room: %w", err)
	}

	members, err := s.getMembers(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get member list: %w", err)
	}

	pendingMembers, err := s.getPendingMembers(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get pending list: %w", err)
	}

	return RoomState{
		Id:             roomId,
		Name:           rm.Name,
		OwnerUserId:    rm.OwnerUserId,
		IsPrivate:      rm.IsPrivate,
		IsHidden:       rm.IsHidden,
		RoomType:       rm.RoomType,
		CreatedAt:      rm.CreatedAt,
		Users:          members,
		PendingMembers: pendingMembers,
	}, nil
}

func (s *service) broadcastRoomState(ctx context.Context, roomId string) {
	state, err := s.getRoomState(ctx, roomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to build room state", "error", err)
		return
	}

	s.broadcaster.ToRoom(ctx, roomId, "room_state_updated", map[string]any{"room": state})
}
