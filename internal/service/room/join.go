package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/repository/room"
	"github.com/jamhub/server/internal/repository/session"
)

type JoinRoomParams struct {
	RoomId   string
	UserId   string
	Username string
	Role     room.Role
	ConnId   string
	Conn     *websocket.Conn
}

type JoinRoomResponse struct {
	Status    JoinStatus
	UserId    string
	RoomState RoomState
}

// JoinRoom resolves a connection into room membership. Three outcomes:
// immediate join, rejoin from a grace period, or pending approval for
// private rooms.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	userId := params.UserId
	if userId == "" {
		userId = uuid.NewString()
	}

	inGrace, err := s.roomRepo.IsUserInGracePeriod(ctx, params.RoomId, userId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check grace period: %w", err)
	}
	if inGrace {
		return s.rejoinFromGrace(ctx, params, userId)
	}

	// an identity that is already an active member reattaches as-is. This is
	// how an approved member enters the room namespace after the approval
	// verdict, and how a reopened tab reclaims its seat: the private-room
	// gate below must never see them, or an active user would be pushed back
	// into pending approval.
	if _, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: userId}); err == nil {
		return s.reattachActive(ctx, params, userId)
	}

	if userId != rm.OwnerUserId && rm.IsPrivate {
		wasLeaver, err := s.roomRepo.WasIntentionalLeaver(ctx, params.RoomId, userId)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to check leaver status: %w", err)
		}

		if params.Role == room.RoleBandMember || wasLeaver {
			return s.requestApproval(ctx, params, userId)
		}
	}

	role := params.Role
	if userId == rm.OwnerUserId {
		role = room.RoleOwner
	} else if role == "" || role == room.RoleOwner {
		role = room.RoleAudience
	}

	if err := s.roomRepo.AddUserToRoom(ctx, &room.AddUserParams{
		RoomId:   params.RoomId,
		UserId:   userId,
		Username: params.Username,
		Role:     role,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add user to room: %w", err)
	}

	s.attachSession(params, userId)

	state, err := s.getRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	joined := memberFromUser(userId, room.User{Username: params.Username, Role: role})
	s.broadcaster.ToRoom(ctx, params.RoomId, "user_joined", map[string]any{"user": joined})
	s.broadcaster.ToRoom(ctx, params.RoomId, "room_state_updated", map[string]any{"room": state})

	return JoinRoomResponse{
		Status:    StatusJoined,
		UserId:    userId,
		RoomState: state,
	}, nil
}

// rejoinFromGrace restores the snapshot taken at disconnect time: same
// role, same instrument, and no user_left was ever broadcast in between.
func (s *service) rejoinFromGrace(ctx context.Context, params *JoinRoomParams, userId string) (JoinRoomResponse, error) {
	entry, err := s.roomRepo.GetGracePeriodEntry(ctx, params.RoomId, userId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get grace period entry: %w", err)
	}

	if err := s.roomRepo.RemoveFromGracePeriod(ctx, params.RoomId, userId); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to remove from grace period: %w", err)
	}
	s.cancelGraceTimer(params.RoomId, userId)

	snapshot := entry.User()
	if err := s.roomRepo.AddUserToRoom(ctx, &room.AddUserParams{
		RoomId:             params.RoomId,
		UserId:             userId,
		Username:           snapshot.Username,
		Role:               snapshot.Role,
		IsReady:            snapshot.IsReady,
		Instrument:         snapshot.Instrument,
		InstrumentCategory: snapshot.InstrumentCategory,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to restore user: %w", err)
	}

	s.attachSession(params, userId)

	state, err := s.getRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "user rejoined within grace period", "room_id", params.RoomId, "user_id", userId)
	s.broadcaster.ToRoom(ctx, params.RoomId, "room_state_updated", map[string]any{"room": state})

	return JoinRoomResponse{
		Status:    StatusRejoined,
		UserId:    userId,
		RoomState: state,
	}, nil
}

// reattachActive binds a fresh connection to an existing active member.
// Membership does not change and nothing is broadcast; the previous
// connection, if any, is superseded.
func (s *service) reattachActive(ctx context.Context, params *JoinRoomParams, userId string) (JoinRoomResponse, error) {
	s.attachSession(params, userId)

	state, err := s.getRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "active member reattached", "room_id", params.RoomId, "user_id", userId)

	return JoinRoomResponse{
		Status:    StatusRejoined,
		UserId:    userId,
		RoomState: state,
	}, nil
}

func (s *service) requestApproval(ctx context.Context, params *JoinRoomParams, userId string) (JoinRoomResponse, error) {
	role := params.Role
	if role == "" {
		role = room.RoleAudience
	}

	if err := s.roomRepo.AddPendingMember(ctx, &room.AddPendingMemberParams{
		RoomId:   params.RoomId,
		UserId:   userId,
		Username: params.Username,
		Role:     role,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add pending member: %w", err)
	}

	superseded, hadPrior := s.approvalSessions.SetSession(&session.SetSessionParams{
		ConnId:        params.ConnId,
		RoomId:        params.RoomId,
		UserId:        userId,
		NamespacePath: session.ApprovalNamespace(params.RoomId),
		Conn:          params.Conn,
	})
	if hadPrior {
		s.broadcaster.CloseConn(superseded.Conn, websocket.ClosePolicyViolation, "superseded")
	}

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err == nil {
		requester := memberFromUser(userId, room.User{Username: params.Username, Role: role})
		if err := s.broadcaster.ToUser(ctx, params.RoomId, rm.OwnerUserId, "pending_member_added", map[string]any{"user": requester}); err != nil {
			s.logger.InfoContext(ctx, "owner not reachable for pending notification", "room_id", params.RoomId)
		}
	}

	pendingMembers, err := s.getPendingMembers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}
	s.broadcaster.ToRoom(ctx, params.RoomId, "pending_members_updated", map[string]any{"pending_members": pendingMembers})

	return JoinRoomResponse{
		Status: StatusPending,
		UserId: userId,
	}, nil
}

// attachSession binds the new connection to the identity, superseding any
// previous connection this user held in the room.
func (s *service) attachSession(params *JoinRoomParams, userId string) {
	superseded, hadPrior := s.sessions.SetSession(&session.SetSessionParams{
		ConnId:        params.ConnId,
		RoomId:        params.RoomId,
		UserId:        userId,
		NamespacePath: session.RoomNamespace(params.RoomId),
		Conn:          params.Conn,
	})
	if hadPrior {
		s.broadcaster.CloseConn(superseded.Conn, websocket.ClosePolicyViolation, "superseded")
	}
}
