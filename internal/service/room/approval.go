package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/repository/room"
)

// checkIsOwner guards owner-only actions. Socket events are racy by nature,
// so a failed check is an expected condition, not a fault.
func (s *service) checkIsOwner(ctx context.Context, roomId, senderId string) error {
	isOwner, err := s.roomRepo.IsRoomOwner(ctx, roomId, senderId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to resolve room owner", "room_id", roomId, "error", err)
		return ErrRoomNotFound
	}

	if !isOwner {
		s.logger.InfoContext(ctx, "owner-only action from non-owner", "room_id", roomId, "sender_id", senderId)
		return ErrPermissionDenied
	}

	return nil
}

type ApproveMemberParams struct {
	RoomId   string
	SenderId string
	UserId   string
}

func (s *service) ApproveMember(ctx context.Context, params *ApproveMemberParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.checkIsOwner(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	if err := s.roomRepo.ApproveMember(ctx, params.RoomId, params.UserId); err != nil {
		if errors.Is(err, room.ErrPendingMemberNotFound) {
			s.logger.InfoContext(ctx, "approve for non-pending member", "room_id", params.RoomId, "user_id", params.UserId)
			return ErrNotPending
		}
		return fmt.Errorf("failed to approve member: %w", err)
	}

	if err := s.broadcaster.ToApprovalUser(ctx, params.RoomId, params.UserId, "member_approved", map[string]any{
		"room_id": params.RoomId,
	}); err != nil {
		s.logger.InfoContext(ctx, "approved member not reachable", "room_id", params.RoomId, "user_id", params.UserId)
	}

	user, err := s.roomRepo.GetUser(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: params.UserId})
	if err != nil {
		return fmt.Errorf("failed to get approved user: %w", err)
	}

	s.broadcaster.ToRoom(ctx, params.RoomId, "user_joined", map[string]any{"user": memberFromUser(params.UserId, user)})
	s.broadcastRoomState(ctx, params.RoomId)

	return nil
}

type RejectMemberParams struct {
	RoomId   string
	SenderId string
	UserId   string
	Message  string
}

func (s *service) RejectMember(ctx context.Context, params *RejectMemberParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	if err := s.checkIsOwner(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	if _, err := s.roomRepo.GetPendingMember(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: params.UserId}); err != nil {
		s.logger.InfoContext(ctx, "reject for non-pending member", "room_id", params.RoomId, "user_id", params.UserId)
		return ErrNotPending
	}

	if err := s.roomRepo.RejectMember(ctx, params.RoomId, params.UserId); err != nil {
		return fmt.Errorf("failed to reject member: %w", err)
	}

	if err := s.broadcaster.ToApprovalUser(ctx, params.RoomId, params.UserId, "member_rejected", map[string]any{
		"room_id": params.RoomId,
		"message": params.Message,
	}); err != nil {
		s.logger.InfoContext(ctx, "rejected member not reachable", "room_id", params.RoomId, "user_id", params.UserId)
	}

	if sess, err := s.approvalSessions.FindByUserId(params.RoomId, params.UserId); err == nil {
		s.approvalSessions.RemoveSession(sess.ConnId)
		s.broadcaster.CloseConn(sess.Conn, websocket.ClosePolicyViolation, "rejected")
	}

	pendingMembers, err := s.getPendingMembers(ctx, params.RoomId)
	if err != nil {
		return err
	}
	s.broadcaster.ToRoom(ctx, params.RoomId, "pending_members_updated", map[string]any{"pending_members": pendingMembers})

	return nil
}

type CancelPendingParams struct {
	RoomId string
	ConnId string
}

// CancelPending handles a pending member disconnecting or withdrawing the
// request. No grace period applies to unapproved requests.
func (s *service) CancelPending(ctx context.Context, params *CancelPendingParams) error {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	sess, err := s.approvalSessions.RemoveSession(params.ConnId)
	if err != nil {
		// already superseded or cleaned up
		return nil
	}

	if _, err := s.roomRepo.GetPendingMember(ctx, &room.GetUserParams{RoomId: params.RoomId, UserId: sess.UserId}); err != nil {
		// approved or rejected before the socket closed
		return nil
	}

	if err := s.roomRepo.RemovePendingMember(ctx, params.RoomId, sess.UserId); err != nil {
		return fmt.Errorf("failed to remove pending member: %w", err)
	}

	pendingMembers, err := s.getPendingMembers(ctx, params.RoomId)
	if err != nil {
		return err
	}
	s.broadcaster.ToRoom(ctx, params.RoomId, "pending_members_updated", map[string]any{"pending_members": pendingMembers})

	return nil
}
