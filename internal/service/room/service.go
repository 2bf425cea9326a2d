package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/repository/room"
	"github.com/jamhub/server/internal/repository/session"
	"github.com/jamhub/server/pkg/keylock"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoomNotFound     = errors.New("room not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNotPending       = errors.New("member is not pending approval")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	DeleteRoom(context.Context, string) error
	ListRooms(context.Context) ([]room.RoomListItem, error)
	IsRoomOwner(ctx context.Context, roomId, userId string) (bool, error)
	ShouldCloseRoom(ctx context.Context, roomId string) (bool, error)
	TransferOwnership(ctx context.Context, roomId, newOwnerId string) error
	// user
	AddUserToRoom(context.Context, *room.AddUserParams) error
	GetUser(context.Context, *room.GetUserParams) (room.User, error)
	GetUserIds(context.Context, string) ([]string, error)
	RemoveUserFromRoom(context.Context, *room.RemoveUserParams) error
	WasIntentionalLeaver(ctx context.Context, roomId, userId string) (bool, error)
	UpdateUserIsReady(ctx context.Context, roomId, userId string, isReady bool) error
	UpdateUserInstrument(ctx context.Context, roomId, userId, instrument, category string) error
	// pending approval
	AddPendingMember(context.Context, *room.AddPendingMemberParams) error
	GetPendingMember(context.Context, *room.GetUserParams) (room.User, error)
	GetPendingMemberIds(context.Context, string) ([]string, error)
	RemovePendingMember(ctx context.Context, roomId, userId string) error
	ApproveMember(ctx context.Context, roomId, userId string) error
	RejectMember(ctx context.Context, roomId, userId string) error
	// grace period
	AddToGracePeriod(context.Context, *room.AddToGracePeriodParams) error
	IsUserInGracePeriod(ctx context.Context, roomId, userId string) (bool, error)
	GetGracePeriodEntry(ctx context.Context, roomId, userId string) (room.GracePeriodEntry, error)
	RemoveFromGracePeriod(ctx context.Context, roomId, userId string) error
}

type iSessionRegistry interface {
	SetSession(*session.SetSessionParams) (session.Session, bool)
	GetSession(connId string) (session.Session, error)
	RemoveSession(connId string) (session.Session, error)
	FindByUserId(roomId, userId string) (session.Session, error)
	CleanupRoom(roomId string) []session.Session
}

type iBroadcaster interface {
	ToRoom(ctx context.Context, roomId, event string, payload any)
	ToApproval(ctx context.Context, roomId, event string, payload any)
	ToUser(ctx context.Context, roomId, userId, event string, payload any) error
	ToApprovalUser(ctx context.Context, roomId, userId, event string, payload any) error
	Global(ctx context.Context, event string, payload any)
	CloseConn(conn *websocket.Conn, code int, reason string)
}

type iVoiceRoster interface {
	CleanupRoom(roomId string)
}

type Config struct {
	// GracePeriod is how long an unintentionally disconnected user keeps
	// their place before the room reacts.
	GracePeriod time.Duration
}

type service struct {
	roomRepo         iRoomRepo
	sessions         iSessionRegistry
	approvalSessions iSessionRegistry
	broadcaster      iBroadcaster
	voice            iVoiceRoster
	locks            *keylock.KeyLock
	logger           *slog.Logger
	gracePeriod      time.Duration

	timersMu    sync.Mutex
	graceTimers map[string]*time.Timer
}

func NewService(
	roomRepo iRoomRepo,
	sessions iSessionRegistry,
	approvalSessions iSessionRegistry,
	broadcaster iBroadcaster,
	voice iVoiceRoster,
	locks *keylock.KeyLock,
	logger *slog.Logger,
	cfg *Config,
) *service {
	return &service{
		roomRepo:         roomRepo,
		sessions:         sessions,
		approvalSessions: approvalSessions,
		broadcaster:      broadcaster,
		voice:            voice,
		locks:            locks,
		logger:           logger,
		gracePeriod:      cfg.GracePeriod,
		graceTimers:      make(map[string]*time.Timer),
	}
}

// Close stops every pending grace timer. Used on service shutdown.
func (s *service) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	for key, timer := range s.graceTimers {
		timer.Stop()
		delete(s.graceTimers, key)
	}
}
