package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jamhub/server/pkg/keylock"
)

var ErrParticipantNotFound = errors.New("voice participant not found")

type iBroadcaster interface {
	ToRoom(ctx context.Context, roomId, event string, payload any)
	ToUser(ctx context.Context, roomId, userId, event string, payload any) error
}

type iHealthMonitor interface {
	IsStale(connectedAt, lastHeartbeat time.Time, now time.Time) bool
}

// service maintains the full-mesh voice topology per room and relays the
// SDP/ICE exchange. Media never passes through here.
type service struct {
	broadcaster iBroadcaster
	health      iHealthMonitor
	locks       *keylock.KeyLock
	logger      *slog.Logger

	// mu guards the rooms map itself; the content of one room's map is
	// serialized by the room's keylock
	mu    sync.Mutex
	rooms map[string]map[string]*participant
}

func NewService(
	broadcaster iBroadcaster,
	health iHealthMonitor,
	locks *keylock.KeyLock,
	logger *slog.Logger,
) *service {
	return &service{
		broadcaster: broadcaster,
		health:      health,
		locks:       locks,
		logger:      logger,
		rooms:       make(map[string]map[string]*participant),
	}
}

func (s *service) getRoom(roomId string) map[string]*participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rooms[roomId]
}

func (s *service) getOrCreateRoom(roomId string) map[string]*participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomId]
	if !ok {
		room = make(map[string]*participant)
		s.rooms[roomId] = room
	}

	return room
}

func (s *service) dropRoomIfEmpty(roomId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[roomId]; ok && len(room) == 0 {
		delete(s.rooms, roomId)
	}
}

func (s *service) roomIds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.rooms))
	for roomId := range s.rooms {
		ids = append(ids, roomId)
	}

	return ids
}
