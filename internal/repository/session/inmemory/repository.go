package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"

	"github.com/jamhub/server/internal/repository/session"
)

// repo keeps dual indices so both lookup directions are O(1): connection id
// to session, and roomId -> userId -> connection id.
type repo struct {
	mu       sync.RWMutex
	byConnId map[string]*session.Session
	byRoom   map[string]map[string]string
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		byConnId: make(map[string]*session.Session),
		byRoom:   make(map[string]map[string]string),
		logger:   logger,
	}
}

// SetSession registers a session. A prior session for the same (room, user)
// is removed and returned so the caller can close its connection;
// last-writer-wins is the only arbitration for concurrent claims of one
// identity.
func (r *repo) SetSession(params *session.SetSessionParams) (session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var superseded session.Session
	var hadPrior bool

	users, ok := r.byRoom[params.RoomId]
	if !ok {
		users = make(map[string]string)
		r.byRoom[params.RoomId] = users
	}

	if priorConnId, ok := users[params.UserId]; ok && priorConnId != params.ConnId {
		if prior, ok := r.byConnId[priorConnId]; ok {
			superseded = *prior
			hadPrior = true
		}
		delete(r.byConnId, priorConnId)
	}

	now := time.Now()
	r.byConnId[params.ConnId] = &session.Session{
		ConnId:        params.ConnId,
		RoomId:        params.RoomId,
		UserId:        params.UserId,
		NamespacePath: params.NamespacePath,
		ConnectedAt:   now,
		LastActivity:  now,
		Conn:          params.Conn,
	}
	users[params.UserId] = params.ConnId

	r.logger.Debug("session.inmemory.SetSession", "conn_id", params.ConnId, "room_id", params.RoomId, "user_id", params.UserId, "superseded", hadPrior)
	return superseded, hadPrior
}

// GetSession resolves a connection and touches its last activity.
func (r *repo) GetSession(connId string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConnId[connId]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}

	s.LastActivity = time.Now()
	return *s, nil
}

func (r *repo) RemoveSession(connId string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConnId[connId]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}

	r.removeLocked(s)

	r.logger.Debug("session.inmemory.RemoveSession", "conn_id", connId, "room_id", s.RoomId, "user_id", s.UserId)
	return *s, nil
}

func (r *repo) FindByUserId(roomId, userId string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users, ok := r.byRoom[roomId]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}

	connId, ok := users[userId]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}

	s, ok := r.byConnId[connId]
	if !ok {
		return session.Session{}, session.ErrSessionNotFound
	}

	return *s, nil
}

func (r *repo) GetRoomSessions(roomId string) []session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users, ok := r.byRoom[roomId]
	if !ok {
		return nil
	}

	sessions := make([]session.Session, 0, len(users))
	for _, connId := range users {
		if s, ok := r.byConnId[connId]; ok {
			sessions = append(sessions, *s)
		}
	}

	return sessions
}

func (r *repo) GetAllSessions() []session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]session.Session, 0, len(r.byConnId))
	for _, s := range r.byConnId {
		sessions = append(sessions, *s)
	}

	return sessions
}

// CleanupRoom removes every session of a room and returns them so the
// caller can close the connections. Used on room closure.
func (r *repo) CleanupRoom(roomId string) []session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.byRoom[roomId]
	if !ok {
		return nil
	}

	removed := make([]session.Session, 0, len(users))
	for _, connId := range maps.Values(users) {
		if s, ok := r.byConnId[connId]; ok {
			removed = append(removed, *s)
			delete(r.byConnId, connId)
		}
	}
	delete(r.byRoom, roomId)

	r.logger.Debug("session.inmemory.CleanupRoom", "room_id", roomId, "removed", len(removed))
	return removed
}

// SweepExpired drops sessions that have been silently inactive past the
// threshold. Defends against connections that vanished without a disconnect
// event.
func (r *repo) SweepExpired(maxInactive time.Duration) []session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxInactive)
	var removed []session.Session
	for _, s := range r.byConnId {
		if s.LastActivity.Before(cutoff) {
			removed = append(removed, *s)
			r.removeLocked(s)
		}
	}

	if len(removed) > 0 {
		r.logger.Debug("session.inmemory.SweepExpired", "removed", len(removed))
	}
	return removed
}

func (r *repo) removeLocked(s *session.Session) {
	delete(r.byConnId, s.ConnId)
	if users, ok := r.byRoom[s.RoomId]; ok {
		// only unlink the reverse index if it still points at this conn:
		// a superseding session may have overwritten it already
		if users[s.UserId] == s.ConnId {
			delete(users, s.UserId)
		}
		if len(users) == 0 {
			delete(r.byRoom, s.RoomId)
		}
	}
}
