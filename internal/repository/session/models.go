package session

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

var ErrSessionNotFound = errors.New("session not found")

// Session binds a live connection to a (room, user) identity within one
// namespace. Exactly one session exists per connection id; a user may hold
// sessions on several connections, but a new session for the same
// (room, user) supersedes the previous one.
type Session struct {
	ConnId        string
	RoomId        string
	UserId        string
	NamespacePath string
	ConnectedAt   time.Time
	LastActivity  time.Time
	Conn          *websocket.Conn
}

type SetSessionParams struct {
	ConnId        string
	RoomId        string
	UserId        string
	NamespacePath string
	Conn          *websocket.Conn
}

func RoomNamespace(roomId string) string {
	return "/room/" + roomId
}

func ApprovalNamespace(roomId string) string {
	return "/approval/" + roomId
}

const PresenceNamespace = "/presence"
