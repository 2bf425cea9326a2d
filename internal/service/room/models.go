package room

import "github.com/jamhub/server/internal/repository/room"

type Member struct {
	Id                 string    `json:"id"`
	Username           string    `json:"username"`
	Role               room.Role `json:"role"`
	IsReady            bool      `json:"is_ready"`
	Instrument         string    `json:"instrument"`
	InstrumentCategory string    `json:"instrument_category"`
}

// RoomState is the full snapshot broadcast whenever clients must
// reconverge on membership.
type RoomState struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	OwnerUserId    string   `json:"owner_user_id"`
	IsPrivate      bool     `json:"is_private"`
	IsHidden       bool     `json:"is_hidden"`
	RoomType       string   `json:"room_type"`
	CreatedAt      int64    `json:"created_at"`
	Users          []Member `json:"users"`
	PendingMembers []Member `json:"pending_members"`
}

type JoinStatus string

const (
	StatusJoined   JoinStatus = "joined"
	StatusRejoined JoinStatus = "rejoined"
	StatusPending  JoinStatus = "pending"
)

func memberFromUser(userId string, user room.User) Member {
	return Member{
		Id:                 userId,
		Username:           user.Username,
		Role:               user.Role,
		IsReady:            user.IsReady,
		Instrument:         user.Instrument,
		InstrumentCategory: user.InstrumentCategory,
	}
}
