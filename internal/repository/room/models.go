package room

type Role string

const (
	RoleOwner      Role = "room_owner"
	RoleBandMember Role = "band_member"
	RoleAudience   Role = "audience"
)

type Room struct {
	Name        string `redis:"name" json:"name"`
	OwnerUserId string `redis:"owner_user_id" json:"owner_user_id"`
	IsPrivate   bool   `redis:"is_private" json:"is_private"`
	IsHidden    bool   `redis:"is_hidden" json:"is_hidden"`
	RoomType    string `redis:"room_type" json:"room_type"`
	CreatedAt   int64  `redis:"created_at" json:"created_at"`
}

type User struct {
	Username           string `redis:"username" json:"username"`
	Role               Role   `redis:"role" json:"role"`
	IsReady            bool   `redis:"is_ready" json:"is_ready"`
	Instrument         string `redis:"instrument" json:"instrument"`
	InstrumentCategory string `redis:"instrument_category" json:"instrument_category"`
}

// GracePeriodEntry snapshots a user at unintentional disconnect time so a
// rejoin within the grace window restores identity and role.
type GracePeriodEntry struct {
	Username           string `redis:"username"`
	Role               Role   `redis:"role"`
	IsReady            bool   `redis:"is_ready"`
	Instrument         string `redis:"instrument"`
	InstrumentCategory string `redis:"instrument_category"`
	ExpiresAt          int64  `redis:"expires_at"`
}

func (e GracePeriodEntry) User() User {
	return User{
		Username:           e.Username,
		Role:               e.Role,
		IsReady:            e.IsReady,
		Instrument:         e.Instrument,
		InstrumentCategory: e.InstrumentCategory,
	}
}
