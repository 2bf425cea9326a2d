package room

type SetRoomParams struct {
	RoomId      string
	Name        string
	OwnerUserId string
	IsPrivate   bool
	IsHidden    bool
	RoomType    string
	CreatedAt   int64
}

type AddUserParams struct {
	RoomId             string
	UserId             string
	Username           string
	Role               Role
	IsReady            bool
	Instrument         string
	InstrumentCategory string
}

type GetUserParams struct {
	RoomId string
	UserId string
}

type RemoveUserParams struct {
	RoomId string
	UserId string
	// Intentional marks an explicit leave. Intentional leavers are
	// remembered so future joins to a private room require approval.
	Intentional bool
}

type AddPendingMemberParams struct {
	RoomId   string
	UserId   string
	Username string
	Role     Role
}

type AddToGracePeriodParams struct {
	RoomId    string
	UserId    string
	User      User
	ExpiresAt int64
}

type RoomListItem struct {
	RoomId string `json:"room_id"`
	Room
}
