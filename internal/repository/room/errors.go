package room

import "errors"

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrPendingMemberNotFound = errors.New("pending member not found")
	ErrGracePeriodNotFound   = errors.New("grace period entry not found")
)
