package voice

import (
	"sort"
	"time"
)

type PeerConnectionState struct {
	ConnectionState    string `json:"connection_state"`
	IceConnectionState string `json:"ice_connection_state"`
}

type participant struct {
	username         string
	isMuted          bool
	joinedAt         time.Time
	lastHeartbeat    time.Time
	connectionStates map[string]PeerConnectionState
}

type Participant struct {
	UserId   string `json:"user_id"`
	Username string `json:"username"`
	IsMuted  bool   `json:"is_muted"`
}

type MeshPeer struct {
	UserId         string `json:"user_id"`
	ShouldInitiate bool   `json:"should_initiate"`
}

// shouldInitiate breaks offer symmetry: for any unordered pair exactly one
// side initiates. Both peers compute this independently, so the rule must
// be this exact comparison.
func shouldInitiate(selfId, peerId string) bool {
	return selfId < peerId
}

func participantList(room map[string]*participant, excludeUserId string) []Participant {
	userIds := make([]string, 0, len(room))
	for userId := range room {
		if userId == excludeUserId {
			continue
		}
		userIds = append(userIds, userId)
	}
	sort.Strings(userIds)

	participants := make([]Participant, 0, len(userIds))
	for _, userId := range userIds {
		p := room[userId]
		participants = append(participants, Participant{
			UserId:   userId,
			Username: p.username,
			IsMuted:  p.isMuted,
		})
	}

	return participants
}
