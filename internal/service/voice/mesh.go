package voice

import (
	"context"
	"sort"
)

type RequestMeshConnectionsParams struct {
	RoomId string
	UserId string
}

type RequestMeshConnectionsResponse struct {
	Peers []MeshPeer
}

// RequestMeshConnections computes the caller's peer set with initiator
// flags and pushes the complementary new_mesh_peer to every peer, so both
// sides of each pair learn about each other with opposite flags.
func (s *service) RequestMeshConnections(ctx context.Context, params *RequestMeshConnectionsParams) (RequestMeshConnectionsResponse, error) {
	s.locks.Lock(params.RoomId)
	defer s.locks.Unlock(params.RoomId)

	room := s.getRoom(params.RoomId)
	if room == nil {
		return RequestMeshConnectionsResponse{}, ErrParticipantNotFound
	}
	if _, ok := room[params.UserId]; !ok {
		return RequestMeshConnectionsResponse{}, ErrParticipantNotFound
	}

	peerIds := make([]string, 0, len(room))
	for userId := range room {
		if userId == params.UserId {
			continue
		}
		peerIds = append(peerIds, userId)
	}
	sort.Strings(peerIds)

	peers := make([]MeshPeer, 0, len(peerIds))
	for _, peerId := range peerIds {
		peers = append(peers, MeshPeer{
			UserId:         peerId,
			ShouldInitiate: shouldInitiate(params.UserId, peerId),
		})

		if err := s.broadcaster.ToUser(ctx, params.RoomId, peerId, "new_mesh_peer", map[string]any{
			"user_id":         params.UserId,
			"should_initiate": shouldInitiate(peerId, params.UserId),
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to notify mesh peer", "room_id", params.RoomId, "user_id", peerId, "error", err)
		}
	}

	return RequestMeshConnectionsResponse{Peers: peers}, nil
}
