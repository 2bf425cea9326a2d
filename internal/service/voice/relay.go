package voice

import (
	"context"
	"encoding/json"
)

type RelayParams struct {
	RoomId       string
	FromUserId   string
	TargetUserId string
	Payload      json.RawMessage
}

func (s *service) RelayOffer(ctx context.Context, params *RelayParams) error {
	return s.relay(ctx, "voice_offer", "offer", params)
}

func (s *service) RelayAnswer(ctx context.Context, params *RelayParams) error {
	return s.relay(ctx, "voice_answer", "answer", params)
}

func (s *service) RelayIceCandidate(ctx context.Context, params *RelayParams) error {
	return s.relay(ctx, "voice_ice_candidate", "candidate", params)
}

// relay forwards a signaling message to the target's session. The payload
// is passed through opaque: the server never inspects SDP or candidates.
// When the target cannot be resolved directly the message falls back to a
// room broadcast tagged with target_user_id, and every other client
// discards it.
func (s *service) relay(ctx context.Context, event, field string, params *RelayParams) error {
	payload := map[string]any{
		"from_user_id": params.FromUserId,
		field:          params.Payload,
	}

	if err := s.broadcaster.ToUser(ctx, params.RoomId, params.TargetUserId, event, payload); err != nil {
		s.logger.InfoContext(ctx, "direct relay failed, falling back to room broadcast",
			"room_id", params.RoomId, "target_user_id", params.TargetUserId, "event", event, "error", err)

		payload["target_user_id"] = params.TargetUserId
		s.broadcaster.ToRoom(ctx, params.RoomId, event, payload)
	}

	return nil
}
