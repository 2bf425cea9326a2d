package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/internal/service/voice"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) handleLeaveRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	roomId := c.getRoomIdFromCtx(ctx)
	userId := c.getUserIdFromCtx(ctx)

	if err := c.voiceService.LeaveVoice(ctx, &voice.LeaveVoiceParams{RoomId: roomId, UserId: userId}); err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}

	if err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{
		RoomId: roomId,
		UserId: userId,
		ConnId: c.getConnIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

type ApproveMemberInput struct {
	UserId string `json:"user_id"`
}

func (c controller) handleApproveMember(ctx context.Context, _ *websocket.Conn, input ApproveMemberInput) error {
	if input.UserId == "" {
		return fmt.Errorf("user_id is required: %w", ErrValidationError)
	}

	if err := c.roomService.ApproveMember(ctx, &room.ApproveMemberParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		SenderId: c.getUserIdFromCtx(ctx),
		UserId:   input.UserId,
	}); err != nil {
		return fmt.Errorf("failed to approve member: %w", err)
	}

	return nil
}

type RejectMemberInput struct {
	UserId  string `json:"user_id"`
	Message string `json:"message"`
}

func (c controller) handleRejectMember(ctx context.Context, _ *websocket.Conn, input RejectMemberInput) error {
	if input.UserId == "" {
		return fmt.Errorf("user_id is required: %w", ErrValidationError)
	}

	if err := c.roomService.RejectMember(ctx, &room.RejectMemberParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		SenderId: c.getUserIdFromCtx(ctx),
		UserId:   input.UserId,
		Message:  input.Message,
	}); err != nil {
		return fmt.Errorf("failed to reject member: %w", err)
	}

	return nil
}

type TransferOwnershipInput struct {
	NewOwnerId string `json:"new_owner_id"`
}

func (c controller) handleTransferOwnership(ctx context.Context, _ *websocket.Conn, input TransferOwnershipInput) error {
	if input.NewOwnerId == "" {
		return fmt.Errorf("new_owner_id is required: %w", ErrValidationError)
	}

	if err := c.roomService.TransferOwnership(ctx, &room.TransferOwnershipParams{
		RoomId:     c.getRoomIdFromCtx(ctx),
		SenderId:   c.getUserIdFromCtx(ctx),
		NewOwnerId: input.NewOwnerId,
	}); err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}

	return nil
}

type UpdateReadyInput struct {
	IsReady bool `json:"is_ready"`
}

func (c controller) handleUpdateReady(ctx context.Context, _ *websocket.Conn, input UpdateReadyInput) error {
	if err := c.roomService.UpdateIsReady(ctx, &room.UpdateIsReadyParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		SenderId: c.getUserIdFromCtx(ctx),
		IsReady:  input.IsReady,
	}); err != nil {
		return fmt.Errorf("failed to update ready state: %w", err)
	}

	return nil
}

type UpdateInstrumentInput struct {
	Instrument         string `json:"instrument"`
	InstrumentCategory string `json:"instrument_category"`
}

func (c controller) handleUpdateInstrument(ctx context.Context, _ *websocket.Conn, input UpdateInstrumentInput) error {
	if err := c.roomService.UpdateInstrument(ctx, &room.UpdateInstrumentParams{
		RoomId:             c.getRoomIdFromCtx(ctx),
		SenderId:           c.getUserIdFromCtx(ctx),
		Instrument:         input.Instrument,
		InstrumentCategory: input.InstrumentCategory,
	}); err != nil {
		return fmt.Errorf("failed to update instrument: %w", err)
	}

	return nil
}

type ChatMessageInput struct {
	Message string `json:"message"`
}

func (c controller) handleChatMessage(ctx context.Context, _ *websocket.Conn, input ChatMessageInput) error {
	if input.Message == "" {
		return fmt.Errorf("message is required: %w", ErrValidationError)
	}

	if err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		SenderId: c.getUserIdFromCtx(ctx),
		Message:  input.Message,
	}); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	return nil
}

type SynthParamsUpdateInput struct {
	Params map[string]any `json:"params"`
}

// handleSynthParamsUpdate buffers bursty parameter tweaks and lets the
// batcher ship them as one synth_params_batch per window.
func (c controller) handleSynthParamsUpdate(ctx context.Context, _ *websocket.Conn, input SynthParamsUpdateInput) error {
	if len(input.Params) == 0 {
		return fmt.Errorf("params are required: %w", ErrValidationError)
	}

	c.synthBatcher.Add(c.getRoomIdFromCtx(ctx), synthUpdate{
		UserId: c.getUserIdFromCtx(ctx),
		Params: input.Params,
	})

	return nil
}

type MetronomeUpdateInput struct {
	Bpm       int  `json:"bpm"`
	IsPlaying bool `json:"is_playing"`
}

func (c controller) handleMetronomeUpdate(ctx context.Context, _ *websocket.Conn, input MetronomeUpdateInput) error {
	if input.Bpm < 20 || input.Bpm > 300 {
		return fmt.Errorf("bpm out of range: %w", ErrValidationError)
	}

	if err := c.roomService.UpdateMetronome(ctx, &room.UpdateMetronomeParams{
		RoomId:    c.getRoomIdFromCtx(ctx),
		SenderId:  c.getUserIdFromCtx(ctx),
		Bpm:       input.Bpm,
		IsPlaying: input.IsPlaying,
	}); err != nil {
		return fmt.Errorf("failed to update metronome: %w", err)
	}

	return nil
}

type JoinVoiceInput struct {
	Username string `json:"username"`
	IsMuted  bool   `json:"is_muted"`
}

func (c controller) handleJoinVoice(ctx context.Context, conn *websocket.Conn, input JoinVoiceInput) error {
	joinVoiceResp, err := c.voiceService.JoinVoice(ctx, &voice.JoinVoiceParams{
		RoomId:   c.getRoomIdFromCtx(ctx),
		UserId:   c.getUserIdFromCtx(ctx),
		Username: input.Username,
		IsMuted:  input.IsMuted,
	})
	if err != nil {
		return fmt.Errorf("failed to join voice: %w", err)
	}

	// the joiner gets the pre-join roster directly and dials everyone on it
	if err := c.broadcaster.ToConn(ctx, conn, "voice_participants", map[string]any{
		"participants": joinVoiceResp.Participants,
	}); err != nil {
		return fmt.Errorf("failed to send voice participants: %w", err)
	}

	return nil
}

func (c controller) handleLeaveVoice(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	if err := c.voiceService.LeaveVoice(ctx, &voice.LeaveVoiceParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		UserId: c.getUserIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to leave voice: %w", err)
	}

	return nil
}

func (c controller) handleRequestMeshConnections(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	meshResp, err := c.voiceService.RequestMeshConnections(ctx, &voice.RequestMeshConnectionsParams{
		RoomId: c.getRoomIdFromCtx(ctx),
		UserId: c.getUserIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to request mesh connections: %w", err)
	}

	if err := c.broadcaster.ToConn(ctx, conn, "mesh_participants", map[string]any{
		"participants": meshResp.Peers,
	}); err != nil {
		return fmt.Errorf("failed to send mesh participants: %w", err)
	}

	return nil
}

type VoiceOfferInput struct {
	TargetUserId string          `json:"target_user_id"`
	Offer        json.RawMessage `json:"offer"`
}

func (c controller) handleVoiceOffer(ctx context.Context, _ *websocket.Conn, input VoiceOfferInput) error {
	if input.TargetUserId == "" {
		return fmt.Errorf("target_user_id is required: %w", ErrValidationError)
	}

	if err := c.voiceService.RelayOffer(ctx, &voice.RelayParams{
		RoomId:       c.getRoomIdFromCtx(ctx),
		FromUserId:   c.getUserIdFromCtx(ctx),
		TargetUserId: input.TargetUserId,
		Payload:      input.Offer,
	}); err != nil {
		return fmt.Errorf("failed to relay offer: %w", err)
	}

	return nil
}

type VoiceAnswerInput struct {
	TargetUserId string          `json:"target_user_id"`
	Answer       json.RawMessage `json:"answer"`
}

func (c controller) handleVoiceAnswer(ctx context.Context, _ *websocket.Conn, input VoiceAnswerInput) error {
	if input.TargetUserId == "" {
		return fmt.Errorf("target_user_id is required: %w", ErrValidationError)
	}

	if err := c.voiceService.RelayAnswer(ctx, &voice.RelayParams{
		RoomId:       c.getRoomIdFromCtx(ctx),
		FromUserId:   c.getUserIdFromCtx(ctx),
		TargetUserId: input.TargetUserId,
		Payload:      input.Answer,
	}); err != nil {
		return fmt.Errorf("failed to relay answer: %w", err)
	}

	return nil
}

type VoiceIceCandidateInput struct {
	TargetUserId string          `json:"target_user_id"`
	Candidate    json.RawMessage `json:"candidate"`
}

func (c controller) handleVoiceIceCandidate(ctx context.Context, _ *websocket.Conn, input VoiceIceCandidateInput) error {
	if input.TargetUserId == "" {
		return fmt.Errorf("target_user_id is required: %w", ErrValidationError)
	}

	if err := c.voiceService.RelayIceCandidate(ctx, &voice.RelayParams{
		RoomId:       c.getRoomIdFromCtx(ctx),
		FromUserId:   c.getUserIdFromCtx(ctx),
		TargetUserId: input.TargetUserId,
		Payload:      input.Candidate,
	}); err != nil {
		return fmt.Errorf("failed to relay ice candidate: %w", err)
	}

	return nil
}

type VoiceHeartbeatInput struct {
	ConnectionStates map[string]voice.PeerConnectionState `json:"connection_states"`
}

func (c controller) handleVoiceHeartbeat(ctx context.Context, _ *websocket.Conn, input VoiceHeartbeatInput) error {
	if err := c.voiceService.Heartbeat(ctx, &voice.HeartbeatParams{
		RoomId:           c.getRoomIdFromCtx(ctx),
		UserId:           c.getUserIdFromCtx(ctx),
		ConnectionStates: input.ConnectionStates,
	}); err != nil {
		return fmt.Errorf("failed to process heartbeat: %w", err)
	}

	return nil
}

type VoiceConnectionFailedInput struct {
	TargetUserId string `json:"target_user_id"`
}

func (c controller) handleVoiceConnectionFailed(ctx context.Context, _ *websocket.Conn, input VoiceConnectionFailedInput) error {
	if input.TargetUserId == "" {
		return fmt.Errorf("target_user_id is required: %w", ErrValidationError)
	}

	if err := c.voiceService.RequestReconnection(ctx, &voice.RequestReconnectionParams{
		RoomId:       c.getRoomIdFromCtx(ctx),
		FromUserId:   c.getUserIdFromCtx(ctx),
		TargetUserId: input.TargetUserId,
	}); err != nil {
		return fmt.Errorf("failed to request reconnection: %w", err)
	}

	return nil
}

func (c controller) handleListRooms(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	rooms, err := c.roomService.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	if err := c.broadcaster.ToConn(ctx, conn, "rooms", map[string]any{"rooms": rooms}); err != nil {
		return fmt.Errorf("failed to send room list: %w", err)
	}

	return nil
}
