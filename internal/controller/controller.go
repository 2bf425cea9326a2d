package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	roomrepo "github.com/jamhub/server/internal/repository/room"
	"github.com/jamhub/server/internal/repository/session"
	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/internal/service/voice"
	"github.com/jamhub/server/pkg/batcher"
	"github.com/jamhub/server/pkg/validator"
	"github.com/jamhub/server/pkg/wsrouter"
)

var ErrValidationError = errors.New("validation error")

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	ListRooms(context.Context) ([]roomrepo.RoomListItem, error)
	GetRoomState(context.Context, string) (room.RoomState, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	Disconnect(context.Context, *room.DisconnectParams) error
	CancelPending(context.Context, *room.CancelPendingParams) error
	ApproveMember(context.Context, *room.ApproveMemberParams) error
	RejectMember(context.Context, *room.RejectMemberParams) error
	TransferOwnership(context.Context, *room.TransferOwnershipParams) error
	UpdateIsReady(context.Context, *room.UpdateIsReadyParams) error
	UpdateInstrument(context.Context, *room.UpdateInstrumentParams) error
	SendChatMessage(context.Context, *room.SendChatMessageParams) error
	UpdateMetronome(context.Context, *room.UpdateMetronomeParams) error
}

type iVoiceService interface {
	JoinVoice(context.Context, *voice.JoinVoiceParams) (voice.JoinVoiceResponse, error)
	LeaveVoice(context.Context, *voice.LeaveVoiceParams) error
	RequestMeshConnections(context.Context, *voice.RequestMeshConnectionsParams) (voice.RequestMeshConnectionsResponse, error)
	RelayOffer(context.Context, *voice.RelayParams) error
	RelayAnswer(context.Context, *voice.RelayParams) error
	RelayIceCandidate(context.Context, *voice.RelayParams) error
	Heartbeat(context.Context, *voice.HeartbeatParams) error
	RequestReconnection(context.Context, *voice.RequestReconnectionParams) error
}

type iBroadcaster interface {
	ToConn(ctx context.Context, conn *websocket.Conn, event string, payload any) error
	ToRoom(ctx context.Context, roomId, event string, payload any)
}

type iPresenceRegistry interface {
	SetSession(*session.SetSessionParams) (session.Session, bool)
	GetSession(connId string) (session.Session, error)
	RemoveSession(connId string) (session.Session, error)
}

type iSessionToucher interface {
	GetSession(connId string) (session.Session, error)
}

type synthUpdate struct {
	UserId string         `json:"user_id"`
	Params map[string]any `json:"params"`
}

// SynthBatchWindow bounds how long synth parameter changes buffer before
// the batch goes out to the room.
const SynthBatchWindow = 50 * time.Millisecond

type controller struct {
	roomService  iRoomService
	voiceService iVoiceService
	broadcaster  iBroadcaster
	monitors     iPresenceRegistry
	sessions     iSessionToucher
	approvals    iSessionToucher
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	synthBatcher *batcher.Batcher[synthUpdate]
	logger       *slog.Logger

	roomMux     *wsrouter.WSRouter
	pendingMux  *wsrouter.WSRouter
	presenceMux *wsrouter.WSRouter
}

func NewController(
	roomService iRoomService,
	voiceService iVoiceService,
	broadcaster iBroadcaster,
	monitors iPresenceRegistry,
	sessions iSessionToucher,
	approvals iSessionToucher,
	logger *slog.Logger,
) *controller {
	c := &controller{
		roomService:  roomService,
		voiceService: voiceService,
		broadcaster:  broadcaster,
		monitors:     monitors,
		sessions:     sessions,
		approvals:    approvals,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}

	c.synthBatcher = batcher.New(SynthBatchWindow, func(roomId string, updates []synthUpdate) {
		c.broadcaster.ToRoom(context.Background(), roomId, "synth_params_batch", map[string]any{
			"updates": updates,
		})
	})

	c.roomMux = c.getRoomWSRouter()
	c.pendingMux = c.getPendingWSRouter()
	c.presenceMux = c.getPresenceWSRouter()

	return c
}

// Close flushes pending synth batches. Used on shutdown.
func (c controller) Close() {
	c.synthBatcher.Close()
}
