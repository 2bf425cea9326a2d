package controller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamhub/server/internal/service/voice"
)

type stubVoiceService struct {
	iVoiceService
	meshResp voice.RequestMeshConnectionsResponse
}

func (s stubVoiceService) RequestMeshConnections(context.Context, *voice.RequestMeshConnectionsParams) (voice.RequestMeshConnectionsResponse, error) {
	return s.meshResp, nil
}

type connEvent struct {
	Event   string
	Payload any
}

type stubBroadcaster struct {
	mu     sync.Mutex
	events []connEvent
}

func (b *stubBroadcaster) ToConn(_ context.Context, _ *websocket.Conn, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, connEvent{Event: event, Payload: payload})
	return nil
}

func (b *stubBroadcaster) ToRoom(_ context.Context, _, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, connEvent{Event: event, Payload: payload})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestMeshConnectionsReply(t *testing.T) {
	b := &stubBroadcaster{}
	svc := stubVoiceService{meshResp: voice.RequestMeshConnectionsResponse{
		Peers: []voice.MeshPeer{{UserId: "alice", ShouldInitiate: true}},
	}}

	c := NewController(nil, svc, b, nil, nil, nil, testLogger())
	t.Cleanup(c.Close)

	ctx := context.WithValue(context.Background(), roomIdCtxKey, "r1")
	ctx = context.WithValue(ctx, userIdCtxKey, "bob")

	require.NoError(t, c.handleRequestMeshConnections(ctx, nil, EmptyInput{}))

	require.Len(t, b.events, 1)
	assert.Equal(t, "mesh_participants", b.events[0].Event)

	payload, ok := b.events[0].Payload.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, payload, "participants")
	assert.Equal(t, []voice.MeshPeer{{UserId: "alice", ShouldInitiate: true}}, payload["participants"])
}
