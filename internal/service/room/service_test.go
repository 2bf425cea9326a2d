package room

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamhub/server/internal/repository/room"
	roomredis "github.com/jamhub/server/internal/repository/room/redis"
	"github.com/jamhub/server/internal/repository/session/inmemory"
	"github.com/jamhub/server/pkg/keylock"
)

type sentEvent struct {
	Scope   string // "room", "approval", "global", or "user:"/"approval-user:" plus the id
	Event   string
	Payload map[string]any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
	closed int
}

func (f *fakeBroadcaster) ToRoom(_ context.Context, _, event string, payload any) {
	f.record("room", event, payload)
}

func (f *fakeBroadcaster) ToApproval(_ context.Context, _, event string, payload any) {
	f.record("approval", event, payload)
}

func (f *fakeBroadcaster) ToUser(_ context.Context, _, userId, event string, payload any) error {
	f.record("user:"+userId, event, payload)
	return nil
}

func (f *fakeBroadcaster) ToApprovalUser(_ context.Context, _, userId, event string, payload any) error {
	f.record("approval-user:"+userId, event, payload)
	return nil
}

func (f *fakeBroadcaster) Global(_ context.Context, event string, payload any) {
	f.record("global", event, payload)
}

func (f *fakeBroadcaster) CloseConn(_ *websocket.Conn, _ int, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeBroadcaster) record(scope, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, _ := payload.(map[string]any)
	f.events = append(f.events, sentEvent{Scope: scope, Event: event, Payload: m})
}

func (f *fakeBroadcaster) byEvent(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEvent
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.closed = 0
}

type fakeVoiceRoster struct {
	mu      sync.Mutex
	cleaned []string
}

func (f *fakeVoiceRoster) CleanupRoom(roomId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, roomId)
}

func (f *fakeVoiceRoster) cleanedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleaned...)
}

type testEnv struct {
	service     *service
	broadcaster *fakeBroadcaster
	voice       *fakeVoiceRoster
}

func newTestEnv(t *testing.T, gracePeriod time.Duration) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	b := &fakeBroadcaster{}
	v := &fakeVoiceRoster{}

	s := NewService(
		roomredis.NewRepo(rc, logger),
		inmemory.NewRepo(logger),
		inmemory.NewRepo(logger),
		b,
		v,
		keylock.New(),
		logger,
		&Config{GracePeriod: gracePeriod},
	)
	t.Cleanup(s.Close)

	return &testEnv{service: s, broadcaster: b, voice: v}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func createRoom(t *testing.T, env *testEnv, isPrivate bool) CreateRoomResponse {
	t.Helper()

	resp, err := env.service.CreateRoom(context.Background(), &CreateRoomParams{
		Name:      "jam session",
		IsPrivate: isPrivate,
		RoomType:  "band",
	})
	require.NoError(t, err)

	return resp
}

func joinAs(t *testing.T, env *testEnv, roomId, userId, username string, role room.Role, connId string) JoinRoomResponse {
	t.Helper()

	resp, err := env.service.JoinRoom(context.Background(), &JoinRoomParams{
		RoomId:   roomId,
		UserId:   userId,
		Username: username,
		Role:     role,
		ConnId:   connId,
	})
	require.NoError(t, err)

	return resp
}

func TestCreateAndListRooms(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()

	created := createRoom(t, env, false)
	require.NotEmpty(t, created.RoomId)
	require.NotEmpty(t, created.OwnerUserId)

	_, err := env.service.CreateRoom(ctx, &CreateRoomParams{Name: "secret", IsHidden: true})
	require.NoError(t, err)

	rooms, err := env.service.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1, "hidden rooms stay off the public list")
	assert.Equal(t, created.RoomId, rooms[0].RoomId)
}

func TestJoinRoomNotFound(t *testing.T) {
	env := newTestEnv(t, time.Second)

	_, err := env.service.JoinRoom(context.Background(), &JoinRoomParams{RoomId: "missing", ConnId: "c1"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoom(t *testing.T) {
	env := newTestEnv(t, time.Second)
	created := createRoom(t, env, false)

	resp := joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c1")
	assert.Equal(t, StatusJoined, resp.Status)
	require.Len(t, resp.RoomState.Users, 1)
	assert.Equal(t, room.RoleOwner, resp.RoomState.Users[0].Role)

	env.broadcaster.reset()

	// an anonymous join gets a generated id and the audience role
	resp = joinAs(t, env, created.RoomId, "", "Guest", "", "c2")
	assert.Equal(t, StatusJoined, resp.Status)
	require.NotEmpty(t, resp.UserId)
	require.Len(t, resp.RoomState.Users, 2)

	joined := env.broadcaster.byEvent("user_joined")
	require.Len(t, joined, 1)
	user, ok := joined[0].Payload["user"].(Member)
	require.True(t, ok)
	assert.Equal(t, room.RoleAudience, user.Role)

	require.Len(t, env.broadcaster.byEvent("room_state_updated"), 1)
}

func TestJoinRoomClaimingOwnerRoleIsDemoted(t *testing.T) {
	env := newTestEnv(t, time.Second)
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c1")
	resp := joinAs(t, env, created.RoomId, "impostor", "Mallory", room.RoleOwner, "c2")

	owners := 0
	for _, u := range resp.RoomState.Users {
		if u.Role == room.RoleOwner {
			owners++
			assert.Equal(t, created.OwnerUserId, u.Id)
		}
	}
	assert.Equal(t, 1, owners)
}

func TestPrivateRoomApprovalFlow(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	env.broadcaster.reset()

	resp := joinAs(t, env, created.RoomId, "bassist", "Bass", room.RoleBandMember, "c-bass")
	assert.Equal(t, StatusPending, resp.Status)

	require.Len(t, env.broadcaster.byEvent("pending_member_added"), 1)
	assert.Equal(t, "user:"+created.OwnerUserId, env.broadcaster.byEvent("pending_member_added")[0].Scope)
	require.Len(t, env.broadcaster.byEvent("pending_members_updated"), 1)
	assert.Empty(t, env.broadcaster.byEvent("user_joined"), "pending members are not announced as joined")

	// only the owner may decide
	err := env.service.ApproveMember(ctx, &ApproveMemberParams{RoomId: created.RoomId, SenderId: "bassist", UserId: "bassist"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	env.broadcaster.reset()
	require.NoError(t, env.service.ApproveMember(ctx, &ApproveMemberParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		UserId:   "bassist",
	}))

	approved := env.broadcaster.byEvent("member_approved")
	require.Len(t, approved, 1)
	assert.Equal(t, "approval-user:bassist", approved[0].Scope)

	joined := env.broadcaster.byEvent("user_joined")
	require.Len(t, joined, 1)
	user := joined[0].Payload["user"].(Member)
	assert.Equal(t, room.RoleBandMember, user.Role)

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Users, 2)
	assert.Empty(t, state.PendingMembers)

	// deciding twice on the same user is rejected
	err = env.service.ApproveMember(ctx, &ApproveMemberParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		UserId:   "bassist",
	})
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestRejectMember(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	resp := joinAs(t, env, created.RoomId, "drummer", "Drums", room.RoleBandMember, "c-drums")
	require.Equal(t, StatusPending, resp.Status)
	env.broadcaster.reset()

	require.NoError(t, env.service.RejectMember(ctx, &RejectMemberParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		UserId:   "drummer",
		Message:  "band is full",
	}))

	rejected := env.broadcaster.byEvent("member_rejected")
	require.Len(t, rejected, 1)
	assert.Equal(t, "approval-user:drummer", rejected[0].Scope)
	assert.Equal(t, "band is full", rejected[0].Payload["message"])
	require.Len(t, env.broadcaster.byEvent("pending_members_updated"), 1)

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Users, 1)
	assert.Empty(t, state.PendingMembers)
}

func TestCancelPending(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	resp := joinAs(t, env, created.RoomId, "guitar", "Guitar", room.RoleBandMember, "c-guitar")
	require.Equal(t, StatusPending, resp.Status)
	env.broadcaster.reset()

	require.NoError(t, env.service.CancelPending(ctx, &CancelPendingParams{RoomId: created.RoomId, ConnId: "c-guitar"}))
	require.Len(t, env.broadcaster.byEvent("pending_members_updated"), 1)

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Empty(t, state.PendingMembers)

	// the same socket closing again is a no-op
	env.broadcaster.reset()
	require.NoError(t, env.service.CancelPending(ctx, &CancelPendingParams{RoomId: created.RoomId, ConnId: "c-guitar"}))
	assert.Empty(t, env.broadcaster.events)
}

func TestIntentionalLeaverNeedsReapproval(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")

	// an audience member enters a private room without approval
	resp := joinAs(t, env, created.RoomId, "listener", "Listener", room.RoleAudience, "c-listener")
	require.Equal(t, StatusJoined, resp.Status)

	require.NoError(t, env.service.LeaveRoom(ctx, &LeaveRoomParams{
		RoomId: created.RoomId,
		UserId: "listener",
		ConnId: "c-listener",
	}))

	// but once they left on purpose, coming back requires the owner's nod
	resp = joinAs(t, env, created.RoomId, "listener", "Listener", room.RoleAudience, "c-listener2")
	assert.Equal(t, StatusPending, resp.Status)
}

func TestApprovedMemberReentersAsActive(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	resp := joinAs(t, env, created.RoomId, "bassist", "Bass", room.RoleBandMember, "c-bass")
	require.Equal(t, StatusPending, resp.Status)

	require.NoError(t, env.service.ApproveMember(ctx, &ApproveMemberParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		UserId:   "bassist",
	}))
	env.broadcaster.reset()

	// the member reconnects on the room endpoint after the verdict; they
	// must come in as the active member they already are, not as a new
	// pending request
	resp = joinAs(t, env, created.RoomId, "bassist", "Bass", room.RoleBandMember, "c-bass2")
	assert.Equal(t, StatusRejoined, resp.Status)

	assert.Empty(t, env.broadcaster.byEvent("pending_member_added"))
	assert.Empty(t, env.broadcaster.byEvent("user_joined"), "the approval already announced the join")

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Empty(t, state.PendingMembers)
	require.Len(t, state.Users, 2)

	for _, u := range state.Users {
		if u.Id == "bassist" {
			assert.Equal(t, room.RoleBandMember, u.Role)
		}
	}
}

func TestApprovalKeepsRequestedRole(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, true)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	joinAs(t, env, created.RoomId, "listener", "Listener", room.RoleAudience, "c-listener")
	require.NoError(t, env.service.LeaveRoom(ctx, &LeaveRoomParams{
		RoomId: created.RoomId,
		UserId: "listener",
		ConnId: "c-listener",
	}))

	resp := joinAs(t, env, created.RoomId, "listener", "Listener", room.RoleAudience, "c-listener2")
	require.Equal(t, StatusPending, resp.Status)

	require.NoError(t, env.service.ApproveMember(ctx, &ApproveMemberParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		UserId:   "listener",
	}))

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)

	var approved Member
	for _, u := range state.Users {
		if u.Id == "listener" {
			approved = u
		}
	}
	assert.Equal(t, room.RoleAudience, approved.Role, "approval grants entry, not a promotion")
}

func TestDisconnectGraceRejoin(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	joinAs(t, env, created.RoomId, "keys", "Keys", room.RoleBandMember, "c-keys")
	require.NoError(t, env.service.UpdateInstrument(ctx, &UpdateInstrumentParams{
		RoomId:     created.RoomId,
		SenderId:   "keys",
		Instrument: "piano",
	}))
	env.broadcaster.reset()

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{RoomId: created.RoomId, ConnId: "c-keys"}))

	// the drop is invisible to the room while the grace period runs
	assert.Empty(t, env.broadcaster.byEvent("user_left"))
	assert.Empty(t, env.broadcaster.byEvent("ownership_transferred"))

	env.broadcaster.reset()
	resp := joinAs(t, env, created.RoomId, "keys", "Keys", "", "c-keys2")
	assert.Equal(t, StatusRejoined, resp.Status)

	// the snapshot came back intact, no join was announced
	assert.Empty(t, env.broadcaster.byEvent("user_joined"))
	require.Len(t, env.broadcaster.byEvent("room_state_updated"), 1)

	var restored Member
	for _, u := range resp.RoomState.Users {
		if u.Id == "keys" {
			restored = u
		}
	}
	assert.Equal(t, room.RoleBandMember, restored.Role)
	assert.Equal(t, "piano", restored.Instrument)
}

func TestGraceExpiry(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	joinAs(t, env, created.RoomId, "keys", "Keys", room.RoleBandMember, "c-keys")
	env.broadcaster.reset()

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{RoomId: created.RoomId, ConnId: "c-keys"}))

	require.Eventually(t, func() bool {
		return len(env.broadcaster.byEvent("user_left")) == 1
	}, time.Second, 10*time.Millisecond)

	left := env.broadcaster.byEvent("user_left")
	assert.Equal(t, "keys", left[0].Payload["user_id"])
	assert.Empty(t, env.broadcaster.byEvent("ownership_transferred"), "a non-owner expiry must not touch ownership")

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Users, 1)
}

func TestOwnerGraceExpiryTransfersOwnership(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	joinAs(t, env, created.RoomId, "keys", "Keys", room.RoleBandMember, "c-keys")
	env.broadcaster.reset()

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{RoomId: created.RoomId, ConnId: "c-owner"}))

	require.Eventually(t, func() bool {
		return len(env.broadcaster.byEvent("ownership_transferred")) == 1
	}, time.Second, 10*time.Millisecond)

	transferred := env.broadcaster.byEvent("ownership_transferred")
	assert.Equal(t, "keys", transferred[0].Payload["new_owner_id"])
	assert.Equal(t, created.OwnerUserId, transferred[0].Payload["old_owner_id"])
	assert.Empty(t, env.broadcaster.byEvent("room_closed"), "transfer and closure are mutually exclusive")

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	require.Len(t, state.Users, 1)
	assert.Equal(t, room.RoleOwner, state.Users[0].Role)
	assert.Equal(t, "keys", state.OwnerUserId)
}

func TestLastUserLeavingClosesRoom(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	env.broadcaster.reset()

	require.NoError(t, env.service.LeaveRoom(ctx, &LeaveRoomParams{
		RoomId: created.RoomId,
		UserId: created.OwnerUserId,
		ConnId: "c-owner",
	}))

	require.Len(t, env.broadcaster.byEvent("room_closed"), 2, "room and approval namespaces are both told")
	closedGlobal := env.broadcaster.byEvent("room_closed_broadcast")
	require.Len(t, closedGlobal, 1)
	assert.Equal(t, "global", closedGlobal[0].Scope)
	assert.Empty(t, env.broadcaster.byEvent("ownership_transferred"))

	_, err := env.service.GetRoomState(ctx, created.RoomId)
	assert.Error(t, err)

	rooms, err := env.service.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)

	assert.Equal(t, []string{created.RoomId}, env.voice.cleanedRooms(), "closure drops the voice mesh in one step")
}

func TestRoomSurvivesWhileGraceHoldsLastUser(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	env.broadcaster.reset()

	require.NoError(t, env.service.Disconnect(ctx, &DisconnectParams{RoomId: created.RoomId, ConnId: "c-owner"}))

	// still open: the sole member may come back
	assert.Empty(t, env.broadcaster.byEvent("room_closed"))

	require.Eventually(t, func() bool {
		return len(env.broadcaster.byEvent("room_closed")) > 0
	}, time.Second, 10*time.Millisecond, "expiry of the last grace entry closes the room")
}

func TestTransferOwnership(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	joinAs(t, env, created.RoomId, "keys", "Keys", room.RoleBandMember, "c-keys")

	err := env.service.TransferOwnership(ctx, &TransferOwnershipParams{
		RoomId:     created.RoomId,
		SenderId:   "keys",
		NewOwnerId: "keys",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	env.broadcaster.reset()
	require.NoError(t, env.service.TransferOwnership(ctx, &TransferOwnershipParams{
		RoomId:     created.RoomId,
		SenderId:   created.OwnerUserId,
		NewOwnerId: "keys",
	}))

	require.Len(t, env.broadcaster.byEvent("ownership_transferred"), 1)

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	assert.Equal(t, "keys", state.OwnerUserId)

	owners := 0
	for _, u := range state.Users {
		if u.Role == room.RoleOwner {
			owners++
		}
	}
	assert.Equal(t, 1, owners, "the old owner is demoted in the same step")
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-owner")
	env.broadcaster.reset()

	require.NoError(t, env.service.UpdateIsReady(ctx, &UpdateIsReadyParams{
		RoomId:   created.RoomId,
		SenderId: created.OwnerUserId,
		IsReady:  true,
	}))
	require.NoError(t, env.service.UpdateInstrument(ctx, &UpdateInstrumentParams{
		RoomId:             created.RoomId,
		SenderId:           created.OwnerUserId,
		Instrument:         "guitar",
		InstrumentCategory: "string",
	}))

	assert.Len(t, env.broadcaster.byEvent("room_state_updated"), 2)

	state, err := env.service.GetRoomState(ctx, created.RoomId)
	require.NoError(t, err)
	require.Len(t, state.Users, 1)
	assert.True(t, state.Users[0].IsReady)
	assert.Equal(t, "guitar", state.Users[0].Instrument)

	err = env.service.UpdateIsReady(ctx, &UpdateIsReadyParams{RoomId: created.RoomId, SenderId: "ghost", IsReady: true})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSupersededConnectionIsClosed(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	created := createRoom(t, env, false)

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-old")
	env.broadcaster.reset()

	joinAs(t, env, created.RoomId, created.OwnerUserId, "Owner", "", "c-new")

	env.broadcaster.mu.Lock()
	closed := env.broadcaster.closed
	env.broadcaster.mu.Unlock()
	assert.Equal(t, 1, closed, "the older tab's socket is shut down")

	// a disconnect of the stale socket must not start a grace period
	env.broadcaster.reset()
	require.NoError(t, env.service.Disconnect(context.Background(), &DisconnectParams{
		RoomId: created.RoomId,
		UserId: created.OwnerUserId,
		ConnId: "c-old",
	}))

	state, err := env.service.GetRoomState(context.Background(), created.RoomId)
	require.NoError(t, err)
	assert.Len(t, state.Users, 1)
}
