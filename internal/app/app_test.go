package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamhub/server/internal/repository/session"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Host:               "127.0.0.1",
		Port:               8080,
		LogLevel:           "INFO",
		GracePeriod:        30 * time.Second,
		StaleThreshold:     60 * time.Second,
		SweepInterval:      30 * time.Second,
		SessionMaxInactive: 5 * time.Minute,
		RedisHost:          "localhost",
		RedisPort:          6379,
	}
}

func TestAppConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.GracePeriod = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.StaleThreshold = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SweepInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.SessionMaxInactive = time.Second
	assert.Error(t, cfg.Validate(), "sessions must not be reaped faster than heartbeats go stale")
}

type fakeSweeper struct {
	sessions []session.Session
}

func (f fakeSweeper) SweepExpired(time.Duration) []session.Session {
	return f.sessions
}

type fakeCloser struct {
	closed int
}

func (f *fakeCloser) CloseConn(*websocket.Conn, int, string) {
	f.closed++
}

func TestCloseExpiredSessionsCoversAllRegistries(t *testing.T) {
	closer := &fakeCloser{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	closed := closeExpiredSessions(context.Background(), logger, closer, time.Minute,
		fakeSweeper{sessions: []session.Session{{ConnId: "c-room", RoomId: "r1", UserId: "u1"}}},
		fakeSweeper{sessions: []session.Session{{ConnId: "c-approval", RoomId: "r1", UserId: "u2"}}},
		fakeSweeper{sessions: []session.Session{{ConnId: "c-lobby"}}},
	)

	assert.Equal(t, 3, closed)
	assert.Equal(t, 3, closer.closed, "every namespace registry is swept, not just the room one")
}
