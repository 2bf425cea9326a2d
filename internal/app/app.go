package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamhub/server/internal/broadcast"
	"github.com/jamhub/server/internal/controller"
	"github.com/jamhub/server/internal/presence"
	roomredis "github.com/jamhub/server/internal/repository/room/redis"
	"github.com/jamhub/server/internal/repository/session"
	"github.com/jamhub/server/internal/repository/session/inmemory"
	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/internal/service/voice"
	"github.com/jamhub/server/pkg/ctxlogger"
	"github.com/jamhub/server/pkg/keylock"
	"github.com/jamhub/server/pkg/redisclient"
)

type AppConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	LogLevel           string        `json:"log_level"`
	LogPath            string        `json:"log_path"`
	GracePeriod        time.Duration `json:"grace_period"`
	StaleThreshold     time.Duration `json:"stale_threshold"`
	SweepInterval      time.Duration `json:"sweep_interval"`
	SessionMaxInactive time.Duration `json:"session_max_inactive"`
	RedisHost          string        `json:"redis_host"`
	RedisPort          int           `json:"redis_port"`
	RedisPassword      string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive")
	}
	if cfg.StaleThreshold <= 0 {
		return fmt.Errorf("stale threshold must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if cfg.SessionMaxInactive < cfg.StaleThreshold {
		return fmt.Errorf("session max inactive must not be below the stale threshold")
	}
	return nil
}

type iSessionSweeper interface {
	SweepExpired(maxInactive time.Duration) []session.Session
}

type iConnCloser interface {
	CloseConn(conn *websocket.Conn, code int, reason string)
}

// closeExpiredSessions reaps silent sockets across every namespace registry.
// Closing the connection wakes its read loop, so the normal disconnect path
// runs for each reaped socket.
func closeExpiredSessions(ctx context.Context, logger *slog.Logger, closer iConnCloser, maxInactive time.Duration, registries ...iSessionSweeper) int {
	closed := 0
	for _, reg := range registries {
		for _, sess := range reg.SweepExpired(maxInactive) {
			logger.InfoContext(ctx, "closing inactive session",
				"room_id", sess.RoomId, "user_id", sess.UserId, "namespace", sess.NamespacePath)
			closer.CloseConn(sess.Conn, websocket.ClosePolicyViolation, "session expired")
			closed++
		}
	}

	return closed
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	logOutput := os.Stdout
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOutput = f
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := roomredis.NewRepo(rc, logger)
	roomSessions := inmemory.NewRepo(logger)
	approvalSessions := inmemory.NewRepo(logger)
	monitorSessions := inmemory.NewRepo(logger)

	gateway := broadcast.NewGateway(roomSessions, approvalSessions, monitorSessions, logger)
	locks := keylock.New()
	monitor := presence.NewMonitor(presence.DefaultGraceWindow, cfg.StaleThreshold)

	voiceService := voice.NewService(gateway, monitor, locks, logger)

	roomService := room.NewService(roomRepo, roomSessions, approvalSessions, gateway, voiceService, locks, logger, &room.Config{
		GracePeriod: cfg.GracePeriod,
	})
	defer roomService.Close()

	ctrl := controller.NewController(roomService, voiceService, gateway, monitorSessions, roomSessions, approvalSessions, logger)
	defer ctrl.Close()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	// periodic sweeps: evict voice participants whose heartbeats stopped and
	// close room sockets that went silent past the inactivity limit
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-serverCtx.Done():
				return
			case <-ticker.C:
				if evicted := voiceService.StaleSweep(serverCtx); evicted > 0 {
					logger.InfoContext(serverCtx, "voice stale sweep", "evicted", evicted)
				}

				closeExpiredSessions(serverCtx, logger, gateway, cfg.SessionMaxInactive,
					roomSessions, approvalSessions, monitorSessions)
			}
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case <-serverCtx.Done():
			return
		case <-sig:
		}

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
