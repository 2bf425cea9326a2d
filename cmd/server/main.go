package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jamhub/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	logPath = configVar[string]{
		envKey:       "SERVER_LOG_PATH",
		flagKey:      "log-path",
		defaultValue: "",
	}
	gracePeriod = configVar[time.Duration]{
		envKey:       "SERVER_GRACE_PERIOD",
		flagKey:      "grace-period",
		defaultValue: 30 * time.Second,
	}
	staleThreshold = configVar[time.Duration]{
		envKey:       "SERVER_STALE_THRESHOLD",
		flagKey:      "stale-threshold",
		defaultValue: 60 * time.Second,
	}
	sweepInterval = configVar[time.Duration]{
		envKey:       "SERVER_SWEEP_INTERVAL",
		flagKey:      "sweep-interval",
		defaultValue: 30 * time.Second,
	}
	sessionMaxInactive = configVar[time.Duration]{
		envKey:       "SERVER_SESSION_MAX_INACTIVE",
		flagKey:      "session-max-inactive",
		defaultValue: 5 * time.Minute,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(logPath.flagKey, logPath.defaultValue, "Log file path, empty for stdout")
	pflag.Duration(gracePeriod.flagKey, gracePeriod.defaultValue, "How long a disconnected user keeps their place in a room")
	pflag.Duration(staleThreshold.flagKey, staleThreshold.defaultValue, "Heartbeat age after which a voice participant is considered stale")
	pflag.Duration(sweepInterval.flagKey, sweepInterval.defaultValue, "Interval between stale sweeps")
	pflag.Duration(sessionMaxInactive.flagKey, sessionMaxInactive.defaultValue, "Inactivity after which a room socket is closed")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(logPath.flagKey, logPath.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(staleThreshold.flagKey, staleThreshold.envKey)
	viper.BindEnv(sweepInterval.flagKey, sweepInterval.envKey)
	viper.BindEnv(sessionMaxInactive.flagKey, sessionMaxInactive.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(logPath.flagKey, logPath.defaultValue)
	viper.SetDefault(gracePeriod.flagKey, gracePeriod.defaultValue)
	viper.SetDefault(staleThreshold.flagKey, staleThreshold.defaultValue)
	viper.SetDefault(sweepInterval.flagKey, sweepInterval.defaultValue)
	viper.SetDefault(sessionMaxInactive.flagKey, sessionMaxInactive.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.AppConfig{
		Host:               viper.GetString(host.flagKey),
		Port:               viper.GetInt(port.flagKey),
		LogLevel:           viper.GetString(logLevel.flagKey),
		LogPath:            viper.GetString(logPath.flagKey),
		GracePeriod:        viper.GetDuration(gracePeriod.flagKey),
		StaleThreshold:     viper.GetDuration(staleThreshold.flagKey),
		SweepInterval:      viper.GetDuration(sweepInterval.flagKey),
		SessionMaxInactive: viper.GetDuration(sessionMaxInactive.flagKey),
		RedisHost:          viper.GetString(redisHost.flagKey),
		RedisPort:          viper.GetInt(redisPort.flagKey),
		RedisPassword:      viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
