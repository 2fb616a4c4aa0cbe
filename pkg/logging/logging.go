package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	// KeyError is the key for errors.
	KeyError = "err"

	// KeyDal is the key for the data access layer name.
	KeyDal = "dal"

	// KeyGuild is the key for a guild ID.
	KeyGuild = "guild_id"

	// KeyChannel is the key for a channel ID.
	KeyChannel = "channel_id"

	// KeyUser is the key for a user ID.
	KeyUser = "user_id"

	// KeyTicket is the key for a ticket ID.
	KeyTicket = "ticket_id"

	// KeyCommand is the key for a command or component name.
	KeyCommand = "command"

	// KeyEvent is the key for the correlation ID of a single discord event.
	KeyEvent = "event_id"

	// KeyApp is the key for the application name.
	KeyApp = "app"
)

// EnvLogLevel is the environment variable that overrides the log level.
const EnvLogLevel = `LOG_LEVEL`

// Name is the name of the application the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// appName is the name of the application.
	appName Name

	// level is the minimum level that will be logged.
	level slog.Level
}

// NewConfig creates a new logging configuration for the named application.
func NewConfig(appName Name) *Config {
	return &Config{
		appName: appName,
		level:   levelFromEnv(),
	}
}

// CommonLogger creates the JSON logger used across the application and sets it as the default.
func CommonLogger(cfg *Config) (*slog.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config is nil")
	}
	if cfg.appName == "" {
		return nil, fmt.Errorf("logging config has no application name")
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: cfg.level == slog.LevelDebug,
		Level:     cfg.level,
	})

	l := slog.New(h).With(slog.String(KeyApp, string(cfg.appName)))
	slog.SetDefault(l)
	return l, nil
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
