package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/roles"
)

// ErrMissingEnv is returned when a required environment variable is not set.
var ErrMissingEnv = errors.New("missing required environment variable")

// Config is the runtime configuration of the bot.
type Config struct {
	// BotToken is the token for the bot.
	BotToken string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// MongoUri is the URI for the MongoDB transcript archive.
	MongoUri string

	// MongoDatabase is the database transcripts are archived in.
	MongoDatabase string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string

	// CommandPrefix is the prefix for text commands.
	CommandPrefix string

	// RoleNames are the role names used to find roles that have not been configured.
	RoleNames roles.Names
}

// ArchiveEnabled reports whether transcripts should be archived to MongoDB.
func (c *Config) ArchiveEnabled() bool {
	return c.MongoUri != ""
}

// Parse reads the configuration from the environment.
func Parse(l *slog.Logger) (*Config, error) {
	return parse(l, os.Getenv)
}

func parse(l *slog.Logger, getenv func(string) string) (*Config, error) {
	c := &Config{
		RoleNames: roles.DefaultNames(),
	}

	var missing []string
	required := func(key string, dst *string) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			missing = append(missing, key)
			return
		}
		l.Debug("Found value in environment", slog.String("key", key))
		*dst = v
	}
	optional := func(key, def string, dst *string) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			*dst = def
			if def != "" {
				l.Info("No value provided in environment, using default",
					slog.String("key", key),
					slog.String("default", def),
				)
			}
			return
		}
		l.Debug("Found value in environment", slog.String("key", key))
		*dst = v
	}

	required(EnvBotToken, &c.BotToken)
	required(EnvDatabaseURL, &c.DatabaseURL)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	optional(EnvMongoUri, "", &c.MongoUri)
	optional(EnvMongoDatabase, defaultMongoDatabase, &c.MongoDatabase)
	optional(EnvMonitoringPort, defaultMonitoringPort, &c.MonitoringPort)
	optional(EnvCommandPrefix, defaultCommandPrefix, &c.CommandPrefix)

	roleEnvs := map[entities.RoleCategory]string{
		entities.RoleStaff:    EnvStaffRoleName,
		entities.RoleLowTier:  EnvLowTierRoleName,
		entities.RoleMidTier:  EnvMidTierRoleName,
		entities.RoleHighTier: EnvHighTierRoleName,
	}
	for category, key := range roleEnvs {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			c.RoleNames[category] = v
		}
	}

	return c, nil
}
