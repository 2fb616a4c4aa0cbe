package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess/connection"
	"github.com/alexliesenfeld/health"
)

func (a *App) statusListener(component string) func(ctx context.Context, name string, state health.CheckState) {
	return func(ctx context.Context, name string, state health.CheckState) {
		a.Info(fmt.Sprintf("%s health check status changed", component),
			slog.String("name", name),
			slog.String("state", string(state.Status)),
		)
	}
}

func (a *App) healthCheck() Controller {
	opts := []health.CheckerOption{
		// Set a TTL of 1 second for the results of the checks.
		health.WithCacheDuration(1 * time.Second),

		// Set a timeout of 2 seconds for the checks.
		health.WithTimeout(2 * time.Second),

		// Monitor the health of the ticket store (Postgres).
		health.WithCheck(health.Check{
			Name: "Postgres",
			Check: func(ctx context.Context) error {
				return connection.PingPostgres(ctx, a.pool)
			},
			Timeout:        2 * time.Second,
			StatusListener: a.statusListener("Postgres"),
		}),

		// Monitor the health of the Discord API.
		health.WithPeriodicCheck(15*time.Second, 5*time.Second, health.Check{
			Name: "Discord_API",
			Check: func(ctx context.Context) error {
				if _, err := a.s.GatewayBot(discordgo.WithContext(ctx)); err != nil {
					return fmt.Errorf("failed to ping Discord API: %w", err)
				}
				return nil
			},
			Timeout:        3 * time.Second,
			StatusListener: a.statusListener("Discord API"),
		}),
	}

	// The archive is optional, it is only checked when it is in use.
	if a.mongo != nil {
		opts = append(opts, health.WithCheck(health.Check{
			Name: "MongoDB",
			Check: func(ctx context.Context) error {
				return connection.PingMongo(ctx, a.mongo)
			},
			Timeout:        2 * time.Second,
			StatusListener: a.statusListener("MongoDB"),
		}))
	}

	return health.NewHandler(health.NewChecker(opts...)).ServeHTTP
}
