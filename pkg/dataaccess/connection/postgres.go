package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbMonitoring "github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess/monitoring"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultMaxConns = 10

// Postgres is the connection details of the ticket store.
type Postgres struct {
	// URL is the connection string.
	URL string

	// MaxConns is the size of the pool. The default is used when zero.
	MaxConns int32
}

// Connect opens a connection pool and checks the connection.
func (p *Postgres) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	if p.URL == "" {
		return nil, errors.New("postgres url is empty")
	}

	cfg, err := pgxpool.ParseConfig(p.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing postgres url: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	if p.MaxConns > 0 {
		cfg.MaxConns = p.MaxConns
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres pool: %w", err)
	}

	if err := PingPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PingPostgres checks that the pool can reach the database.
func PingPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	t := prometheus.NewTimer(dbMonitoring.PostgresLatency.WithLabelValues("health_check", "ping"))
	defer t.ObserveDuration()
	dbMonitoring.PostgresTotalRequests.WithLabelValues("health_check", "ping").Inc()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("error pinging postgres: %w", err)
	}
	return nil
}
