package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

const blacklistDalName = "blacklist_dal"

// BlacklistDal is the data access layer for the ticket blacklist.
type BlacklistDal interface {
	// IsBlacklisted returns the blacklist entry of the user, or nil when the user is not blacklisted.
	IsBlacklisted(ctx context.Context, userID, guildID string) (*entities.BlacklistEntry, error)

	// AddBlacklist blacklists a user. False is returned when the user was already blacklisted.
	AddBlacklist(ctx context.Context, entry *entities.BlacklistEntry) (bool, error)

	// RemoveBlacklist removes a user from the blacklist. False is returned when there was no entry.
	RemoveBlacklist(ctx context.Context, userID, guildID string) (bool, error)

	// ListBlacklist lists the blacklist of the guild, newest first.
	ListBlacklist(ctx context.Context, guildID string) ([]*entities.BlacklistEntry, error)
}

type blacklistDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// pool is the database connection pool.
	pool *pgxpool.Pool
}

// NewBlacklistDal creates a new blacklist data access layer.
func NewBlacklistDal(l *slog.Logger, pool *pgxpool.Pool) BlacklistDal {
	return &blacklistDalImpl{
		l:    l.With(slog.String(logging.KeyDal, blacklistDalName)),
		pool: pool,
	}
}

func (b *blacklistDalImpl) IsBlacklisted(ctx context.Context, userID, guildID string) (*entities.BlacklistEntry, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(blacklistDalName, "is_blacklisted").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(blacklistDalName, "is_blacklisted"))
	defer t.ObserveDuration()

	entry := new(entities.BlacklistEntry)
	err := b.pool.QueryRow(ctx, `
		SELECT user_id, guild_id, reason, blacklisted_by, created_at
		FROM blacklist WHERE user_id = $1 AND guild_id = $2
	`, userID, guildID).Scan(&entry.UserID, &entry.GuildID, &entry.Reason, &entry.BlacklistedBy, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("error getting blacklist entry: %w", err)
	}
	return entry, nil
}

func (b *blacklistDalImpl) AddBlacklist(ctx context.Context, entry *entities.BlacklistEntry) (bool, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(blacklistDalName, "add_blacklist").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(blacklistDalName, "add_blacklist"))
	defer t.ObserveDuration()

	tag, err := b.pool.Exec(ctx, `
		INSERT INTO blacklist (user_id, guild_id, reason, blacklisted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, guild_id) DO NOTHING
	`, entry.UserID, entry.GuildID, entry.Reason, entry.BlacklistedBy)
	if err != nil {
		return false, fmt.Errorf("error adding blacklist entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (b *blacklistDalImpl) RemoveBlacklist(ctx context.Context, userID, guildID string) (bool, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(blacklistDalName, "remove_blacklist").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(blacklistDalName, "remove_blacklist"))
	defer t.ObserveDuration()

	tag, err := b.pool.Exec(ctx, `DELETE FROM blacklist WHERE user_id = $1 AND guild_id = $2`, userID, guildID)
	if err != nil {
		return false, fmt.Errorf("error removing blacklist entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (b *blacklistDalImpl) ListBlacklist(ctx context.Context, guildID string) ([]*entities.BlacklistEntry, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(blacklistDalName, "list_blacklist").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(blacklistDalName, "list_blacklist"))
	defer t.ObserveDuration()

	rows, err := b.pool.Query(ctx, `
		SELECT user_id, guild_id, reason, blacklisted_by, created_at
		FROM blacklist WHERE guild_id = $1
		ORDER BY created_at DESC, user_id
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("error listing blacklist: %w", err)
	}
	defer rows.Close()

	entries := make([]*entities.BlacklistEntry, 0)
	for rows.Next() {
		entry := new(entities.BlacklistEntry)
		if err := rows.Scan(&entry.UserID, &entry.GuildID, &entry.Reason, &entry.BlacklistedBy, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist: %w", err)
	}

	return entries, nil
}
