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

const guildDalName = "guild_dal"

const configColumns = `guild_id, ticket_category_id, log_channel_id, ticket_counter, staff_role_id, lowtier_role_id,
	midtier_role_id, hightier_role_id, verify_channel_id, verified_role_id, unverified_role_id, member_role_id`

// GuildDal is the data access layer for guild configuration.
type GuildDal interface {
	// GetGuildConfig gets the configuration of a guild.
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error)

	// UpsertGuildConfig merges the patch into the configuration of the guild, creating it when missing.
	UpsertGuildConfig(ctx context.Context, guildID string, patch *entities.GuildConfigPatch) (*entities.GuildConfig, error)
}

type guildDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// pool is the database connection pool.
	pool *pgxpool.Pool
}

// NewGuildDal creates a new guild data access layer.
func NewGuildDal(l *slog.Logger, pool *pgxpool.Pool) GuildDal {
	return &guildDalImpl{
		l:    l.With(slog.String(logging.KeyDal, guildDalName)),
		pool: pool,
	}
}

func (g *guildDalImpl) GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(guildDalName, "get_guild_config").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(guildDalName, "get_guild_config"))
	defer t.ObserveDuration()

	row := g.pool.QueryRow(ctx, `SELECT `+configColumns+` FROM config WHERE guild_id = $1`, guildID)
	return scanGuildConfig(row)
}

func (g *guildDalImpl) UpsertGuildConfig(ctx context.Context, guildID string, patch *entities.GuildConfigPatch) (*entities.GuildConfig, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(guildDalName, "upsert_guild_config").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(guildDalName, "upsert_guild_config"))
	defer t.ObserveDuration()

	if patch == nil {
		patch = new(entities.GuildConfigPatch)
	}

	row := g.pool.QueryRow(ctx, `
		INSERT INTO config (guild_id, ticket_category_id, log_channel_id, staff_role_id, lowtier_role_id,
			midtier_role_id, hightier_role_id, verify_channel_id, verified_role_id, unverified_role_id, member_role_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (guild_id) DO UPDATE SET
			ticket_category_id = COALESCE(EXCLUDED.ticket_category_id, config.ticket_category_id),
			log_channel_id = COALESCE(EXCLUDED.log_channel_id, config.log_channel_id),
			staff_role_id = COALESCE(EXCLUDED.staff_role_id, config.staff_role_id),
			lowtier_role_id = COALESCE(EXCLUDED.lowtier_role_id, config.lowtier_role_id),
			midtier_role_id = COALESCE(EXCLUDED.midtier_role_id, config.midtier_role_id),
			hightier_role_id = COALESCE(EXCLUDED.hightier_role_id, config.hightier_role_id),
			verify_channel_id = COALESCE(EXCLUDED.verify_channel_id, config.verify_channel_id),
			verified_role_id = COALESCE(EXCLUDED.verified_role_id, config.verified_role_id),
			unverified_role_id = COALESCE(EXCLUDED.unverified_role_id, config.unverified_role_id),
			member_role_id = COALESCE(EXCLUDED.member_role_id, config.member_role_id)
		RETURNING `+configColumns,
		guildID,
		patch.TicketCategoryID,
		patch.LogChannelID,
		patch.StaffRoleID,
		patch.LowTierRoleID,
		patch.MidTierRoleID,
		patch.HighTierRoleID,
		patch.VerifyChannelID,
		patch.VerifiedRoleID,
		patch.UnverifiedRoleID,
		patch.MemberRoleID,
	)

	cfg, err := scanGuildConfig(row)
	if err != nil {
		return nil, fmt.Errorf("error upserting guild config: %w", err)
	}

	g.l.Debug("Guild config updated", slog.String(logging.KeyGuild, guildID))
	return cfg, nil
}

func scanGuildConfig(row pgx.Row) (*entities.GuildConfig, error) {
	var (
		cfg     entities.GuildConfig
		columns [10]*string
	)

	err := row.Scan(
		&cfg.GuildID,
		&columns[0],
		&columns[1],
		&cfg.TicketCounter,
		&columns[2],
		&columns[3],
		&columns[4],
		&columns[5],
		&columns[6],
		&columns[7],
		&columns[8],
		&columns[9],
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGuildConfigNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error scanning guild config: %w", err)
	}

	cfg.TicketCategoryID = fromNull(columns[0])
	cfg.LogChannelID = fromNull(columns[1])
	cfg.StaffRoleID = fromNull(columns[2])
	cfg.LowTierRoleID = fromNull(columns[3])
	cfg.MidTierRoleID = fromNull(columns[4])
	cfg.HighTierRoleID = fromNull(columns[5])
	cfg.VerifyChannelID = fromNull(columns[6])
	cfg.VerifiedRoleID = fromNull(columns[7])
	cfg.UnverifiedRoleID = fromNull(columns[8])
	cfg.MemberRoleID = fromNull(columns[9])

	return &cfg, nil
}
