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

const ticketDalName = "ticket_dal"

const ticketColumns = `ticket_id, guild_id, channel_id, user_id, ticket_type, tier, claimed_by, status, trade_details, created_at`

// TicketDal is the data access layer for tickets.
type TicketDal interface {
	// NextTicketNumber increments the ticket counter of the guild and returns the new value.
	NextTicketNumber(ctx context.Context, guildID string) (int64, error)

	// CreateTicket saves a new ticket.
	CreateTicket(ctx context.Context, t *entities.Ticket) error

	// GetTicketByChannel gets the ticket that lives in the channel.
	GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error)

	// GetTicketByID gets a ticket by its ID within the guild.
	GetTicketByID(ctx context.Context, guildID, id string) (*entities.Ticket, error)

	// SetClaim sets the claimant and status of a ticket regardless of its current state.
	SetClaim(ctx context.Context, guildID, id, claimant string, status entities.TicketStatus) error

	// SetStatus sets the status of a ticket regardless of its current state.
	SetStatus(ctx context.Context, guildID, id string, status entities.TicketStatus) error

	// ClaimTicket claims an open, unclaimed ticket. False is returned when the ticket was not open.
	ClaimTicket(ctx context.Context, guildID, id, claimant string) (bool, error)

	// ReleaseClaim returns a ticket claimed by the claimant to open.
	ReleaseClaim(ctx context.Context, guildID, id, claimant string) (bool, error)

	// TransferClaim moves a claim from one user to another.
	TransferClaim(ctx context.Context, guildID, id, from, to string) (bool, error)

	// CloseTicket closes a ticket that is not already closed.
	CloseTicket(ctx context.Context, guildID, id string) (bool, error)

	// OpenTicketCountForUser counts the tickets of the user in the guild that are not closed.
	OpenTicketCountForUser(ctx context.Context, userID, guildID string) (int, error)
}

type ticketDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// pool is the database connection pool.
	pool *pgxpool.Pool
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(l *slog.Logger, pool *pgxpool.Pool) TicketDal {
	return &ticketDalImpl{
		l:    l.With(slog.String(logging.KeyDal, ticketDalName)),
		pool: pool,
	}
}

func (d *ticketDalImpl) NextTicketNumber(ctx context.Context, guildID string) (int64, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "next_ticket_number").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "next_ticket_number"))
	defer t.ObserveDuration()

	var n int64
	err := d.pool.QueryRow(ctx, `
		INSERT INTO config (guild_id, ticket_counter) VALUES ($1, 1)
		ON CONFLICT (guild_id) DO UPDATE SET ticket_counter = config.ticket_counter + 1
		RETURNING ticket_counter
	`, guildID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error incrementing ticket counter: %w", err)
	}
	return n, nil
}

func (d *ticketDalImpl) CreateTicket(ctx context.Context, ticket *entities.Ticket) error {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "create_ticket").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "create_ticket"))
	defer t.ObserveDuration()

	details := ticket.TradeDetails
	if details == nil {
		details = entities.TradeDetails{}
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ticket.ID, ticket.GuildID, ticket.ChannelID, ticket.UserID, string(ticket.Type), string(ticket.Tier),
		nullString(ticket.ClaimedBy), string(ticket.Status), details, ticket.CreatedAt)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "tickets_one_open_per_user" {
			return ErrOpenTicketExists
		}
		return ErrDuplicateTicket
	} else if err != nil {
		return fmt.Errorf("error inserting ticket: %w", err)
	}
	return nil
}

func (d *ticketDalImpl) GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_channel").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "get_ticket_by_channel"))
	defer t.ObserveDuration()

	row := d.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE channel_id = $1`, channelID)
	return scanTicket(row)
}

func (d *ticketDalImpl) GetTicketByID(ctx context.Context, guildID, id string) (*entities.Ticket, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_id").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "get_ticket_by_id"))
	defer t.ObserveDuration()

	row := d.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE guild_id = $1 AND ticket_id = $2`, guildID, id)
	return scanTicket(row)
}

func (d *ticketDalImpl) SetClaim(ctx context.Context, guildID, id, claimant string, status entities.TicketStatus) error {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "set_claim").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "set_claim"))
	defer t.ObserveDuration()

	tag, err := d.pool.Exec(ctx, `
		UPDATE tickets SET claimed_by = $3, status = $4
		WHERE guild_id = $1 AND ticket_id = $2
	`, guildID, id, nullString(claimant), string(status))
	if err != nil {
		return fmt.Errorf("error setting ticket claim: %w", err)
	} else if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (d *ticketDalImpl) SetStatus(ctx context.Context, guildID, id string, status entities.TicketStatus) error {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "set_status").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "set_status"))
	defer t.ObserveDuration()

	tag, err := d.pool.Exec(ctx, `
		UPDATE tickets SET status = $3
		WHERE guild_id = $1 AND ticket_id = $2
	`, guildID, id, string(status))
	if err != nil {
		return fmt.Errorf("error setting ticket status: %w", err)
	} else if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (d *ticketDalImpl) ClaimTicket(ctx context.Context, guildID, id, claimant string) (bool, error) {
	return d.conditional(ctx, "claim_ticket", `
		UPDATE tickets SET claimed_by = $3, status = 'claimed'
		WHERE guild_id = $1 AND ticket_id = $2 AND status = 'open' AND claimed_by IS NULL
	`, guildID, id, claimant)
}

func (d *ticketDalImpl) ReleaseClaim(ctx context.Context, guildID, id, claimant string) (bool, error) {
	return d.conditional(ctx, "release_claim", `
		UPDATE tickets SET claimed_by = NULL, status = 'open'
		WHERE guild_id = $1 AND ticket_id = $2 AND status = 'claimed' AND claimed_by = $3
	`, guildID, id, claimant)
}

func (d *ticketDalImpl) TransferClaim(ctx context.Context, guildID, id, from, to string) (bool, error) {
	return d.conditional(ctx, "transfer_claim", `
		UPDATE tickets SET claimed_by = $4
		WHERE guild_id = $1 AND ticket_id = $2 AND status = 'claimed' AND claimed_by = $3
	`, guildID, id, from, to)
}

func (d *ticketDalImpl) CloseTicket(ctx context.Context, guildID, id string) (bool, error) {
	return d.conditional(ctx, "close_ticket", `
		UPDATE tickets SET claimed_by = NULL, status = 'closed'
		WHERE guild_id = $1 AND ticket_id = $2 AND status <> 'closed'
	`, guildID, id)
}

// conditional runs an update that only applies when its precondition holds and reports whether it did.
func (d *ticketDalImpl) conditional(ctx context.Context, query, sql string, args ...any) (bool, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, query).Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, query))
	defer t.ObserveDuration()

	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error running %s: %w", query, err)
	}

	if tag.RowsAffected() == 0 {
		d.l.Debug("Conditional ticket update did not apply", slog.String("query", query))
		return false, nil
	}
	return true, nil
}

func (d *ticketDalImpl) OpenTicketCountForUser(ctx context.Context, userID, guildID string) (int, error) {
	monitoring.PostgresTotalRequests.WithLabelValues(ticketDalName, "open_ticket_count").Inc()
	t := prometheus.NewTimer(monitoring.PostgresLatency.WithLabelValues(ticketDalName, "open_ticket_count"))
	defer t.ObserveDuration()

	var n int
	err := d.pool.QueryRow(ctx, `
		SELECT count(*) FROM tickets
		WHERE guild_id = $1 AND user_id = $2 AND status <> 'closed'
	`, guildID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("error counting open tickets: %w", err)
	}
	return n, nil
}

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var (
		ticket          entities.Ticket
		ticketType      string
		tier            string
		claimedBy       *string
		status          string
		tradeDetailsMap map[string]string
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.ChannelID,
		&ticket.UserID,
		&ticketType,
		&tier,
		&claimedBy,
		&status,
		&tradeDetailsMap,
		&ticket.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error scanning ticket: %w", err)
	}

	ticket.Type = entities.TicketType(ticketType)
	ticket.Tier = entities.Tier(tier)
	ticket.ClaimedBy = fromNull(claimedBy)
	ticket.Status = entities.TicketStatus(status)
	if len(tradeDetailsMap) > 0 {
		ticket.TradeDetails = tradeDetailsMap
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()

	return &ticket, nil
}
