package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
	"github.com/Jacobbrewer1/ticketdesk/pkg/permissions"
)

// OpenRequest is a user asking for a new ticket.
type OpenRequest struct {
	GuildID string
	UserID  string
	Type    entities.TicketType
	Tier    entities.Tier
	Details entities.TradeDetails
}

// Open creates a ticket and its channel. The ticket number is allocated before the channel is created
// and the row is persisted last, deleting the channel again if the row cannot be written.
func (lc *Lifecycle) Open(ctx context.Context, req *OpenRequest) (*entities.Ticket, error) {
	if lc.locks.IsLocked(req.GuildID) {
		return nil, newError(KindConflict, messages.ErrTicketsLocked)
	}

	entry, err := lc.store.IsBlacklisted(ctx, req.UserID, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error checking blacklist: %w", err)
	} else if entry != nil {
		msg := "You are blacklisted from opening tickets."
		if entry.Reason != "" {
			msg = fmt.Sprintf("You are blacklisted from opening tickets. Reason: %s", entry.Reason)
		}
		return nil, newError(KindAuthorization, "%s", msg)
	}

	count, err := lc.store.OpenTicketCountForUser(ctx, req.UserID, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error counting open tickets: %w", err)
	} else if count > 0 {
		return nil, newError(KindConflict, messages.ErrAlreadyOpen)
	}

	cfg, err := lc.store.GetGuildConfig(ctx, req.GuildID)
	if errors.Is(err, dataaccess.ErrGuildConfigNotFound) {
		return nil, newError(KindConfiguration, messages.ErrCategoryNotSet)
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	} else if cfg.TicketCategoryID == "" {
		return nil, newError(KindConfiguration, messages.ErrCategoryNotSet)
	}

	if !req.Type.Valid() {
		return nil, newError(KindValidation, "Unknown ticket type %q.", req.Type)
	} else if !req.Tier.ValidFor(req.Type) {
		return nil, newError(KindValidation, "Tier %q cannot be used for %s tickets.", req.Tier, req.Type)
	}

	t := &entities.Ticket{
		GuildID:      req.GuildID,
		UserID:       req.UserID,
		Type:         req.Type,
		Tier:         req.Tier,
		Status:       entities.StatusOpen,
		TradeDetails: req.Details,
		CreatedAt:    lc.now().UTC(),
	}

	handlers, err := lc.handlerRoles(ctx, t)
	if err != nil {
		return nil, err
	} else if len(handlers) == 0 {
		return nil, newError(KindConfiguration, "No role has been configured to handle %s tickets.", ticketKind(t))
	}

	n, err := lc.store.NextTicketNumber(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error allocating ticket number: %w", err)
	}
	t.ID = entities.FormatTicketID(n)

	channelID, err := lc.platform.CreateChannel(ctx, &ChannelRequest{
		GuildID:    t.GuildID,
		CategoryID: cfg.TicketCategoryID,
		Name:       t.Name(),
		Topic:      fmt.Sprintf("Ticket %s opened by %s", t.ID, mention(t.UserID)),
		Overwrites: permissions.InitialOverwrites(t.GuildID, t.UserID, lc.botID, handlers),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}
	t.ChannelID = channelID

	if err := lc.store.CreateTicket(ctx, t); err != nil {
		lc.discardChannel(ctx, t)

		switch {
		case errors.Is(err, dataaccess.ErrOpenTicketExists):
			return nil, newError(KindConflict, messages.ErrAlreadyOpen)
		case errors.Is(err, dataaccess.ErrDuplicateTicket):
			return nil, newError(KindConflict, "Another ticket was created at the same time. Please try again.")
		default:
			return nil, fmt.Errorf("error creating ticket: %w", err)
		}
	}

	lc.announce(ctx, t, welcomeMessage(t, handlers))
	return t, nil
}

// discardChannel removes a channel whose ticket could not be persisted.
func (lc *Lifecycle) discardChannel(ctx context.Context, t *entities.Ticket) {
	if err := lc.platform.DeleteChannel(ctx, t.ChannelID); err != nil {
		lc.l.Warn("Failed to delete orphaned ticket channel",
			slog.String(logging.KeyGuild, t.GuildID),
			slog.String(logging.KeyChannel, t.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func ticketKind(t *entities.Ticket) string {
	if t.Tier != entities.TierNone {
		return string(t.Tier)
	}
	return string(t.Type)
}

func welcomeMessage(t *entities.Ticket, handlers []string) string {
	pings := make([]string, 0, len(handlers))
	for _, id := range handlers {
		pings = append(pings, fmt.Sprintf("<@&%s>", id))
	}

	return fmt.Sprintf("Welcome %s! A member of %s will be with you shortly. Use `claim` to take this ticket.",
		mention(t.UserID), strings.Join(pings, " "))
}
