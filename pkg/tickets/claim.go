package tickets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
)

const msgTicketChanged = "The ticket changed while your request was processed. Please try again."

// Claim makes the actor the only handler of the ticket. The other handlers keep read access.
func (lc *Lifecycle) Claim(ctx context.Context, a Action) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if t.IsClaimed() {
		return nil, claimedError(t, a.ActorID)
	}

	if err := lc.requireManager(ctx, t, a.ActorID); err != nil {
		return nil, err
	}

	handlers, err := lc.handlerRoles(ctx, t)
	if err != nil {
		return nil, err
	}

	claimed, err := lc.store.ClaimTicket(ctx, t.GuildID, t.ID, a.ActorID)
	if err != nil {
		return nil, fmt.Errorf("error claiming ticket: %w", err)
	} else if !claimed {
		return nil, lc.raceError(ctx, t, a.ActorID)
	}

	if err := lc.perms.Lock(ctx, t.ChannelID, handlers, a.ActorID, t.UserID); err != nil {
		lc.rollbackClaim(ctx, t, handlers, a.ActorID)
		return nil, fmt.Errorf("error locking ticket channel: %w", err)
	}

	t.ClaimedBy = a.ActorID
	t.Status = entities.StatusClaimed

	lc.announce(ctx, t, fmt.Sprintf("This ticket has been claimed by %s.", mention(a.ActorID)))
	return t, nil
}

// rollbackClaim undoes a claim whose channel could not be locked.
func (lc *Lifecycle) rollbackClaim(ctx context.Context, t *entities.Ticket, handlers []string, claimant string) {
	l := lc.l.With(slog.String(logging.KeyTicket, t.ID), slog.String(logging.KeyGuild, t.GuildID))

	if _, err := lc.store.ReleaseClaim(ctx, t.GuildID, t.ID, claimant); err != nil {
		l.Error("Failed to roll back claim", slog.String(logging.KeyError, err.Error()))
	}

	if err := lc.perms.Unlock(ctx, t.ChannelID, handlers, "", t.UserID); err != nil {
		l.Warn("Failed to restore channel overwrites", slog.String(logging.KeyError, err.Error()))
	}

	if claimant != t.UserID {
		if err := lc.perms.RemoveParticipant(ctx, t.ChannelID, claimant); err != nil {
			l.Warn("Failed to remove claimant overwrite", slog.String(logging.KeyError, err.Error()))
		}
	}
}

// Unclaim gives the ticket back to every handler. Only the claimant can unclaim.
func (lc *Lifecycle) Unclaim(ctx context.Context, a Action) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if !t.IsClaimed() {
		return nil, newError(KindConflict, "This ticket is not claimed.")
	} else if t.ClaimedBy != a.ActorID {
		return nil, newError(KindAuthorization, "Only %s can unclaim this ticket.", mention(t.ClaimedBy))
	}

	handlers, err := lc.handlerRoles(ctx, t)
	if err != nil {
		return nil, err
	}

	released, err := lc.store.ReleaseClaim(ctx, t.GuildID, t.ID, a.ActorID)
	if err != nil {
		return nil, fmt.Errorf("error releasing claim: %w", err)
	} else if !released {
		return nil, lc.raceError(ctx, t, a.ActorID)
	}

	if err := lc.perms.Unlock(ctx, t.ChannelID, handlers, a.ActorID, t.UserID); err != nil {
		if _, rerr := lc.store.ClaimTicket(ctx, t.GuildID, t.ID, a.ActorID); rerr != nil {
			lc.l.Error("Failed to roll back unclaim",
				slog.String(logging.KeyTicket, t.ID),
				slog.String(logging.KeyError, rerr.Error()),
			)
		}
		return nil, fmt.Errorf("error unlocking ticket channel: %w", err)
	}

	t.ClaimedBy = ""
	t.Status = entities.StatusOpen

	lc.announce(ctx, t, fmt.Sprintf("%s has unclaimed this ticket. Any handler can now claim it.", mention(a.ActorID)))
	return t, nil
}

// Transfer hands the claim over to another handler. Only the claimant can transfer.
func (lc *Lifecycle) Transfer(ctx context.Context, a Action, newClaimant string) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if !t.IsClaimed() {
		return nil, newError(KindConflict, "This ticket is not claimed.")
	} else if t.ClaimedBy != a.ActorID {
		return nil, newError(KindAuthorization, "Only %s can transfer this ticket.", mention(t.ClaimedBy))
	}

	if newClaimant == "" {
		return nil, newError(KindValidation, "Please mention the user to transfer the ticket to.")
	} else if newClaimant == a.ActorID {
		return nil, newError(KindValidation, "You already own this ticket.")
	}

	handlers, err := lc.handlerRoles(ctx, t)
	if err != nil {
		return nil, err
	}

	ok, err := lc.holdsAny(ctx, t.GuildID, newClaimant, handlers)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, newError(KindValidation, "%s is not allowed to handle this ticket.", mention(newClaimant))
	}

	moved, err := lc.store.TransferClaim(ctx, t.GuildID, t.ID, a.ActorID, newClaimant)
	if err != nil {
		return nil, fmt.Errorf("error transferring claim: %w", err)
	} else if !moved {
		return nil, lc.raceError(ctx, t, a.ActorID)
	}

	if err := lc.perms.GrantParticipant(ctx, t.ChannelID, newClaimant); err != nil {
		if _, rerr := lc.store.TransferClaim(ctx, t.GuildID, t.ID, newClaimant, a.ActorID); rerr != nil {
			lc.l.Error("Failed to roll back transfer",
				slog.String(logging.KeyTicket, t.ID),
				slog.String(logging.KeyError, rerr.Error()),
			)
		}
		return nil, fmt.Errorf("error granting new claimant: %w", err)
	}

	if a.ActorID != t.UserID {
		if err := lc.perms.Demote(ctx, t.ChannelID, a.ActorID); err != nil {
			lc.l.Warn("Failed to demote former claimant",
				slog.String(logging.KeyTicket, t.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}

	t.ClaimedBy = newClaimant

	lc.announce(ctx, t, fmt.Sprintf("%s has transferred this ticket to %s.", mention(a.ActorID), mention(newClaimant)))
	return t, nil
}

// raceError explains why a conditional write did not apply by reading the ticket again.
func (lc *Lifecycle) raceError(ctx context.Context, t *entities.Ticket, actorID string) error {
	current, err := lc.store.GetTicketByID(ctx, t.GuildID, t.ID)
	if err != nil {
		return fmt.Errorf("error reloading ticket: %w", err)
	}

	switch {
	case current.IsClosed():
		return newError(KindConflict, messages.ErrTicketClosed)
	case current.IsClaimed() && t.Status == entities.StatusOpen:
		return claimedError(current, actorID)
	default:
		return newError(KindConflict, msgTicketChanged)
	}
}

func claimedError(t *entities.Ticket, actorID string) error {
	if t.ClaimedBy == actorID {
		return newError(KindConflict, "You have already claimed this ticket.")
	}
	return newError(KindConflict, "This ticket is already claimed by %s.", mention(t.ClaimedBy))
}
