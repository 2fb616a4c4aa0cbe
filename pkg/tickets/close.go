package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/ticketdesk/pkg/custom"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
)

// CloseResult is the outcome of closing a ticket.
type CloseResult struct {
	Ticket  *entities.Ticket
	Summary *Summary

	// Logged is true when the transcript reached the log channel.
	Logged bool

	// Archived is true when the transcript was saved to the archive.
	Archived bool
}

// CheckClose reports whether the actor may close the ticket in the channel without changing anything.
// A claimed ticket can only be closed by its claimant, an open ticket by any handler.
func (lc *Lifecycle) CheckClose(ctx context.Context, a Action) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if t.IsClaimed() {
		if t.ClaimedBy != a.ActorID {
			return nil, newError(KindAuthorization, "Only %s can close this ticket.", mention(t.ClaimedBy))
		}
		return t, nil
	}

	if err := lc.requireManager(ctx, t, a.ActorID); err != nil {
		return nil, err
	}
	return t, nil
}

// Close closes the ticket, delivers its transcript and deletes the channel. The status is persisted
// before anything else so a failure later on never leaves a live ticket without a channel.
func (lc *Lifecycle) Close(ctx context.Context, a Action) (*CloseResult, error) {
	t, err := lc.CheckClose(ctx, a)
	if err != nil {
		return nil, err
	}

	closed, err := lc.store.CloseTicket(ctx, t.GuildID, t.ID)
	if err != nil {
		return nil, fmt.Errorf("error closing ticket: %w", err)
	} else if !closed {
		return nil, newError(KindConflict, messages.ErrTicketClosed)
	}

	claimedBy := t.ClaimedBy
	t.Status = entities.StatusClosed
	t.ClaimedBy = ""

	res := &CloseResult{Ticket: t}
	lc.deliverTranscript(ctx, res, claimedBy, a.ActorID)

	if err := lc.platform.DeleteChannel(ctx, t.ChannelID); err != nil {
		return res, fmt.Errorf("error deleting ticket channel: %w", err)
	}

	return res, nil
}

// deliverTranscript sends the transcript to the log channel and the archive. Neither is required for
// the close to succeed.
func (lc *Lifecycle) deliverTranscript(ctx context.Context, res *CloseResult, claimedBy, closedBy string) {
	t := res.Ticket
	l := lc.l.With(
		slog.String(logging.KeyGuild, t.GuildID),
		slog.String(logging.KeyTicket, t.ID),
	)

	msgs, err := lc.platform.RecentMessages(ctx, t.ChannelID, TranscriptLimit)
	if err != nil {
		l.Warn("Failed to fetch ticket messages", slog.String(logging.KeyError, err.Error()))
		msgs = nil
	}

	closedAt := lc.now().UTC()
	res.Summary = NewSummary(t, claimedBy, closedBy, closedAt, len(msgs))
	content := RenderTranscript(res.Summary, msgs)

	cfg, err := lc.store.GetGuildConfig(ctx, t.GuildID)
	switch {
	case errors.Is(err, dataaccess.ErrGuildConfigNotFound):
		l.Warn("No log channel configured, transcript not logged")
	case err != nil:
		l.Warn("Failed to get guild config for transcript", slog.String(logging.KeyError, err.Error()))
	case cfg.LogChannelID == "":
		l.Warn("No log channel configured, transcript not logged")
	default:
		filename := fmt.Sprintf("transcript-%s.txt", t.Name())
		if err := lc.platform.SendTranscript(ctx, cfg.LogChannelID, res.Summary, filename, content); err != nil {
			l.Warn("Failed to send transcript to log channel", slog.String(logging.KeyError, err.Error()))
		} else {
			res.Logged = true
		}
	}

	if lc.archive == nil {
		return
	}

	snapshot := *t
	snapshot.ClaimedBy = claimedBy
	err = lc.archive.SaveTranscript(ctx, &entities.Transcript{
		ID:           lc.newID(),
		Ticket:       snapshot,
		ClosedBy:     closedBy,
		ClosedAt:     custom.Datetime(closedAt),
		MessageCount: len(msgs),
		Content:      string(content),
	})
	if err != nil {
		l.Warn("Failed to archive transcript", slog.String(logging.KeyError, err.Error()))
		return
	}
	res.Archived = true
}
