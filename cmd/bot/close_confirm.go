package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/ratelimit"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
)

const (
	// CloseConfirmButtonID is the ID for the button that confirms a close.
	CloseConfirmButtonID = "close_confirm_button"

	// CloseCancelButtonID is the ID for the button that cancels a close.
	CloseCancelButtonID = "close_cancel_button"

	// closeConfirmTimeout is how long a close prompt waits before cancelling itself.
	closeConfirmTimeout = 30 * time.Second
)

// pendingClose is a close prompt waiting for its requester to answer.
type pendingClose struct {
	action tickets.Action
	timer  *time.Timer
}

// closeConfirmations tracks the open close prompts by the ID of the prompt message.
type closeConfirmations struct {
	mu      sync.Mutex
	pending map[string]*pendingClose
	timeout time.Duration
}

func newCloseConfirmations() *closeConfirmations {
	return &closeConfirmations{
		pending: make(map[string]*pendingClose),
		timeout: closeConfirmTimeout,
	}
}

// add registers a prompt. onExpire runs if the prompt has not been answered within the timeout.
func (c *closeConfirmations) add(messageID string, a tickets.Action, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.pending[messageID]; ok {
		old.timer.Stop()
	}

	c.pending[messageID] = &pendingClose{
		action: a,
		timer: time.AfterFunc(c.timeout, func() {
			if _, ok := c.take(messageID); ok {
				onExpire()
			}
		}),
	}
}

// take removes the prompt and stops its timer. Only one caller gets the prompt.
func (c *closeConfirmations) take(messageID string) (tickets.Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[messageID]
	if !ok {
		return tickets.Action{}, false
	}
	p.timer.Stop()
	delete(c.pending, messageID)
	return p.action, true
}

// owner returns who asked for the close.
func (c *closeConfirmations) owner(messageID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[messageID]
	if !ok {
		return "", false
	}
	return p.action.ActorID, true
}

// stopAll cancels every prompt without running the expiry.
func (c *closeConfirmations) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, id)
	}
}

func closePromptComponents(disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fmt.Sprintf("%s Close", CloseEmoji),
					Style:    discordgo.DangerButton,
					CustomID: CloseConfirmButtonID,
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.SecondaryButton,
					CustomID: CloseCancelButtonID,
					Disabled: disabled,
				},
			},
		},
	}
}

// requestClose checks that the actor can close the ticket and posts the confirmation prompt.
func (a *App) requestClose(ctx context.Context, act tickets.Action) error {
	if _, err := a.lifecycle.CheckClose(ctx, act); err != nil {
		return err
	}

	msg, err := a.s.ChannelMessageSendComplex(act.ChannelID, &discordgo.MessageSend{
		Content:    fmt.Sprintf("%s, are you sure you want to close this ticket?", mentionUser(act.ActorID)),
		Components: closePromptComponents(false),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending close prompt: %w", err)
	}

	a.closeConfirmations.add(msg.ID, act, func() {
		a.expireClosePrompt(act.ChannelID, msg.ID)
	})
	return nil
}

func (a *App) expireClosePrompt(channelID, messageID string) {
	content := "Close cancelled."
	components := closePromptComponents(true)
	if _, err := a.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &content,
		Components: components,
	}); err != nil {
		a.Debug("Error expiring close prompt",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func (a *App) closeCmd(ctx context.Context, c *commandRequest) (string, error) {
	return "", a.requestClose(ctx, action(c.m))
}

func (a *App) closeButtonHandler(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error {
	if limited, err := a.rateLimited(i, r, ratelimit.ActionClose, ratelimit.CloseCooldown); limited || err != nil {
		return err
	}

	if err := a.requestClose(ctx, interactionAction(i)); err != nil {
		return err
	}
	return r.Ephemeral("Please confirm the close below.")
}

func (a *App) closeConfirmHandler(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error {
	messageID := i.Message.ID

	owner, ok := a.closeConfirmations.owner(messageID)
	if !ok {
		return r.Ephemeral("This close request has expired.")
	} else if owner != i.Member.User.ID {
		return r.Ephemeral("Only the person who asked to close the ticket can confirm it.")
	}

	act, ok := a.closeConfirmations.take(messageID)
	if !ok {
		return r.Ephemeral("This close request has expired.")
	}

	if err := r.Update(&discordgo.InteractionResponseData{
		Content:    "Closing ticket...",
		Components: closePromptComponents(true),
	}); err != nil {
		return err
	}

	res, err := a.lifecycle.Close(ctx, act)
	if err != nil {
		return err
	}
	monitoring.TicketTransitions.WithLabelValues("close", string(res.Ticket.Type)).Inc()

	a.Info("Ticket closed",
		slog.String(logging.KeyGuild, res.Ticket.GuildID),
		slog.String(logging.KeyTicket, res.Ticket.ID),
		slog.String(logging.KeyUser, act.ActorID),
		slog.Bool("logged", res.Logged),
		slog.Bool("archived", res.Archived),
	)
	return nil
}

func (a *App) closeCancelHandler(_ context.Context, i *discordgo.InteractionCreate, r *responder) error {
	messageID := i.Message.ID

	owner, ok := a.closeConfirmations.owner(messageID)
	if !ok {
		return r.Ephemeral("This close request has expired.")
	} else if owner != i.Member.User.ID {
		return r.Ephemeral("Only the person who asked to close the ticket can cancel it.")
	}

	if _, ok := a.closeConfirmations.take(messageID); !ok {
		return r.Ephemeral("This close request has expired.")
	}

	return r.Update(&discordgo.InteractionResponseData{
		Content:    "Close cancelled.",
		Components: closePromptComponents(true),
	})
}
