// Package tickets implements the ticket state machine. Every transition checks the state and the
// authorization of the actor, persists the change with a conditional store write and then brings the
// channel overwrites in line with the new state.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
	"github.com/Jacobbrewer1/ticketdesk/pkg/permissions"
	"github.com/google/uuid"
)

// Store is the persistence the lifecycle needs.
type Store interface {
	NextTicketNumber(ctx context.Context, guildID string) (int64, error)
	CreateTicket(ctx context.Context, t *entities.Ticket) error
	GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error)
	GetTicketByID(ctx context.Context, guildID, id string) (*entities.Ticket, error)
	ClaimTicket(ctx context.Context, guildID, id, claimant string) (bool, error)
	ReleaseClaim(ctx context.Context, guildID, id, claimant string) (bool, error)
	TransferClaim(ctx context.Context, guildID, id, from, to string) (bool, error)
	CloseTicket(ctx context.Context, guildID, id string) (bool, error)
	OpenTicketCountForUser(ctx context.Context, userID, guildID string) (int, error)
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error)
	IsBlacklisted(ctx context.Context, userID, guildID string) (*entities.BlacklistEntry, error)
}

// ChannelRequest describes a ticket channel to create.
type ChannelRequest struct {
	GuildID    string
	CategoryID string
	Name       string
	Topic      string
	Overwrites []*discordgo.PermissionOverwrite
}

// Platform is the chat platform the lifecycle drives.
type Platform interface {
	permissions.Overwriter

	// CreateChannel creates a text channel and returns its ID.
	CreateChannel(ctx context.Context, req *ChannelRequest) (string, error)

	// DeleteChannel deletes a channel.
	DeleteChannel(ctx context.Context, channelID string) error

	// RenameChannel renames a channel.
	RenameChannel(ctx context.Context, channelID, name string) error

	// SendMessage posts a plain message to a channel.
	SendMessage(ctx context.Context, channelID, content string) error

	// RecentMessages returns up to limit of the most recent messages in the channel, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]*Message, error)

	// SendTranscript posts the transcript summary with the transcript attached as a file.
	SendTranscript(ctx context.Context, channelID string, summary *Summary, filename string, content []byte) error

	// MemberRoles returns the role IDs the member currently holds.
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// RoleResolver resolves the role categories of a guild to role IDs.
type RoleResolver interface {
	Roles(ctx context.Context, guildID string) (entities.RoleMap, error)
}

// Archive keeps a copy of closed ticket transcripts.
type Archive interface {
	SaveTranscript(ctx context.Context, t *entities.Transcript) error
}

// Action is an actor doing something in a channel.
type Action struct {
	GuildID   string
	ChannelID string
	ActorID   string
}

// Lifecycle runs ticket transitions.
type Lifecycle struct {
	l        *slog.Logger
	store    Store
	platform Platform
	perms    *permissions.Synchronizer
	roles    RoleResolver
	locks    *LockFlags
	archive  Archive
	botID    string
	now      func() time.Time
	newID    func() string
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithArchive sets the archive closed transcripts are saved to.
func WithArchive(a Archive) Option {
	return func(lc *Lifecycle) {
		lc.archive = a
	}
}

// WithBotID sets the user ID of the bot so it is given access to the channels it creates.
func WithBotID(id string) Option {
	return func(lc *Lifecycle) {
		lc.botID = id
	}
}

// WithClock sets the clock used for creation and close times.
func WithClock(now func() time.Time) Option {
	return func(lc *Lifecycle) {
		lc.now = now
	}
}

// WithLockFlags sets the lock flags shared with the rest of the bot.
func WithLockFlags(f *LockFlags) Option {
	return func(lc *Lifecycle) {
		lc.locks = f
	}
}

// NewLifecycle creates a new Lifecycle.
func NewLifecycle(l *slog.Logger, store Store, platform Platform, roles RoleResolver, opts ...Option) *Lifecycle {
	lc := &Lifecycle{
		l:        l.With(slog.String("component", "tickets")),
		store:    store,
		platform: platform,
		perms:    permissions.NewSynchronizer(l, platform),
		roles:    roles,
		locks:    NewLockFlags(),
		now:      time.Now,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(lc)
	}

	return lc
}

// SetLocked locks or unlocks ticket creation for the guild and reports whether the flag changed.
func (lc *Lifecycle) SetLocked(guildID string, locked bool) bool {
	return lc.locks.Set(guildID, locked)
}

// IsLocked reports whether ticket creation is locked for the guild.
func (lc *Lifecycle) IsLocked(guildID string) bool {
	return lc.locks.IsLocked(guildID)
}

// Authorize returns the ticket in the channel if the actor can manage it.
func (lc *Lifecycle) Authorize(ctx context.Context, a Action) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if err := lc.requireManager(ctx, t, a.ActorID); err != nil {
		return nil, err
	}

	return t, nil
}

// ticketForAction loads the live ticket for the channel of the action.
func (lc *Lifecycle) ticketForAction(ctx context.Context, a Action) (*entities.Ticket, error) {
	t, err := lc.store.GetTicketByChannel(ctx, a.ChannelID)
	if errors.Is(err, dataaccess.ErrTicketNotFound) {
		return nil, newError(KindValidation, messages.ErrNotTicketChannel)
	} else if err != nil {
		return nil, fmt.Errorf("error getting ticket by channel: %w", err)
	}

	if a.GuildID != "" && t.GuildID != a.GuildID {
		return nil, newError(KindValidation, messages.ErrNotTicketChannel)
	}

	if t.IsClosed() {
		return nil, newError(KindConflict, messages.ErrTicketClosed)
	}

	return t, nil
}

// handlerRoles returns the role IDs that handle the ticket.
func (lc *Lifecycle) handlerRoles(ctx context.Context, t *entities.Ticket) ([]string, error) {
	roles, err := lc.roles.Roles(ctx, t.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error resolving roles: %w", err)
	}
	return roles.HandlerRoles(t), nil
}

// canManage is evaluated against the current roles of the actor on every call.
func (lc *Lifecycle) canManage(ctx context.Context, t *entities.Ticket, actorID string) (bool, error) {
	if t.IsClaimed() && t.ClaimedBy == actorID {
		return true, nil
	}

	handlers, err := lc.handlerRoles(ctx, t)
	if err != nil {
		return false, err
	}

	return lc.holdsAny(ctx, t.GuildID, actorID, handlers)
}

func (lc *Lifecycle) holdsAny(ctx context.Context, guildID, userID string, roleIDs []string) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}

	memberRoles, err := lc.platform.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("error getting member roles: %w", err)
	}

	for _, r := range memberRoles {
		if slices.Contains(roleIDs, r) {
			return true, nil
		}
	}
	return false, nil
}

func (lc *Lifecycle) requireManager(ctx context.Context, t *entities.Ticket, actorID string) error {
	ok, err := lc.canManage(ctx, t, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindAuthorization, messages.ErrNoPermission)
	}
	return nil
}

// announce posts a notice in the ticket channel. A failure is logged and otherwise ignored.
func (lc *Lifecycle) announce(ctx context.Context, t *entities.Ticket, content string) {
	if err := lc.platform.SendMessage(ctx, t.ChannelID, content); err != nil {
		lc.l.Warn("Failed to send ticket notice",
			slog.String(logging.KeyTicket, t.ID),
			slog.String(logging.KeyChannel, t.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
