// Package verification gates new members behind a captcha typed into the verification channel.
//
// Sessions are held in memory only. A restart drops every pending code and users ask for a new one.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
)

const (
	// WelcomeTTL is how long the welcome message stays up after a correct answer.
	WelcomeTTL = 5 * time.Second

	// RetryTTL is how long the correction stays up after a wrong answer.
	RetryTTL = 10 * time.Second
)

var (
	// ErrAlreadyVerified is returned when the user already holds the verified role.
	ErrAlreadyVerified = errors.New("user is already verified")

	// ErrNotConfigured is returned when the guild has not set up verification.
	ErrNotConfigured = errors.New("verification is not configured")
)

// Store is the persistence the gate reads its configuration from.
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error)
}

// RoleResolver resolves the role categories of a guild to role IDs.
type RoleResolver interface {
	Roles(ctx context.Context, guildID string) (entities.RoleMap, error)
}

// Platform is the chat platform the gate drives.
type Platform interface {
	// MemberRoles returns the role IDs the member currently holds.
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)

	// AddRole gives the member a role.
	AddRole(ctx context.Context, guildID, userID, roleID string) error

	// RemoveRole takes a role from the member.
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error

	// DeleteMessage deletes a message.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// SendTransient posts a message that deletes itself after ttl.
	SendTransient(ctx context.Context, channelID, content string, ttl time.Duration) error
}

// Outcome is the result of a submitted answer.
type Outcome int

const (
	// OutcomeIgnored means the message was not an answer and should be handled as a normal message.
	OutcomeIgnored Outcome = iota

	// OutcomeVerified means the answer was correct and the user has been promoted.
	OutcomeVerified

	// OutcomeRetry means the answer was wrong and a new code has been issued.
	OutcomeRetry

	// OutcomeFailed means the answer was handled but the user could not be verified. The session is
	// gone and the user has to ask for a new code.
	OutcomeFailed
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// Submission is a message that may be a captcha answer.
type Submission struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Content   string
}

// Gate holds the pending captcha sessions keyed by user.
type Gate struct {
	l        *slog.Logger
	store    Store
	platform Platform
	roles    RoleResolver
	newCode  func() (string, error)

	mu       sync.Mutex
	sessions map[string]string
}

// Option configures a Gate.
type Option func(*Gate)

// WithCodeGenerator sets the function used to generate codes.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(g *Gate) {
		g.newCode = fn
	}
}

// NewGate creates a new Gate with no pending sessions.
func NewGate(l *slog.Logger, store Store, platform Platform, roles RoleResolver, opts ...Option) *Gate {
	g := &Gate{
		l:        l.With(slog.String("component", "verification")),
		store:    store,
		platform: platform,
		roles:    roles,
		newCode:  NewCode,
		sessions: make(map[string]string),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type gateSetup struct {
	channelID  string
	verified   string
	unverified string
	member     string
}

func (g *Gate) setup(ctx context.Context, guildID string) (*gateSetup, error) {
	cfg, err := g.store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, dataaccess.ErrGuildConfigNotFound) {
		return nil, ErrNotConfigured
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	}

	roles, err := g.roles.Roles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("error resolving roles: %w", err)
	}

	s := &gateSetup{channelID: cfg.VerifyChannelID}
	s.verified, _ = roles.Get(entities.RoleVerified)
	s.unverified, _ = roles.Get(entities.RoleUnverified)
	s.member, _ = roles.Get(entities.RoleMember)

	if s.channelID == "" || s.verified == "" || s.member == "" {
		return nil, ErrNotConfigured
	}
	return s, nil
}

// RequestChallenge issues a new code for the user, replacing any code they already had.
// The caller delivers the code privately.
func (g *Gate) RequestChallenge(ctx context.Context, guildID, userID string) (string, error) {
	s, err := g.setup(ctx, guildID)
	if err != nil {
		return "", err
	}

	held, err := g.platform.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return "", fmt.Errorf("error getting member roles: %w", err)
	} else if slices.Contains(held, s.verified) {
		return "", ErrAlreadyVerified
	}

	code, err := g.newCode()
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	g.sessions[userID] = code
	g.mu.Unlock()

	return code, nil
}

// Pending reports whether the user has a code waiting to be answered.
func (g *Gate) Pending(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.sessions[userID]
	return ok
}

// consume clears the session when the answer matches. pending is false when there was no session.
func (g *Gate) consume(userID, answer string) (matched, pending bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code, ok := g.sessions[userID]
	if !ok {
		return false, false
	}
	if code == answer {
		delete(g.sessions, userID)
		return true, true
	}
	return false, true
}

// SubmitAnswer checks a message against the pending code of its author. Messages from users without a
// session, or outside the verification channel, are ignored.
func (g *Gate) SubmitAnswer(ctx context.Context, sub *Submission) (Outcome, error) {
	if !g.Pending(sub.UserID) {
		return OutcomeIgnored, nil
	}

	s, err := g.setup(ctx, sub.GuildID)
	if errors.Is(err, ErrNotConfigured) {
		return OutcomeIgnored, nil
	} else if err != nil {
		return OutcomeIgnored, err
	}

	if sub.ChannelID != s.channelID {
		return OutcomeIgnored, nil
	}

	answer := strings.ToUpper(strings.TrimSpace(sub.Content))
	matched, pending := g.consume(sub.UserID, answer)
	if !pending {
		return OutcomeIgnored, nil
	}

	l := g.l.With(
		slog.String(logging.KeyGuild, sub.GuildID),
		slog.String(logging.KeyUser, sub.UserID),
	)

	if matched {
		if err := g.promote(ctx, sub.GuildID, sub.UserID, s); err != nil {
			g.fail(ctx, l, sub)
			return OutcomeFailed, err
		}

		g.cleanup(ctx, l, sub)
		welcome := fmt.Sprintf("Welcome <@%s>! You have been verified.", sub.UserID)
		if err := g.platform.SendTransient(ctx, sub.ChannelID, welcome, WelcomeTTL); err != nil {
			l.Debug("Failed to send welcome message", slog.String(logging.KeyError, err.Error()))
		}
		return OutcomeVerified, nil
	}

	code, err := g.newCode()
	if err != nil {
		g.mu.Lock()
		delete(g.sessions, sub.UserID)
		g.mu.Unlock()

		g.fail(ctx, l, sub)
		return OutcomeFailed, err
	}

	g.mu.Lock()
	g.sessions[sub.UserID] = code
	g.mu.Unlock()

	g.cleanup(ctx, l, sub)
	retry := fmt.Sprintf("<@%s> that code was incorrect. Your new code is `%s`.", sub.UserID, code)
	if err := g.platform.SendTransient(ctx, sub.ChannelID, retry, RetryTTL); err != nil {
		l.Debug("Failed to send retry message", slog.String(logging.KeyError, err.Error()))
	}
	return OutcomeRetry, nil
}

// promote swaps the unverified role for the verified and member roles.
func (g *Gate) promote(ctx context.Context, guildID, userID string, s *gateSetup) error {
	if s.unverified != "" {
		held, err := g.platform.MemberRoles(ctx, guildID, userID)
		if err != nil {
			return fmt.Errorf("error getting member roles: %w", err)
		}
		if slices.Contains(held, s.unverified) {
			if err := g.platform.RemoveRole(ctx, guildID, userID, s.unverified); err != nil {
				return fmt.Errorf("error removing unverified role: %w", err)
			}
		}
	}

	if err := g.platform.AddRole(ctx, guildID, userID, s.verified); err != nil {
		return fmt.Errorf("error adding verified role: %w", err)
	}

	if s.member != s.verified {
		if err := g.platform.AddRole(ctx, guildID, userID, s.member); err != nil {
			return fmt.Errorf("error adding member role: %w", err)
		}
	}
	return nil
}

// fail tells the user to start again after an answer could not be handled.
func (g *Gate) fail(ctx context.Context, l *slog.Logger, sub *Submission) {
	g.cleanup(ctx, l, sub)
	notice := fmt.Sprintf("<@%s> we could not verify you right now. Press the verify button to get a new code.", sub.UserID)
	if err := g.platform.SendTransient(ctx, sub.ChannelID, notice, RetryTTL); err != nil {
		l.Debug("Failed to send failure message", slog.String(logging.KeyError, err.Error()))
	}
}

func (g *Gate) cleanup(ctx context.Context, l *slog.Logger, sub *Submission) {
	if err := g.platform.DeleteMessage(ctx, sub.ChannelID, sub.MessageID); err != nil {
		l.Debug("Failed to delete answer message", slog.String(logging.KeyError, err.Error()))
	}
}

// OnMemberJoin gives a new member the unverified role when the guild has verification set up.
func (g *Gate) OnMemberJoin(ctx context.Context, guildID, userID string) error {
	s, err := g.setup(ctx, guildID)
	if errors.Is(err, ErrNotConfigured) {
		return nil
	} else if err != nil {
		return err
	}

	if s.unverified == "" {
		return nil
	}

	if err := g.platform.AddRole(ctx, guildID, userID, s.unverified); err != nil {
		return fmt.Errorf("error adding unverified role: %w", err)
	}
	return nil
}
