// Package permissions keeps ticket channel overwrites in line with the claim state of the ticket.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
)

const (
	// ReadAccess lets a target see the channel and its history.
	ReadAccess int64 = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory

	// WriteAccess lets a target talk in the channel.
	WriteAccess int64 = discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles | discordgo.PermissionEmbedLinks

	// FullAccess is read and write access.
	FullAccess = ReadAccess | WriteAccess
)

// Overwriter applies channel permission overwrites. Every call sets the absolute allow and deny
// values for the target, so applying the same overwrite twice is harmless.
type Overwriter interface {
	// SetRoleOverwrite sets the overwrite for a role on a channel.
	SetRoleOverwrite(ctx context.Context, channelID, roleID string, allow, deny int64) error

	// SetMemberOverwrite sets the overwrite for a member on a channel.
	SetMemberOverwrite(ctx context.Context, channelID, userID string, allow, deny int64) error

	// DeleteOverwrite removes any overwrite for the target on a channel.
	DeleteOverwrite(ctx context.Context, channelID, targetID string) error
}

// Synchronizer translates claim state into channel overwrites.
type Synchronizer struct {
	l *slog.Logger
	o Overwriter
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(l *slog.Logger, o Overwriter) *Synchronizer {
	return &Synchronizer{
		l: l.With(slog.String("component", "permissions")),
		o: o,
	}
}

// Lock stops the role groups from talking in the channel while leaving them able to read it.
// The claimant and the creator of the ticket are given explicit access.
func (s *Synchronizer) Lock(ctx context.Context, channelID string, roleGroups []string, claimant, creator string) error {
	var errs []error
	for _, roleID := range roleGroups {
		if err := s.o.SetRoleOverwrite(ctx, channelID, roleID, ReadAccess, WriteAccess); err != nil {
			errs = append(errs, fmt.Errorf("error locking role %s: %w", roleID, err))
		}
	}

	if err := s.GrantParticipant(ctx, channelID, claimant); err != nil {
		errs = append(errs, err)
	}

	if creator != "" && creator != claimant {
		if err := s.GrantParticipant(ctx, channelID, creator); err != nil {
			errs = append(errs, err)
		}
	}

	return s.joined(channelID, "lock", errs)
}

// Unlock gives the role groups their write access back. The former claimant keeps read access only,
// unless they are also the creator of the ticket.
func (s *Synchronizer) Unlock(ctx context.Context, channelID string, roleGroups []string, oldClaimant, creator string) error {
	var errs []error
	for _, roleID := range roleGroups {
		if err := s.o.SetRoleOverwrite(ctx, channelID, roleID, FullAccess, 0); err != nil {
			errs = append(errs, fmt.Errorf("error unlocking role %s: %w", roleID, err))
		}
	}

	if oldClaimant != "" && oldClaimant != creator {
		if err := s.Demote(ctx, channelID, oldClaimant); err != nil {
			errs = append(errs, err)
		}
	}

	return s.joined(channelID, "unlock", errs)
}

// GrantParticipant gives a user full access to the channel.
func (s *Synchronizer) GrantParticipant(ctx context.Context, channelID, userID string) error {
	if err := s.o.SetMemberOverwrite(ctx, channelID, userID, FullAccess, 0); err != nil {
		return fmt.Errorf("error granting access to %s: %w", userID, err)
	}
	return nil
}

// Demote takes away the explicit write grant of a user and leaves read access. Nothing is denied,
// so whether the user can talk follows their role groups.
func (s *Synchronizer) Demote(ctx context.Context, channelID, userID string) error {
	if err := s.o.SetMemberOverwrite(ctx, channelID, userID, ReadAccess, 0); err != nil {
		return fmt.Errorf("error demoting %s: %w", userID, err)
	}
	return nil
}

// RemoveParticipant removes the explicit access of a user.
func (s *Synchronizer) RemoveParticipant(ctx context.Context, channelID, userID string) error {
	if err := s.o.DeleteOverwrite(ctx, channelID, userID); err != nil {
		return fmt.Errorf("error removing access from %s: %w", userID, err)
	}
	return nil
}

func (s *Synchronizer) joined(channelID, op string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	s.l.Warn("Failed to apply channel overwrites",
		slog.String(logging.KeyChannel, channelID),
		slog.String("operation", op),
		slog.String(logging.KeyError, err.Error()),
	)
	return err
}

// InitialOverwrites returns the overwrites a ticket channel is created with. Everyone is denied,
// the opener, the bot and the role groups that handle the ticket can read and write.
func InitialOverwrites(guildID, opener, botID string, roleGroups []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		// The creator of the ticket can see the ticket.
		{
			ID:    opener,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: FullAccess,
			Deny:  discordgo.PermissionMentionEveryone,
		},
	}

	if botID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: FullAccess | discordgo.PermissionManageChannels | discordgo.PermissionManageRoles,
		})
	}

	for _, roleID := range roleGroups {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: FullAccess,
			Deny:  discordgo.PermissionMentionEveryone,
		})
	}

	return overwrites
}
