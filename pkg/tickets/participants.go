package tickets

import (
	"context"
	"fmt"

	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
)

// AddParticipant gives a user access to the ticket. Only the claimant can add users.
func (lc *Lifecycle) AddParticipant(ctx context.Context, a Action, userID string) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if !t.IsClaimed() {
		return nil, newError(KindConflict, "This ticket must be claimed before users can be added.")
	} else if t.ClaimedBy != a.ActorID {
		return nil, newError(KindAuthorization, "Only the claimant %s can add users to this ticket.", mention(t.ClaimedBy))
	}

	if userID == "" {
		return nil, newError(KindValidation, "Please mention the user to add.")
	}

	if err := lc.perms.GrantParticipant(ctx, t.ChannelID, userID); err != nil {
		return nil, err
	}

	lc.announce(ctx, t, fmt.Sprintf("%s has been added to the ticket by %s.", mention(userID), mention(a.ActorID)))
	return t, nil
}

// RemoveParticipant takes away the access of a user. The opener and the claimant cannot be removed.
func (lc *Lifecycle) RemoveParticipant(ctx context.Context, a Action, userID string) (*entities.Ticket, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return nil, err
	}

	if err := lc.requireManager(ctx, t, a.ActorID); err != nil {
		return nil, err
	}

	switch {
	case userID == "":
		return nil, newError(KindValidation, "Please mention the user to remove.")
	case userID == t.UserID:
		return nil, newError(KindValidation, "The user who opened the ticket cannot be removed.")
	case t.IsClaimed() && userID == t.ClaimedBy:
		return nil, newError(KindValidation, "The claimant cannot be removed. Use unclaim or transfer instead.")
	}

	if err := lc.perms.RemoveParticipant(ctx, t.ChannelID, userID); err != nil {
		return nil, err
	}

	lc.announce(ctx, t, fmt.Sprintf("%s has been removed from the ticket by %s.", mention(userID), mention(a.ActorID)))
	return t, nil
}

// Rename renames the ticket channel and returns the name that was applied.
func (lc *Lifecycle) Rename(ctx context.Context, a Action, name string) (string, error) {
	t, err := lc.ticketForAction(ctx, a)
	if err != nil {
		return "", err
	}

	if err := lc.requireManager(ctx, t, a.ActorID); err != nil {
		return "", err
	}

	clean := SanitizeChannelName(name)
	if clean == "" {
		return "", newError(KindValidation, "Please give a name made of letters, numbers or dashes.")
	}

	if err := lc.platform.RenameChannel(ctx, t.ChannelID, clean); err != nil {
		return "", fmt.Errorf("error renaming channel: %w", err)
	}

	return clean, nil
}
