package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
)

// maxBlacklistLines caps the entries listed in a single reply so it stays under the message limit.
const maxBlacklistLines = 25

func (a *App) sendPanel(ctx context.Context, channelID string, panel *discordgo.MessageSend) error {
	if _, err := a.s.ChannelMessageSendComplex(channelID, panel, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error sending panel: %w", err)
	}
	return nil
}

func (a *App) setupCmd(ctx context.Context, c *commandRequest) (string, error) {
	return "", a.sendPanel(ctx, c.m.ChannelID, ticketPanel())
}

func (a *App) setupRewardsCmd(ctx context.Context, c *commandRequest) (string, error) {
	return "", a.sendPanel(ctx, c.m.ChannelID, rewardPanel())
}

func (a *App) setupVerifyCmd(ctx context.Context, c *commandRequest) (string, error) {
	return "", a.sendPanel(ctx, c.m.ChannelID, verifyPanel())
}

func (a *App) setCategoryCmd(ctx context.Context, c *commandRequest) (string, error) {
	const usage = "setcategory <category>"
	if len(c.args) != 1 {
		return "", &usageError{usage: usage}
	}
	categoryID, ok := parseChannel(c.args[0])
	if !ok {
		return "", &usageError{usage: usage}
	}

	isCategory, err := a.platform.IsCategory(ctx, c.m.GuildID, categoryID)
	if err != nil {
		return "", err
	} else if !isCategory {
		return "That is not a category in this server.", nil
	}

	if _, err := a.store.UpsertGuildConfig(ctx, c.m.GuildID, &entities.GuildConfigPatch{
		TicketCategoryID: &categoryID,
	}); err != nil {
		return "", fmt.Errorf("error saving ticket category: %w", err)
	}
	return fmt.Sprintf("Tickets will now be created in %s.", mentionChannel(categoryID)), nil
}

func (a *App) setLogsCmd(ctx context.Context, c *commandRequest) (string, error) {
	const usage = "setlogs <channel>"
	if len(c.args) != 1 {
		return "", &usageError{usage: usage}
	}
	channelID, ok := parseChannel(c.args[0])
	if !ok {
		return "", &usageError{usage: usage}
	}

	if _, err := a.store.UpsertGuildConfig(ctx, c.m.GuildID, &entities.GuildConfigPatch{
		LogChannelID: &channelID,
	}); err != nil {
		return "", fmt.Errorf("error saving log channel: %w", err)
	}
	return fmt.Sprintf("Transcripts will now be sent to %s.", mentionChannel(channelID)), nil
}

func (a *App) configCmd(ctx context.Context, c *commandRequest) (string, error) {
	cfg, err := a.store.GetGuildConfig(ctx, c.m.GuildID)
	if errors.Is(err, dataaccess.ErrGuildConfigNotFound) {
		cfg = &entities.GuildConfig{GuildID: c.m.GuildID}
	} else if err != nil {
		return "", fmt.Errorf("error getting guild config: %w", err)
	}

	roleMap, err := a.directory.Roles(ctx, c.m.GuildID)
	if err != nil {
		return "", err
	}

	role := func(rc entities.RoleCategory) string {
		id, _ := roleMap.Get(rc)
		return mentionRole(id)
	}

	locked := "No"
	if a.lifecycle.IsLocked(c.m.GuildID) {
		locked = "Yes"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Ticket Category", Value: mentionChannel(cfg.TicketCategoryID), Inline: true},
		{Name: "Log Channel", Value: mentionChannel(cfg.LogChannelID), Inline: true},
		{Name: "Tickets Opened", Value: fmt.Sprintf("%d", cfg.TicketCounter), Inline: true},
		{Name: "Tickets Locked", Value: locked, Inline: true},
		{Name: "Verify Channel", Value: mentionChannel(cfg.VerifyChannelID), Inline: true},
	}
	for _, rc := range entities.RoleCategories {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s Role", strings.ToUpper(rc.String()[:1])+rc.String()[1:]),
			Value:  role(rc),
			Inline: true,
		})
	}

	if _, err := a.s.ChannelMessageSendComplex(c.m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:  "Server Configuration",
				Color:  colourInfo,
				Fields: fields,
			},
		},
	}, discordgo.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("error sending config: %w", err)
	}
	return "", nil
}

func (a *App) lockCmd(_ context.Context, c *commandRequest) (string, error) {
	if !a.lifecycle.SetLocked(c.m.GuildID, true) {
		return "Ticket creation is already locked.", nil
	}
	return "Ticket creation is now locked.", nil
}

func (a *App) unlockCmd(_ context.Context, c *commandRequest) (string, error) {
	if !a.lifecycle.SetLocked(c.m.GuildID, false) {
		return "Ticket creation is not locked.", nil
	}
	return "Ticket creation is now unlocked.", nil
}

func (a *App) blacklistCmd(ctx context.Context, c *commandRequest) (string, error) {
	const usage = "blacklist <user> <reason>"
	if len(c.args) < 1 {
		return "", &usageError{usage: usage}
	}
	userID, ok := parseUser(c.args[0])
	if !ok {
		return "", &usageError{usage: usage}
	}

	added, err := a.store.AddBlacklist(ctx, &entities.BlacklistEntry{
		UserID:        userID,
		GuildID:       c.m.GuildID,
		Reason:        c.rest(1),
		BlacklistedBy: c.m.Author.ID,
	})
	if err != nil {
		return "", err
	} else if !added {
		return fmt.Sprintf("%s is already blacklisted.", mentionUser(userID)), nil
	}
	return fmt.Sprintf("%s can no longer open tickets.", mentionUser(userID)), nil
}

func (a *App) unblacklistCmd(ctx context.Context, c *commandRequest) (string, error) {
	userID, err := singleUserArg(c, "unblacklist <user>")
	if err != nil {
		return "", err
	}

	removed, err := a.store.RemoveBlacklist(ctx, userID, c.m.GuildID)
	if err != nil {
		return "", err
	} else if !removed {
		return fmt.Sprintf("%s is not blacklisted.", mentionUser(userID)), nil
	}
	return fmt.Sprintf("%s can open tickets again.", mentionUser(userID)), nil
}

func (a *App) blacklistsCmd(ctx context.Context, c *commandRequest) (string, error) {
	entries, err := a.store.ListBlacklist(ctx, c.m.GuildID)
	if err != nil {
		return "", err
	}
	return formatBlacklist(entries), nil
}

func formatBlacklist(entries []*entities.BlacklistEntry) string {
	if len(entries) == 0 {
		return "No users are blacklisted."
	}

	b := new(strings.Builder)
	fmt.Fprintf(b, "**Blacklisted users (%d)**\n", len(entries))
	for i, e := range entries {
		if i == maxBlacklistLines {
			fmt.Fprintf(b, "...and %d more\n", len(entries)-maxBlacklistLines)
			break
		}
		reason := e.Reason
		if reason == "" {
			reason = "No reason given"
		}
		fmt.Fprintf(b, "%s by %s on %s: %s\n",
			mentionUser(e.UserID), mentionUser(e.BlacklistedBy), e.CreatedAt.UTC().Format("2006-01-02"), reason)
	}
	return b.String()
}

func (a *App) setVerifyCmd(ctx context.Context, c *commandRequest) (string, error) {
	const usage = "setverify <unverified> <verified> <member> <channel>"
	if len(c.args) != 4 {
		return "", &usageError{usage: usage}
	}

	patch := new(entities.GuildConfigPatch)
	for i, rc := range []entities.RoleCategory{entities.RoleUnverified, entities.RoleVerified, entities.RoleMember} {
		id, ok := parseRole(c.args[i])
		if !ok {
			return "", &usageError{usage: usage}
		}
		patch.SetRole(rc, id)
	}

	channelID, ok := parseChannel(c.args[3])
	if !ok {
		return "", &usageError{usage: usage}
	}
	patch.VerifyChannelID = &channelID

	if _, err := a.store.UpsertGuildConfig(ctx, c.m.GuildID, patch); err != nil {
		return "", fmt.Errorf("error saving verification config: %w", err)
	}
	a.directory.Invalidate(c.m.GuildID)

	return fmt.Sprintf("Verification codes will now be checked in %s.", mentionChannel(channelID)), nil
}

func (a *App) setRolesCmd(ctx context.Context, c *commandRequest) (string, error) {
	const usage = "setroles <staff> <lowtier> <midtier> <hightier>"
	if len(c.args) != 4 {
		return "", &usageError{usage: usage}
	}

	patch := new(entities.GuildConfigPatch)
	for i, rc := range []entities.RoleCategory{entities.RoleStaff, entities.RoleLowTier, entities.RoleMidTier, entities.RoleHighTier} {
		id, ok := parseRole(c.args[i])
		if !ok {
			return "", &usageError{usage: usage}
		}
		patch.SetRole(rc, id)
	}

	if _, err := a.store.UpsertGuildConfig(ctx, c.m.GuildID, patch); err != nil {
		return "", fmt.Errorf("error saving roles: %w", err)
	}
	a.directory.Invalidate(c.m.GuildID)

	return "Ticket handler roles updated.", nil
}
