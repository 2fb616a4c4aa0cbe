package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/roles"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
	"github.com/Jacobbrewer1/ticketdesk/pkg/verification"
)

// messagePageSize is the most messages discord returns per request.
const messagePageSize = 100

var (
	_ tickets.Platform      = (*discordPlatform)(nil)
	_ verification.Platform = (*discordPlatform)(nil)
	_ roles.Lister          = (*discordPlatform)(nil)
)

// discordPlatform drives discord on behalf of the ticket lifecycle, the verification gate and the
// role directory.
type discordPlatform struct {
	l *slog.Logger
	s *discordgo.Session
}

func newDiscordPlatform(l *slog.Logger, s *discordgo.Session) *discordPlatform {
	return &discordPlatform{
		l: l.With(slog.String("component", "platform")),
		s: s,
	}
}

func (p *discordPlatform) SetRoleOverwrite(ctx context.Context, channelID, roleID string, allow, deny int64) error {
	if err := p.s.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error setting role overwrite: %w", err)
	}
	return nil
}

func (p *discordPlatform) SetMemberOverwrite(ctx context.Context, channelID, userID string, allow, deny int64) error {
	if err := p.s.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allow, deny, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error setting member overwrite: %w", err)
	}
	return nil
}

func (p *discordPlatform) DeleteOverwrite(ctx context.Context, channelID, targetID string) error {
	if err := p.s.ChannelPermissionDelete(channelID, targetID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting overwrite: %w", err)
	}
	return nil
}

func (p *discordPlatform) CreateChannel(ctx context.Context, req *tickets.ChannelRequest) (string, error) {
	ch, err := p.s.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                req.Topic,
		ParentID:             req.CategoryID,
		PermissionOverwrites: req.Overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error creating channel: %w", err)
	}
	return ch.ID, nil
}

func (p *discordPlatform) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := p.s.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func (p *discordPlatform) RenameChannel(ctx context.Context, channelID, name string) error {
	if _, err := p.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		Name: name,
	}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error renaming channel: %w", err)
	}
	return nil
}

func (p *discordPlatform) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := p.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

// RecentMessages pages back through the channel history until limit messages have been read or the
// start of the channel is reached.
func (p *discordPlatform) RecentMessages(ctx context.Context, channelID string, limit int) ([]*tickets.Message, error) {
	msgs := make([]*tickets.Message, 0, limit)
	before := ""
	for len(msgs) < limit {
		size := min(messagePageSize, limit-len(msgs))
		page, err := p.s.ChannelMessages(channelID, size, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("error getting channel messages: %w", err)
		}

		for _, m := range page {
			msgs = append(msgs, transcriptMessage(m))
		}

		if len(page) < size {
			break
		}
		before = page[len(page)-1].ID
	}
	return msgs, nil
}

func transcriptMessage(m *discordgo.Message) *tickets.Message {
	msg := &tickets.Message{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Embeds:    len(m.Embeds),
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, a.Filename)
	}
	return msg
}

func (p *discordPlatform) SendTranscript(ctx context.Context, channelID string, summary *tickets.Summary, filename string, content []byte) error {
	_, err := p.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{transcriptEmbed(summary)},
		Files: []*discordgo.File{
			{
				Name:        filename,
				ContentType: "text/plain",
				Reader:      bytes.NewReader(content),
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending transcript: %w", err)
	}
	return nil
}

func transcriptEmbed(s *tickets.Summary) *discordgo.MessageEmbed {
	claimedBy := "Nobody"
	if s.ClaimedBy != "" {
		claimedBy = fmt.Sprintf("<@%s>", s.ClaimedBy)
	}

	tier := string(s.Tier)
	if tier == "" {
		tier = "-"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Ticket", Value: s.Name, Inline: true},
		{Name: "Type", Value: string(s.Type), Inline: true},
		{Name: "Tier", Value: tier, Inline: true},
		{Name: "Opened By", Value: fmt.Sprintf("<@%s>", s.OpenerID), Inline: true},
		{Name: "Claimed By", Value: claimedBy, Inline: true},
		{Name: "Closed By", Value: fmt.Sprintf("<@%s>", s.ClosedBy), Inline: true},
		{Name: "Messages", Value: fmt.Sprintf("%d", s.MessageCount), Inline: true},
	}

	keys := make([]string, 0, len(s.Details))
	for k := range s.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, &discordgo.MessageEmbedField{Name: k, Value: s.Details[k]})
	}

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Ticket %s Closed", s.TicketID),
		Color:     colourClosed,
		Fields:    fields,
		Timestamp: s.ClosedAt.UTC().Format(time.RFC3339),
	}
}

func (p *discordPlatform) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}
	return m.Roles, nil
}

func (p *discordPlatform) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := p.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error adding role: %w", err)
	}
	return nil
}

func (p *discordPlatform) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := p.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error removing role: %w", err)
	}
	return nil
}

func (p *discordPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

// SendTransient posts a message and deletes it once ttl has passed. The delete runs detached from ctx
// as ctx is usually done long before ttl.
func (p *discordPlatform) SendTransient(ctx context.Context, channelID, content string, ttl time.Duration) error {
	msg, err := p.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	time.AfterFunc(ttl, func() {
		if err := p.s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			p.l.Debug("Failed to delete transient message",
				slog.String(logging.KeyChannel, channelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})
	return nil
}

func (p *discordPlatform) GuildRoles(ctx context.Context, guildID string) ([]*roles.Role, error) {
	guildRoles, err := p.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting guild roles: %w", err)
	}

	out := make([]*roles.Role, 0, len(guildRoles))
	for _, r := range guildRoles {
		out = append(out, &roles.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// IsOwnerOrAdmin reports whether the user owns the guild or holds a role with the administrator
// permission.
func (p *discordPlatform) IsOwnerOrAdmin(ctx context.Context, guildID, userID string) (bool, error) {
	g, err := p.s.State.Guild(guildID)
	if err != nil {
		g, err = p.s.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return false, fmt.Errorf("error getting guild: %w", err)
		}
	}
	if g.OwnerID == userID {
		return true, nil
	}

	memberRoles, err := p.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return false, err
	}

	guildRoles, err := p.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("error getting guild roles: %w", err)
	}

	var perms int64
	for _, r := range guildRoles {
		// The @everyone role shares the ID of the guild and applies to every member.
		if r.ID == guildID {
			perms |= r.Permissions
			continue
		}
		for _, id := range memberRoles {
			if r.ID == id {
				perms |= r.Permissions
			}
		}
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

// IsCategory reports whether the channel is a category in the guild.
func (p *discordPlatform) IsCategory(ctx context.Context, guildID, channelID string) (bool, error) {
	ch, err := p.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("error getting channel: %w", err)
	}
	return ch.GuildID == guildID && ch.Type == discordgo.ChannelTypeGuildCategory, nil
}
