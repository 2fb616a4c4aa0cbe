package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
)

func (a *App) guildJoinedHandler() func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Info(fmt.Sprintf("Joined guild %s", g.Name), slog.String(logging.KeyGuild, g.ID))

		// Increment the total number of guilds.
		monitoring.TotalDiscordGuilds.Inc()
	}
}

func (a *App) guildLeaveHandler() func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		// An unavailable guild is an outage, the bot is still a member.
		if g.Unavailable {
			a.Warn("Guild became unavailable", slog.String(logging.KeyGuild, g.ID))
			return
		}

		a.Info("Left guild", slog.String(logging.KeyGuild, g.ID))

		// Decrement the total number of guilds.
		monitoring.TotalDiscordGuilds.Dec()

		// Drop the cached roles of the guild.
		a.directory.Invalidate(g.ID)
	}
}

// The role handlers drop the cached roles of the guild so a role created or renamed to one of the
// default names is picked up on the next lookup.

func (a *App) roleCreatedHandler() func(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
	return func(_ *discordgo.Session, r *discordgo.GuildRoleCreate) {
		if r.GuildRole == nil {
			return
		}
		a.directory.Invalidate(r.GuildID)
	}
}

func (a *App) roleUpdatedHandler() func(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
	return func(_ *discordgo.Session, r *discordgo.GuildRoleUpdate) {
		if r.GuildRole == nil {
			return
		}
		a.directory.Invalidate(r.GuildID)
	}
}

func (a *App) roleDeletedHandler() func(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
	return func(_ *discordgo.Session, r *discordgo.GuildRoleDelete) {
		a.directory.Invalidate(r.GuildID)
	}
}
