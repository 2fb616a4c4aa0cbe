package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
)

const (
	// VerifyButtonID is the ID for the verify button.
	VerifyButtonID = "verify_button"

	// VerifyEmoji is the emoji that will be used for the verify button. (Check mark)
	VerifyEmoji = "✅"
)

// verifyPanel is the message new members start verification from.
func verifyPanel() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Verification",
				Description: "Press the button below to get a code, then type the code in the verification channel.",
				Color:       colourInfo,
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Verify", VerifyEmoji),
						Style:    discordgo.SuccessButton,
						CustomID: VerifyButtonID,
					},
				},
			},
		},
	}
}

// verifyButtonHandler issues a code to the user. The code is only shown to them.
func (a *App) verifyButtonHandler(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error {
	code, err := a.gate.RequestChallenge(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		return err
	}

	where := "the verification channel"
	cfg, err := a.store.GetGuildConfig(ctx, i.GuildID)
	if err == nil && cfg.VerifyChannelID != "" {
		where = mentionChannel(cfg.VerifyChannelID)
	} else if err != nil && !errors.Is(err, dataaccess.ErrGuildConfigNotFound) {
		a.Warn("Error getting verify channel", slog.String(logging.KeyError, err.Error()))
	}

	return r.Ephemeral(fmt.Sprintf("Your verification code is **%s**. Type it in %s to get access to the server.", code, where))
}

// memberJoinHandler gives new members the unverified role.
func (a *App) memberJoinHandler() func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	return func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil || m.User.Bot {
			return
		}
		defer a.recoverEvent("guild_member_add")

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		if err := a.gate.OnMemberJoin(ctx, m.GuildID, m.User.ID); err != nil {
			a.Error("Error handling member join",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyUser, m.User.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}
