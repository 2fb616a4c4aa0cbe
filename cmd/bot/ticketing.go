package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/monitoring"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
	"github.com/Jacobbrewer1/ticketdesk/pkg/ratelimit"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
)

const (
	// OpenSupportButtonID is the ID for the open support ticket button.
	OpenSupportButtonID = "open_support_button"

	// OpenRewardButtonID is the ID for the claim reward button.
	OpenRewardButtonID = "open_reward_button"

	// OpenLowTierButtonID is the ID for the low tier middleman button.
	OpenLowTierButtonID = "open_lowtier_button"

	// OpenMidTierButtonID is the ID for the mid tier middleman button.
	OpenMidTierButtonID = "open_midtier_button"

	// OpenHighTierButtonID is the ID for the high tier middleman button.
	OpenHighTierButtonID = "open_hightier_button"

	// ClaimTicketButtonID is the ID for the claim ticket button.
	ClaimTicketButtonID = "claim_ticket_button"

	// CloseTicketButtonID is the ID for the close ticket button.
	CloseTicketButtonID = "close_ticket_button"

	// modalSuffix is appended to an open button ID to get the ID of its modal.
	modalSuffix = "_modal"
)

const (
	// ClaimEmoji is the emoji that will be used for the claim button. (Ticket)
	ClaimEmoji = "\U0001F3AB"

	// CloseEmoji is the emoji that will be used for the close button. (Padlock)
	CloseEmoji = "\U0001F510"

	// SupportEmoji is the emoji that will be used for the support button. (Envelope)
	SupportEmoji = "\U0001F4E9"

	// RewardEmoji is the emoji that will be used for the reward button. (Gift)
	RewardEmoji = "\U0001F381"

	// TradeEmoji is the emoji that will be used for the middleman buttons. (Handshake)
	TradeEmoji = "\U0001F91D"
)

// Trade detail field IDs. They double as the keys the details are stored under.
const (
	detailSubject     = "Subject"
	detailDescription = "Description"
	detailOtherParty  = "Other Party"
	detailGiving      = "You Give"
	detailReceiving   = "You Receive"
	detailValue       = "Estimated Value"
)

// ticketKind is what an open button creates.
type ticketKind struct {
	buttonID string
	label    string
	emoji    string
	style    discordgo.ButtonStyle
	ticket   entities.TicketType
	tier     entities.Tier
}

var (
	supportKind  = &ticketKind{buttonID: OpenSupportButtonID, label: "Support", emoji: SupportEmoji, style: discordgo.PrimaryButton, ticket: entities.TicketTypeSupport, tier: entities.TierSupport}
	rewardKind   = &ticketKind{buttonID: OpenRewardButtonID, label: "Claim Reward", emoji: RewardEmoji, style: discordgo.SuccessButton, ticket: entities.TicketTypeSupport, tier: entities.TierReward}
	lowTierKind  = &ticketKind{buttonID: OpenLowTierButtonID, label: "Low Tier Middleman", emoji: TradeEmoji, style: discordgo.SecondaryButton, ticket: entities.TicketTypeMiddleman, tier: entities.TierLow}
	midTierKind  = &ticketKind{buttonID: OpenMidTierButtonID, label: "Mid Tier Middleman", emoji: TradeEmoji, style: discordgo.SecondaryButton, ticket: entities.TicketTypeMiddleman, tier: entities.TierMid}
	highTierKind = &ticketKind{buttonID: OpenHighTierButtonID, label: "High Tier Middleman", emoji: TradeEmoji, style: discordgo.SecondaryButton, ticket: entities.TicketTypeMiddleman, tier: entities.TierHigh}

	ticketKinds = []*ticketKind{supportKind, rewardKind, lowTierKind, midTierKind, highTierKind}
)

func (k *ticketKind) button() discordgo.Button {
	return discordgo.Button{
		Label:    fmt.Sprintf("%s %s", k.emoji, k.label),
		Style:    k.style,
		CustomID: k.buttonID,
	}
}

// ticketPanel is the message users open tickets from.
func ticketPanel() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: "Open a Ticket",
				Description: "Need help? Press **Support**.\n" +
					"Trading with someone? Pick the middleman tier that matches the value of your trade.",
				Color: colourInfo,
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					supportKind.button(),
				},
			},
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					lowTierKind.button(),
					midTierKind.button(),
					highTierKind.button(),
				},
			},
		},
	}
}

// rewardPanel is the message users claim rewards from.
func rewardPanel() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Claim a Reward",
				Description: "Won something? Press the button below and a member of staff will sort it out.",
				Color:       colourInfo,
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					rewardKind.button(),
				},
			},
		},
	}
}

// ticketControls is pinned in every new ticket channel.
func ticketControls(t *entities.Ticket) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Opened By", Value: mentionUser(t.UserID), Inline: true},
		{Name: "Type", Value: string(t.Type), Inline: true},
	}
	if t.Tier != entities.TierNone {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Tier", Value: string(t.Tier), Inline: true})
	}
	fields = append(fields, detailFields(t.TradeDetails)...)

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       fmt.Sprintf("Ticket %s", t.ID),
				Description: "Please provide any additional info you deem relevant to help us answer faster.",
				Color:       colourOpen,
				Fields:      fields,
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    fmt.Sprintf("%s Claim", ClaimEmoji),
						Style:    discordgo.PrimaryButton,
						CustomID: ClaimTicketButtonID,
					},
					discordgo.Button{
						Label:    fmt.Sprintf("%s Close", CloseEmoji),
						Style:    discordgo.DangerButton,
						CustomID: CloseTicketButtonID,
					},
				},
			},
		},
	}
}

func detailFields(d entities.TradeDetails) []*discordgo.MessageEmbedField {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]*discordgo.MessageEmbedField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, &discordgo.MessageEmbedField{Name: k, Value: d[k]})
	}
	return fields
}

func textInput(id, placeholder string, style discordgo.TextInputStyle, maxLength int) discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    id,
				Label:       id,
				Style:       style,
				Placeholder: placeholder,
				Required:    true,
				MaxLength:   maxLength,
			},
		},
	}
}

// openModal is the form shown when an open button is pressed.
func openModal(k *ticketKind) *discordgo.InteractionResponseData {
	var rows []discordgo.MessageComponent
	switch k.ticket {
	case entities.TicketTypeMiddleman:
		rows = []discordgo.MessageComponent{
			textInput(detailOtherParty, "Username or ID of who you are trading with", discordgo.TextInputShort, 100),
			textInput(detailGiving, "What are you giving?", discordgo.TextInputParagraph, 500),
			textInput(detailReceiving, "What are you receiving?", discordgo.TextInputParagraph, 500),
			textInput(detailValue, "Roughly what is the trade worth?", discordgo.TextInputShort, 100),
		}
	default:
		rows = []discordgo.MessageComponent{
			textInput(detailSubject, "What do you need help with?", discordgo.TextInputShort, 100),
			textInput(detailDescription, "Tell us more", discordgo.TextInputParagraph, 1000),
		}
	}

	return &discordgo.InteractionResponseData{
		CustomID:   k.buttonID + modalSuffix,
		Title:      k.label,
		Components: rows,
	}
}

// modalDetails reads the text inputs of a submitted modal.
func modalDetails(data discordgo.ModalSubmitInteractionData) entities.TradeDetails {
	details := make(entities.TradeDetails)
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			in, ok := c.(*discordgo.TextInput)
			if !ok {
				continue
			}
			if v := strings.TrimSpace(in.Value); v != "" {
				details[in.CustomID] = v
			}
		}
	}
	return details
}

// openButtonHandler shows the modal for the pressed open button.
func (a *App) openButtonHandler(k *ticketKind) componentProcessor {
	return func(_ context.Context, i *discordgo.InteractionCreate, r *responder) error {
		if a.lifecycle.IsLocked(i.GuildID) {
			return r.Ephemeral(messages.ErrTicketsLocked)
		}
		return r.Modal(openModal(k))
	}
}

// openModalHandler opens the ticket once the modal has been submitted.
func (a *App) openModalHandler(k *ticketKind) componentProcessor {
	return func(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error {
		if limited, err := a.rateLimited(i, r, ratelimit.ActionOpen, ratelimit.OpenCooldown); limited || err != nil {
			return err
		}

		// Creating the channel and its overwrites can take longer than discord allows.
		if err := r.Defer(); err != nil {
			return err
		}

		t, err := a.lifecycle.Open(ctx, &tickets.OpenRequest{
			GuildID: i.GuildID,
			UserID:  i.Member.User.ID,
			Type:    k.ticket,
			Tier:    k.tier,
			Details: modalDetails(i.ModalSubmitData()),
		})
		if err != nil {
			return err
		}
		monitoring.TicketTransitions.WithLabelValues("open", string(t.Type)).Inc()

		a.postTicketControls(ctx, t)

		return r.Embed(&discordgo.MessageEmbed{
			Title:       "Ticket Created",
			Description: fmt.Sprintf("%s, your ticket has been created.", mentionUser(t.UserID)),
			Color:       colourOpen,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Ticket Name", Value: t.Name(), Inline: true},
				{Name: "Ticket Channel", Value: mentionChannel(t.ChannelID), Inline: true},
			},
		})
	}
}

// postTicketControls sends and pins the control message in a new ticket channel. The ticket is usable
// through commands without it so failures are only logged.
func (a *App) postTicketControls(ctx context.Context, t *entities.Ticket) {
	l := a.With(slog.String(logging.KeyTicket, t.ID), slog.String(logging.KeyChannel, t.ChannelID))

	msg, err := a.s.ChannelMessageSendComplex(t.ChannelID, ticketControls(t), discordgo.WithContext(ctx))
	if err != nil {
		l.Warn("Error sending ticket controls", slog.String(logging.KeyError, err.Error()))
		return
	}

	if err := a.s.ChannelMessagePin(t.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
		l.Warn("Error pinning ticket controls", slog.String(logging.KeyError, err.Error()))
	}
}

func action(m *discordgo.MessageCreate) tickets.Action {
	return tickets.Action{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
	}
}

func interactionAction(i *discordgo.InteractionCreate) tickets.Action {
	return tickets.Action{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		ActorID:   i.Member.User.ID,
	}
}

func (a *App) claimButtonHandler(ctx context.Context, i *discordgo.InteractionCreate, r *responder) error {
	if limited, err := a.rateLimited(i, r, ratelimit.ActionClaim, ratelimit.ClaimCooldown); limited || err != nil {
		return err
	}

	t, err := a.lifecycle.Claim(ctx, interactionAction(i))
	if err != nil {
		return err
	}
	monitoring.TicketTransitions.WithLabelValues("claim", string(t.Type)).Inc()

	return r.Ephemeral(fmt.Sprintf("%s, you have claimed this ticket.", mentionUser(i.Member.User.ID)))
}

func (a *App) claimCmd(ctx context.Context, c *commandRequest) (string, error) {
	t, err := a.lifecycle.Claim(ctx, action(c.m))
	if err != nil {
		return "", err
	}
	monitoring.TicketTransitions.WithLabelValues("claim", string(t.Type)).Inc()
	return "", nil
}

func (a *App) unclaimCmd(ctx context.Context, c *commandRequest) (string, error) {
	t, err := a.lifecycle.Unclaim(ctx, action(c.m))
	if err != nil {
		return "", err
	}
	monitoring.TicketTransitions.WithLabelValues("unclaim", string(t.Type)).Inc()
	return "", nil
}

func (a *App) transferCmd(ctx context.Context, c *commandRequest) (string, error) {
	userID, err := singleUserArg(c, "transfer <user>")
	if err != nil {
		return "", err
	}

	t, err := a.lifecycle.Transfer(ctx, action(c.m), userID)
	if err != nil {
		return "", err
	}
	monitoring.TicketTransitions.WithLabelValues("transfer", string(t.Type)).Inc()
	return "", nil
}

func (a *App) addCmd(ctx context.Context, c *commandRequest) (string, error) {
	userID, err := singleUserArg(c, "add <user>")
	if err != nil {
		return "", err
	}

	if _, err := a.lifecycle.AddParticipant(ctx, action(c.m), userID); err != nil {
		return "", err
	}
	return "", nil
}

func (a *App) removeCmd(ctx context.Context, c *commandRequest) (string, error) {
	userID, err := singleUserArg(c, "remove <user>")
	if err != nil {
		return "", err
	}

	if _, err := a.lifecycle.RemoveParticipant(ctx, action(c.m), userID); err != nil {
		return "", err
	}
	return "", nil
}

func singleUserArg(c *commandRequest, usage string) (string, error) {
	if len(c.args) != 1 {
		return "", &usageError{usage: usage}
	}
	userID, ok := parseUser(c.args[0])
	if !ok {
		return "", &usageError{usage: usage}
	}
	return userID, nil
}

func (a *App) renameCmd(ctx context.Context, c *commandRequest) (string, error) {
	name := c.rest(0)
	if name == "" {
		return "", &usageError{usage: "rename <name>"}
	}

	renamed, err := a.lifecycle.Rename(ctx, action(c.m), name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Ticket renamed to `%s`.", renamed), nil
}

// proofCmd posts the trade summary of the ticket so both parties have a record of what was agreed.
func (a *App) proofCmd(ctx context.Context, c *commandRequest) (string, error) {
	t, err := a.lifecycle.Authorize(ctx, action(c.m))
	if err != nil {
		return "", err
	}

	handler := "Unclaimed"
	if t.IsClaimed() {
		handler = mentionUser(t.ClaimedBy)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Ticket", Value: t.Name(), Inline: true},
		{Name: "Opened By", Value: mentionUser(t.UserID), Inline: true},
		{Name: "Handled By", Value: handler, Inline: true},
	}
	fields = append(fields, detailFields(t.TradeDetails)...)

	if _, err := a.s.ChannelMessageSendComplex(c.m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Trade Proof",
				Description: fmt.Sprintf("Trade summary confirmed by %s.", mentionUser(c.m.Author.ID)),
				Color:       colourClaimed,
				Fields:      fields,
			},
		},
	}, discordgo.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("error sending proof: %w", err)
	}
	return "", nil
}

// helpCmd lists the commands. Like the other ticket commands it only works for someone who can manage
// the ticket in the channel.
func (a *App) helpCmd(ctx context.Context, c *commandRequest) (string, error) {
	if _, err := a.lifecycle.Authorize(ctx, action(c.m)); err != nil {
		return "", err
	}
	return helpText(a.cfg.CommandPrefix, a.commands()), nil
}

func helpText(prefix string, cmds []*textCommand) string {
	b := new(strings.Builder)
	b.WriteString("**Ticket commands**\n")
	for _, cmd := range cmds {
		if !cmd.ownerOnly {
			fmt.Fprintf(b, "`%s%s` %s\n", prefix, cmd.usage, cmd.description)
		}
	}
	b.WriteString("\n**Admin commands**\n")
	for _, cmd := range cmds {
		if cmd.ownerOnly {
			fmt.Fprintf(b, "`%s%s` %s\n", prefix, cmd.usage, cmd.description)
		}
	}
	return b.String()
}
