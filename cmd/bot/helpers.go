package main

import (
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/messages"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
	"github.com/Jacobbrewer1/ticketdesk/pkg/verification"
)

const (
	colourOpen    = 0x00ff00
	colourClaimed = 0xffa500
	colourClosed  = 0xff0000
	colourInfo    = 0x5865f2
)

// responder answers a single interaction. Discord only accepts one initial response, anything after
// that has to be sent as a follow up.
type responder struct {
	s         *discordgo.Session
	i         *discordgo.Interaction
	responded bool
}

func newResponder(s *discordgo.Session, i *discordgo.Interaction) *responder {
	return &responder{
		s: s,
		i: i,
	}
}

// Defer acknowledges the interaction so that the handler can take longer than discord allows for the
// initial response. The eventual reply is only shown to the user.
func (r *responder) Defer() error {
	if r.responded {
		return nil
	}
	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		return fmt.Errorf("error deferring interaction: %w", err)
	}
	r.responded = true
	return nil
}

// Ephemeral replies to the user only.
func (r *responder) Ephemeral(content string) error {
	return r.send(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// Embed replies to the user only with an embed.
func (r *responder) Embed(embed *discordgo.MessageEmbed) error {
	return r.send(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

func (r *responder) send(data *discordgo.InteractionResponseData) error {
	if r.responded {
		if _, err := r.s.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
			Content: data.Content,
			Embeds:  data.Embeds,
			Flags:   data.Flags,
		}); err != nil {
			return fmt.Errorf("error sending follow up: %w", err)
		}
		return nil
	}

	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}
	r.responded = true
	return nil
}

// Modal opens a modal for the user.
func (r *responder) Modal(data *discordgo.InteractionResponseData) error {
	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	}); err != nil {
		return fmt.Errorf("error opening modal: %w", err)
	}
	r.responded = true
	return nil
}

// Update edits the message the pressed component belongs to.
func (r *responder) Update(data *discordgo.InteractionResponseData) error {
	if err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	}); err != nil {
		return fmt.Errorf("error updating message: %w", err)
	}
	r.responded = true
	return nil
}

// userMessage returns the message shown to the user for an error and whether the error was expected.
// Unexpected errors are shown as a generic failure.
func userMessage(err error) (string, bool) {
	if msg, ok := tickets.UserMessage(err); ok {
		return msg, true
	}

	switch {
	case errors.Is(err, verification.ErrAlreadyVerified):
		return messages.ErrAlreadyVerified, true
	case errors.Is(err, verification.ErrNotConfigured):
		return messages.ErrVerificationNotSet, true
	}

	var ue *usageError
	if errors.As(err, &ue) {
		return ue.Error(), true
	}

	return messages.ErrUserErrorProcessing, false
}

// usageError is returned when a command is given bad arguments.
type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return fmt.Sprintf("Usage: `%s`", e.usage)
}

func mentionUser(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

func mentionChannel(id string) string {
	if id == "" {
		return "Not set"
	}
	return fmt.Sprintf("<#%s>", id)
}

func mentionRole(id string) string {
	if id == "" {
		return "Not set"
	}
	return fmt.Sprintf("<@&%s>", id)
}
