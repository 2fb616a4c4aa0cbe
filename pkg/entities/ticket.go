package entities

import (
	"fmt"
	"time"
)

// TicketType is the kind of ticket that was opened.
type TicketType string

const (
	// TicketTypeSupport is a general support ticket handled by staff.
	TicketTypeSupport TicketType = "support"

	// TicketTypeMiddleman is a trade ticket handled by the middleman role for its tier.
	TicketTypeMiddleman TicketType = "middleman"
)

// Valid reports whether the ticket type is known.
func (t TicketType) Valid() bool {
	return t == TicketTypeSupport || t == TicketTypeMiddleman
}

// Tier is the trade value bracket of a ticket.
type Tier string

const (
	// TierNone is used when a ticket has no tier.
	TierNone Tier = ""

	// TierLow is the low value middleman bracket.
	TierLow Tier = "lowtier"

	// TierMid is the mid value middleman bracket.
	TierMid Tier = "midtier"

	// TierHigh is the high value middleman bracket.
	TierHigh Tier = "hightier"

	// TierSupport is the tier given to support tickets.
	TierSupport Tier = "support"

	// TierReward is the tier given to reward claim tickets.
	TierReward Tier = "reward"
)

// ValidFor reports whether the tier can be used with the ticket type.
func (t Tier) ValidFor(tt TicketType) bool {
	switch tt {
	case TicketTypeSupport:
		return t == TierSupport || t == TierReward
	case TicketTypeMiddleman:
		return t == TierLow || t == TierMid || t == TierHigh
	default:
		return false
	}
}

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// StatusOpen is a ticket waiting for a staff member.
	StatusOpen TicketStatus = "open"

	// StatusClaimed is a ticket owned by a single staff member.
	StatusClaimed TicketStatus = "claimed"

	// StatusClosed is a ticket that has been closed. This is terminal.
	StatusClosed TicketStatus = "closed"
)

// TradeDetails are the fields the opener supplied when creating the ticket.
type TradeDetails map[string]string

// Ticket is a ticket.
type Ticket struct {
	// ID is the zero padded number of the ticket, unique within the guild.
	ID string `json:"ticket_id" bson:"ticket_id"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the ID of the channel that the ticket is in.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// UserID is the ID of the user that opened the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// Type is the type of the ticket.
	Type TicketType `json:"ticket_type" bson:"ticket_type"`

	// Tier is the tier of the ticket.
	Tier Tier `json:"tier,omitempty" bson:"tier,omitempty"`

	// ClaimedBy is the ID of the user that claimed the ticket. Empty when unclaimed.
	ClaimedBy string `json:"claimed_by,omitempty" bson:"claimed_by,omitempty"`

	// Status is the status of the ticket.
	Status TicketStatus `json:"status" bson:"status"`

	// TradeDetails are the details the opener gave when opening the ticket.
	TradeDetails TradeDetails `json:"trade_details,omitempty" bson:"trade_details,omitempty"`

	// CreatedAt is the time that the ticket was created.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// FormatTicketID formats a ticket number as a ticket ID.
func FormatTicketID(n int64) string {
	return fmt.Sprintf("%04d", n)
}

// Name is the channel name for the ticket.
// For example, a mid tier middleman ticket with ID 0001 is named "midtier-0001".
func (t *Ticket) Name() string {
	prefix := string(t.Tier)
	if prefix == "" {
		prefix = string(t.Type)
	}
	return fmt.Sprintf("%s-%s", prefix, t.ID)
}

// IsClaimed reports whether the ticket is currently claimed.
func (t *Ticket) IsClaimed() bool {
	return t.Status == StatusClaimed && t.ClaimedBy != ""
}

// IsClosed reports whether the ticket has been closed.
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed
}
