package entities

import "github.com/Jacobbrewer1/ticketdesk/pkg/custom"

// Transcript is the archived record of a closed ticket.
type Transcript struct {
	// ID is the ID of the archive document.
	ID string `json:"id" bson:"_id"`

	// Ticket is a snapshot of the ticket at the time it was closed.
	Ticket Ticket `json:"ticket" bson:"ticket"`

	// ClosedBy is the ID of the user that closed the ticket.
	ClosedBy string `json:"closed_by" bson:"closed_by"`

	// ClosedAt is when the ticket was closed.
	ClosedAt custom.Datetime `json:"closed_at" bson:"closed_at"`

	// MessageCount is the number of messages in the transcript.
	MessageCount int `json:"message_count" bson:"message_count"`

	// Content is the rendered transcript.
	Content string `json:"content" bson:"content"`
}
