package tickets

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
)

// TranscriptLimit is the most messages a transcript holds.
const TranscriptLimit = 500

const transcriptTimeFormat = "2006-01-02 15:04:05 UTC"

// Message is a chat message as it appears in a transcript.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Attachments []string
	Embeds      int
}

// Summary describes a closed ticket alongside its transcript.
type Summary struct {
	TicketID     string
	Name         string
	Type         entities.TicketType
	Tier         entities.Tier
	OpenerID     string
	ClaimedBy    string
	ClosedBy     string
	CreatedAt    time.Time
	ClosedAt     time.Time
	MessageCount int
	Details      entities.TradeDetails
}

// NewSummary builds the summary of a ticket being closed.
func NewSummary(t *entities.Ticket, claimedBy, closedBy string, closedAt time.Time, messageCount int) *Summary {
	return &Summary{
		TicketID:     t.ID,
		Name:         t.Name(),
		Type:         t.Type,
		Tier:         t.Tier,
		OpenerID:     t.UserID,
		ClaimedBy:    claimedBy,
		ClosedBy:     closedBy,
		CreatedAt:    t.CreatedAt,
		ClosedAt:     closedAt,
		MessageCount: messageCount,
		Details:      t.TradeDetails,
	}
}

// RenderTranscript renders the summary header followed by one line per message, oldest first.
// Messages are expected newest first, the order the platform returns them in.
func RenderTranscript(s *Summary, msgs []*Message) []byte {
	ordered := slices.Clone(msgs)
	slices.Reverse(ordered)
	slices.SortStableFunc(ordered, func(a, b *Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	b := new(strings.Builder)
	fmt.Fprintf(b, "Transcript of ticket %s (%s)\n", s.TicketID, s.Name)
	fmt.Fprintf(b, "Type: %s\n", s.Type)
	if s.Tier != entities.TierNone {
		fmt.Fprintf(b, "Tier: %s\n", s.Tier)
	}
	fmt.Fprintf(b, "Opened by: %s\n", s.OpenerID)
	if s.ClaimedBy != "" {
		fmt.Fprintf(b, "Claimed by: %s\n", s.ClaimedBy)
	} else {
		b.WriteString("Claimed by: nobody\n")
	}
	fmt.Fprintf(b, "Closed by: %s\n", s.ClosedBy)
	fmt.Fprintf(b, "Created: %s\n", s.CreatedAt.UTC().Format(transcriptTimeFormat))
	fmt.Fprintf(b, "Closed: %s\n", s.ClosedAt.UTC().Format(transcriptTimeFormat))

	keys := make([]string, 0, len(s.Details))
	for k := range s.Details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %s\n", k, s.Details[k])
	}

	fmt.Fprintf(b, "Messages: %d\n", len(ordered))
	b.WriteString(strings.Repeat("-", 40))
	b.WriteString("\n")

	for _, m := range ordered {
		fmt.Fprintf(b, "[%s] %s: %s\n", m.Timestamp.UTC().Format(transcriptTimeFormat), authorName(m), messageBody(m))
	}

	return []byte(b.String())
}

func authorName(m *Message) string {
	if m.AuthorName != "" {
		return m.AuthorName
	}
	return m.AuthorID
}

func messageBody(m *Message) string {
	parts := make([]string, 0, 1+len(m.Attachments))
	if content := strings.TrimSpace(m.Content); content != "" {
		parts = append(parts, strings.ReplaceAll(content, "\n", "\n    "))
	}
	for _, a := range m.Attachments {
		parts = append(parts, fmt.Sprintf("[attachment: %s]", a))
	}

	if len(parts) == 0 {
		if m.Embeds > 0 {
			return "[embed]"
		}
		return "[no content]"
	}
	return strings.Join(parts, " ")
}
