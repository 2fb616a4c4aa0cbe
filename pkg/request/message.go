package request

import "fmt"

// Message is the JSON body returned by the monitoring server.
type Message struct {
	Message string `json:"Message" xml:"Message"`
}

// NewMessage creates a new Message. The message is formatted with args when any are given.
func NewMessage(message string, args ...any) *Message {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &Message{
		Message: message,
	}
}
