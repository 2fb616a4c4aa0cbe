package dataaccess

import "errors"

var (
	// ErrTicketNotFound is returned when no ticket matches the lookup.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrDuplicateTicket is returned when a ticket with the same ID already exists in the guild.
	ErrDuplicateTicket = errors.New("duplicate ticket id")

	// ErrOpenTicketExists is returned when the user already has a ticket that is not closed.
	ErrOpenTicketExists = errors.New("user already has an open ticket")

	// ErrGuildConfigNotFound is returned when the guild has never been configured.
	ErrGuildConfigNotFound = errors.New("guild config not found")
)
