// Package messages holds the user facing strings that are shared between handlers.
package messages

const (
	// ErrUserErrorProcessing is shown when an unexpected error occurs while handling a request.
	ErrUserErrorProcessing = "Something went wrong while processing your request. Please try again later."

	// ErrNotTicketChannel is shown when a ticket command is used outside a ticket channel.
	ErrNotTicketChannel = "This command can only be used inside a ticket channel."

	// ErrTicketClosed is shown when a ticket has already been closed.
	ErrTicketClosed = "This ticket has been closed."

	// ErrNoPermission is shown when the user cannot manage the ticket.
	ErrNoPermission = "You do not have permission to manage this ticket."

	// ErrOwnerOnly is shown when a non owner uses an admin command.
	ErrOwnerOnly = "Only the server owner or an administrator can use this command."

	// ErrSlowDown is shown when a user is rate limited.
	ErrSlowDown = "You're doing that too fast. Please wait a moment and try again."

	// ErrTicketsLocked is shown when ticket creation is locked for the guild.
	ErrTicketsLocked = "Ticket creation is currently locked. Please try again later."

	// ErrAlreadyOpen is shown when a user already has a ticket open.
	ErrAlreadyOpen = "You already have an open ticket. Please use it or wait for it to be closed."

	// ErrCategoryNotSet is shown when the ticket category has not been configured.
	ErrCategoryNotSet = "The ticket category has not been configured. Ask an administrator to run `setcategory`."

	// ErrLogsNotSet is shown when the log channel has not been configured.
	ErrLogsNotSet = "The log channel has not been configured. Ask an administrator to run `setlogs`."

	// ErrAlreadyVerified is shown when a verified user presses the verify button.
	ErrAlreadyVerified = "You are already verified."

	// ErrVerificationNotSet is shown when verification has not been configured.
	ErrVerificationNotSet = "Verification has not been configured for this server."
)
