package entities

import "time"

// BlacklistEntry stops a user from opening tickets in a guild.
type BlacklistEntry struct {
	// UserID is the ID of the blacklisted user.
	UserID string `json:"user_id"`

	// GuildID is the ID of the guild the user is blacklisted in.
	GuildID string `json:"guild_id"`

	// Reason is why the user was blacklisted.
	Reason string `json:"reason"`

	// BlacklistedBy is the ID of the user that added the entry.
	BlacklistedBy string `json:"blacklisted_by"`

	// CreatedAt is when the entry was added.
	CreatedAt time.Time `json:"created_at"`
}
