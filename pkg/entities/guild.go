package entities

// GuildConfig is the configuration for a guild.
type GuildConfig struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id"`

	// TicketCategoryID is the ID of the category that ticket channels are created in.
	TicketCategoryID string `json:"ticket_category_id,omitempty"`

	// LogChannelID is the ID of the channel that transcripts are sent to.
	LogChannelID string `json:"log_channel_id,omitempty"`

	// TicketCounter is the number of the last ticket allocated in the guild.
	TicketCounter int64 `json:"ticket_counter"`

	// StaffRoleID is the role that handles support tickets.
	StaffRoleID string `json:"staff_role_id,omitempty"`

	// LowTierRoleID is the role that handles low tier middleman tickets.
	LowTierRoleID string `json:"lowtier_role_id,omitempty"`

	// MidTierRoleID is the role that handles mid tier middleman tickets.
	MidTierRoleID string `json:"midtier_role_id,omitempty"`

	// HighTierRoleID is the role that handles high tier middleman tickets.
	HighTierRoleID string `json:"hightier_role_id,omitempty"`

	// VerifyChannelID is the channel that captcha answers are typed in.
	VerifyChannelID string `json:"verify_channel_id,omitempty"`

	// VerifiedRoleID is the role given once a user passes verification.
	VerifiedRoleID string `json:"verified_role_id,omitempty"`

	// UnverifiedRoleID is the role given to users when they join.
	UnverifiedRoleID string `json:"unverified_role_id,omitempty"`

	// MemberRoleID is the role given alongside the verified role.
	MemberRoleID string `json:"member_role_id,omitempty"`
}

// RoleMap returns the configured roles of the guild keyed by category.
// Categories without a configured role are left out.
func (g *GuildConfig) RoleMap() RoleMap {
	m := make(RoleMap)
	m.set(RoleStaff, g.StaffRoleID)
	m.set(RoleLowTier, g.LowTierRoleID)
	m.set(RoleMidTier, g.MidTierRoleID)
	m.set(RoleHighTier, g.HighTierRoleID)
	m.set(RoleVerified, g.VerifiedRoleID)
	m.set(RoleUnverified, g.UnverifiedRoleID)
	m.set(RoleMember, g.MemberRoleID)
	return m
}

// VerificationConfigured reports whether the guild has everything needed for verification.
func (g *GuildConfig) VerificationConfigured() bool {
	return g.VerifyChannelID != "" && g.VerifiedRoleID != "" && g.MemberRoleID != ""
}

// GuildConfigPatch is a partial update of a guild configuration. Nil fields keep their current value.
type GuildConfigPatch struct {
	TicketCategoryID *string
	LogChannelID     *string
	StaffRoleID      *string
	LowTierRoleID    *string
	MidTierRoleID    *string
	HighTierRoleID   *string
	VerifyChannelID  *string
	VerifiedRoleID   *string
	UnverifiedRoleID *string
	MemberRoleID     *string
}

// SetRole sets the patch field for the role category.
func (p *GuildConfigPatch) SetRole(c RoleCategory, roleID string) {
	id := roleID
	switch c {
	case RoleStaff:
		p.StaffRoleID = &id
	case RoleLowTier:
		p.LowTierRoleID = &id
	case RoleMidTier:
		p.MidTierRoleID = &id
	case RoleHighTier:
		p.HighTierRoleID = &id
	case RoleVerified:
		p.VerifiedRoleID = &id
	case RoleUnverified:
		p.UnverifiedRoleID = &id
	case RoleMember:
		p.MemberRoleID = &id
	}
}

// Apply merges the patch into the configuration.
func (p *GuildConfigPatch) Apply(g *GuildConfig) {
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&g.TicketCategoryID, p.TicketCategoryID)
	apply(&g.LogChannelID, p.LogChannelID)
	apply(&g.StaffRoleID, p.StaffRoleID)
	apply(&g.LowTierRoleID, p.LowTierRoleID)
	apply(&g.MidTierRoleID, p.MidTierRoleID)
	apply(&g.HighTierRoleID, p.HighTierRoleID)
	apply(&g.VerifyChannelID, p.VerifyChannelID)
	apply(&g.VerifiedRoleID, p.VerifiedRoleID)
	apply(&g.UnverifiedRoleID, p.UnverifiedRoleID)
	apply(&g.MemberRoleID, p.MemberRoleID)
}
