package entities

// RoleCategory is a kind of role the bot cares about.
type RoleCategory int

const (
	// RoleStaff handles support and reward tickets.
	RoleStaff RoleCategory = iota

	// RoleLowTier handles low tier middleman tickets.
	RoleLowTier

	// RoleMidTier handles mid tier middleman tickets.
	RoleMidTier

	// RoleHighTier handles high tier middleman tickets.
	RoleHighTier

	// RoleVerified is given when verification passes.
	RoleVerified

	// RoleUnverified is given on join and removed when verification passes.
	RoleUnverified

	// RoleMember is given alongside the verified role.
	RoleMember
)

// RoleCategories is every role category.
var RoleCategories = []RoleCategory{
	RoleStaff,
	RoleLowTier,
	RoleMidTier,
	RoleHighTier,
	RoleVerified,
	RoleUnverified,
	RoleMember,
}

// String returns the name of the role category.
func (c RoleCategory) String() string {
	switch c {
	case RoleStaff:
		return "staff"
	case RoleLowTier:
		return "lowtier"
	case RoleMidTier:
		return "midtier"
	case RoleHighTier:
		return "hightier"
	case RoleVerified:
		return "verified"
	case RoleUnverified:
		return "unverified"
	case RoleMember:
		return "member"
	default:
		return "unknown"
	}
}

// TierRole returns the role category that handles middleman tickets of the tier.
func TierRole(t Tier) (RoleCategory, bool) {
	switch t {
	case TierLow:
		return RoleLowTier, true
	case TierMid:
		return RoleMidTier, true
	case TierHigh:
		return RoleHighTier, true
	default:
		return 0, false
	}
}

// RoleMap maps role categories to platform role IDs.
type RoleMap map[RoleCategory]string

// Get returns the role ID for the category.
func (m RoleMap) Get(c RoleCategory) (string, bool) {
	id, ok := m[c]
	return id, ok && id != ""
}

func (m RoleMap) set(c RoleCategory, id string) {
	if id != "" {
		m[c] = id
	}
}

// HandlerRoles returns the role IDs that are authorized to handle the ticket.
// Support tickets are handled by staff, middleman tickets by the role of their tier.
func (m RoleMap) HandlerRoles(t *Ticket) []string {
	var c RoleCategory
	switch t.Type {
	case TicketTypeSupport:
		c = RoleStaff
	case TicketTypeMiddleman:
		tc, ok := TierRole(t.Tier)
		if !ok {
			return nil
		}
		c = tc
	default:
		return nil
	}

	id, ok := m.Get(c)
	if !ok {
		return nil
	}
	return []string{id}
}

// StaffRoles returns every configured ticket handling role.
func (m RoleMap) StaffRoles() []string {
	var ids []string
	for _, c := range []RoleCategory{RoleStaff, RoleLowTier, RoleMidTier, RoleHighTier} {
		if id, ok := m.Get(c); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
