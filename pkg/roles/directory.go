// Package roles resolves the role categories the bot works with to the role IDs of each guild.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
)

// Role is a role of a guild.
type Role struct {
	ID   string
	Name string
}

// Lister lists the roles of a guild.
type Lister interface {
	GuildRoles(ctx context.Context, guildID string) ([]*Role, error)
}

// Store is where resolved roles are read from and written back to.
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*entities.GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, guildID string, patch *entities.GuildConfigPatch) (*entities.GuildConfig, error)
}

// Names are the role names each category is looked up by when it has not been configured.
type Names map[entities.RoleCategory]string

// DefaultNames returns the role names used when nothing else is configured.
func DefaultNames() Names {
	return Names{
		entities.RoleStaff:      "Staff",
		entities.RoleLowTier:    "Low Tier Middleman",
		entities.RoleMidTier:    "Mid Tier Middleman",
		entities.RoleHighTier:   "High Tier Middleman",
		entities.RoleVerified:   "Verified",
		entities.RoleUnverified: "Unverified",
		entities.RoleMember:     "Member",
	}
}

// Directory caches the resolved roles of every guild it has seen.
type Directory struct {
	l      *slog.Logger
	store  Store
	lister Lister
	names  Names

	mu    sync.Mutex
	cache map[string]entities.RoleMap
}

// NewDirectory creates a new Directory. Categories missing from names fall back to the defaults.
func NewDirectory(l *slog.Logger, store Store, lister Lister, names Names) *Directory {
	merged := DefaultNames()
	for c, n := range names {
		if n != "" {
			merged[c] = n
		}
	}

	return &Directory{
		l:      l.With(slog.String("component", "roles")),
		store:  store,
		lister: lister,
		names:  merged,
		cache:  make(map[string]entities.RoleMap),
	}
}

// Roles returns the role IDs of the guild. Configured roles win. Categories that have not been
// configured are looked up by name once and written back to the guild configuration.
func (d *Directory) Roles(ctx context.Context, guildID string) (entities.RoleMap, error) {
	d.mu.Lock()
	cached, ok := d.cache[guildID]
	d.mu.Unlock()
	if ok {
		return maps.Clone(cached), nil
	}

	cfg, err := d.store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, dataaccess.ErrGuildConfigNotFound) {
		cfg = &entities.GuildConfig{GuildID: guildID}
	} else if err != nil {
		return nil, fmt.Errorf("error getting guild config: %w", err)
	}

	resolved := cfg.RoleMap()
	if err := d.resolveMissing(ctx, guildID, resolved); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cache[guildID] = resolved
	d.mu.Unlock()

	return maps.Clone(resolved), nil
}

func (d *Directory) resolveMissing(ctx context.Context, guildID string, resolved entities.RoleMap) error {
	var missing []entities.RoleCategory
	for _, c := range entities.RoleCategories {
		if _, ok := resolved.Get(c); !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	guildRoles, err := d.lister.GuildRoles(ctx, guildID)
	if err != nil {
		return fmt.Errorf("error listing guild roles: %w", err)
	}

	byName := make(map[string]string, len(guildRoles))
	for _, r := range guildRoles {
		key := strings.ToLower(r.Name)
		if _, ok := byName[key]; !ok {
			byName[key] = r.ID
		}
	}

	patch := new(entities.GuildConfigPatch)
	found := 0
	for _, c := range missing {
		id, ok := byName[strings.ToLower(d.names[c])]
		if !ok {
			continue
		}
		resolved[c] = id
		patch.SetRole(c, id)
		found++
	}

	if found == 0 {
		return nil
	}

	if _, err := d.store.UpsertGuildConfig(ctx, guildID, patch); err != nil {
		d.l.Warn("Failed to save resolved roles",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
	return nil
}

// Invalidate drops the cached roles of the guild so the next lookup reads the configuration again.
func (d *Directory) Invalidate(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, guildID)
}

// Name returns the role name the category is looked up by.
func (d *Directory) Name(c entities.RoleCategory) string {
	return d.names[c]
}
