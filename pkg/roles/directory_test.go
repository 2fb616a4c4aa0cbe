package roles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	cfg     *entities.GuildConfig
	upserts int
	err     error
}

func (s *fakeStore) GetGuildConfig(_ context.Context, guildID string) (*entities.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return nil, dataaccess.ErrGuildConfigNotFound
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *fakeStore) UpsertGuildConfig(_ context.Context, guildID string, patch *entities.GuildConfigPatch) (*entities.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		s.cfg = &entities.GuildConfig{GuildID: guildID}
	}
	patch.Apply(s.cfg)
	cp := *s.cfg
	return &cp, nil
}

type fakeLister struct {
	calls int
	roles []*Role
	err   error
}

func (l *fakeLister) GuildRoles(context.Context, string) ([]*Role, error) {
	l.calls++
	return l.roles, l.err
}

func newTestDirectory(store *fakeStore, lister *fakeLister, names Names) *Directory {
	return NewDirectory(slog.New(slog.NewTextHandler(io.Discard, nil)), store, lister, names)
}

func TestDirectory_ConfiguredRolesWin(t *testing.T) {
	store := &fakeStore{cfg: &entities.GuildConfig{
		GuildID:          "guild-1",
		StaffRoleID:      "configured-staff",
		LowTierRoleID:    "configured-low",
		MidTierRoleID:    "configured-mid",
		HighTierRoleID:   "configured-high",
		VerifiedRoleID:   "configured-verified",
		UnverifiedRoleID: "configured-unverified",
		MemberRoleID:     "configured-member",
	}}
	lister := &fakeLister{roles: []*Role{{ID: "named-staff", Name: "Staff"}}}
	d := newTestDirectory(store, lister, nil)

	got, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)

	staff, ok := got.Get(entities.RoleStaff)
	require.True(t, ok)
	require.Equal(t, "configured-staff", staff)
	require.Zero(t, lister.calls)
	require.Zero(t, store.upserts)
}

func TestDirectory_ResolvesByNameOnce(t *testing.T) {
	store := &fakeStore{cfg: &entities.GuildConfig{GuildID: "guild-1", StaffRoleID: "configured-staff"}}
	lister := &fakeLister{roles: []*Role{
		{ID: "named-staff", Name: "Staff"},
		{ID: "named-mid", Name: "mid tier middleman"},
		{ID: "named-traders", Name: "Traders"},
	}}
	d := newTestDirectory(store, lister, Names{entities.RoleHighTier: "Traders"})

	got, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)

	require.Equal(t, "configured-staff", got[entities.RoleStaff])
	require.Equal(t, "named-mid", got[entities.RoleMidTier])
	require.Equal(t, "named-traders", got[entities.RoleHighTier])
	_, ok := got.Get(entities.RoleLowTier)
	require.False(t, ok)

	require.Equal(t, 1, store.upserts)
	require.Equal(t, "named-mid", store.cfg.MidTierRoleID)
	require.Equal(t, "configured-staff", store.cfg.StaffRoleID)

	got[entities.RoleStaff] = "mutated"

	again, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Equal(t, "configured-staff", again[entities.RoleStaff])
	require.Equal(t, 1, lister.calls)

	d.Invalidate("guild-1")
	_, err = d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Equal(t, 2, lister.calls)
}

func TestDirectory_NoConfig(t *testing.T) {
	store := new(fakeStore)
	lister := &fakeLister{roles: []*Role{{ID: "named-verified", Name: "Verified"}}}
	d := newTestDirectory(store, lister, nil)

	got, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Equal(t, "named-verified", got[entities.RoleVerified])
	require.NotNil(t, store.cfg)
	require.Equal(t, "named-verified", store.cfg.VerifiedRoleID)
}

func TestDirectory_ListerErrorNotCached(t *testing.T) {
	store := new(fakeStore)
	lister := &fakeLister{err: errors.New("discord unavailable")}
	d := newTestDirectory(store, lister, nil)

	_, err := d.Roles(context.Background(), "guild-1")
	require.Error(t, err)

	lister.err = nil
	lister.roles = []*Role{{ID: "named-staff", Name: "Staff"}}
	got, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Equal(t, "named-staff", got[entities.RoleStaff])
}

func TestDirectory_WriteBackFailureStillResolves(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	lister := &fakeLister{roles: []*Role{{ID: "named-staff", Name: "Staff"}}}
	d := newTestDirectory(store, lister, nil)

	got, err := d.Roles(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Equal(t, "named-staff", got[entities.RoleStaff])
}

func TestNewDirectory_Names(t *testing.T) {
	d := newTestDirectory(new(fakeStore), new(fakeLister), Names{entities.RoleStaff: "Support Team", entities.RoleMember: ""})
	require.Equal(t, "Support Team", d.Name(entities.RoleStaff))
	require.Equal(t, "Member", d.Name(entities.RoleMember))
}
