package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
)

const (
	testGuild    = "guild-1"
	testCategory = "category-1"
	testLogs     = "logs-1"
	testBot      = "bot-1"

	roleStaff = "role-staff"
	roleLow   = "role-low"
	roleMid   = "role-mid"
	roleHigh  = "role-high"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type ticketKey struct {
	guild string
	id    string
}

type fakeStore struct {
	mu        sync.Mutex
	counters  map[string]int64
	tickets   map[ticketKey]*entities.Ticket
	configs   map[string]*entities.GuildConfig
	blacklist map[string]*entities.BlacklistEntry

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters:  make(map[string]int64),
		tickets:   make(map[ticketKey]*entities.Ticket),
		configs:   make(map[string]*entities.GuildConfig),
		blacklist: make(map[string]*entities.BlacklistEntry),
	}
}

func (s *fakeStore) NextTicketNumber(_ context.Context, guildID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[guildID]++
	return s.counters[guildID], nil
}

func (s *fakeStore) CreateTicket(_ context.Context, t *entities.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}

	k := ticketKey{t.GuildID, t.ID}
	if _, ok := s.tickets[k]; ok {
		return dataaccess.ErrDuplicateTicket
	}
	for _, existing := range s.tickets {
		if existing.GuildID == t.GuildID && existing.UserID == t.UserID && !existing.IsClosed() {
			return dataaccess.ErrOpenTicketExists
		}
	}

	cp := *t
	s.tickets[k] = &cp
	return nil
}

func (s *fakeStore) GetTicketByChannel(_ context.Context, channelID string) (*entities.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.ChannelID == channelID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, dataaccess.ErrTicketNotFound
}

func (s *fakeStore) GetTicketByID(_ context.Context, guildID, id string) (*entities.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketKey{guildID, id}]
	if !ok {
		return nil, dataaccess.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) update(guildID, id string, cond func(*entities.Ticket) bool, apply func(*entities.Ticket)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketKey{guildID, id}]
	if !ok || !cond(t) {
		return false, nil
	}
	apply(t)
	return true, nil
}

func (s *fakeStore) ClaimTicket(_ context.Context, guildID, id, claimant string) (bool, error) {
	return s.update(guildID, id,
		func(t *entities.Ticket) bool { return t.Status == entities.StatusOpen && t.ClaimedBy == "" },
		func(t *entities.Ticket) { t.Status = entities.StatusClaimed; t.ClaimedBy = claimant },
	)
}

func (s *fakeStore) ReleaseClaim(_ context.Context, guildID, id, claimant string) (bool, error) {
	return s.update(guildID, id,
		func(t *entities.Ticket) bool { return t.Status == entities.StatusClaimed && t.ClaimedBy == claimant },
		func(t *entities.Ticket) { t.Status = entities.StatusOpen; t.ClaimedBy = "" },
	)
}

func (s *fakeStore) TransferClaim(_ context.Context, guildID, id, from, to string) (bool, error) {
	return s.update(guildID, id,
		func(t *entities.Ticket) bool { return t.Status == entities.StatusClaimed && t.ClaimedBy == from },
		func(t *entities.Ticket) { t.ClaimedBy = to },
	)
}

func (s *fakeStore) CloseTicket(_ context.Context, guildID, id string) (bool, error) {
	return s.update(guildID, id,
		func(t *entities.Ticket) bool { return t.Status != entities.StatusClosed },
		func(t *entities.Ticket) { t.Status = entities.StatusClosed; t.ClaimedBy = "" },
	)
}

func (s *fakeStore) OpenTicketCountForUser(_ context.Context, userID, guildID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.GuildID == guildID && t.UserID == userID && !t.IsClosed() {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) GetGuildConfig(_ context.Context, guildID string) (*entities.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[guildID]
	if !ok {
		return nil, dataaccess.ErrGuildConfigNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (s *fakeStore) IsBlacklisted(_ context.Context, userID, guildID string) (*entities.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blacklist[guildID+"/"+userID], nil
}

func (s *fakeStore) ticket(t *testing.T, id string) *entities.Ticket {
	t.Helper()
	got, err := s.GetTicketByID(context.Background(), testGuild, id)
	if err != nil {
		t.Fatalf("ticket %s: %v", id, err)
	}
	return got
}

type overwrite struct {
	allow int64
	deny  int64
}

type sentTranscript struct {
	channelID string
	summary   *Summary
	filename  string
	content   []byte
}

type fakePlatform struct {
	mu          sync.Mutex
	nextChannel int
	channels    map[string]*ChannelRequest
	overwrites  map[string]map[string]overwrite
	memberRoles map[string][]string
	history     map[string][]*Message
	sent        map[string][]string
	transcripts []sentTranscript

	createErr     error
	overwriteErr  error
	transcriptErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:    make(map[string]*ChannelRequest),
		overwrites:  make(map[string]map[string]overwrite),
		memberRoles: make(map[string][]string),
		history:     make(map[string][]*Message),
		sent:        make(map[string][]string),
	}
}

func (p *fakePlatform) set(channelID, targetID string, allow, deny int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overwriteErr != nil {
		return p.overwriteErr
	}
	if p.overwrites[channelID] == nil {
		p.overwrites[channelID] = make(map[string]overwrite)
	}
	p.overwrites[channelID][targetID] = overwrite{allow: allow, deny: deny}
	return nil
}

func (p *fakePlatform) SetRoleOverwrite(_ context.Context, channelID, roleID string, allow, deny int64) error {
	return p.set(channelID, roleID, allow, deny)
}

func (p *fakePlatform) SetMemberOverwrite(_ context.Context, channelID, userID string, allow, deny int64) error {
	return p.set(channelID, userID, allow, deny)
}

func (p *fakePlatform) DeleteOverwrite(_ context.Context, channelID, targetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overwriteErr != nil {
		return p.overwriteErr
	}
	delete(p.overwrites[channelID], targetID)
	return nil
}

func (p *fakePlatform) CreateChannel(_ context.Context, req *ChannelRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	p.nextChannel++
	id := fmt.Sprintf("channel-%d", p.nextChannel)
	p.channels[id] = req
	p.overwrites[id] = make(map[string]overwrite)
	for _, o := range req.Overwrites {
		p.overwrites[id][o.ID] = overwrite{allow: o.Allow, deny: o.Deny}
	}
	return id, nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[channelID]; !ok {
		return errors.New("unknown channel")
	}
	delete(p.channels, channelID)
	return nil
}

func (p *fakePlatform) RenameChannel(_ context.Context, channelID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.channels[channelID]
	if !ok {
		return errors.New("unknown channel")
	}
	req.Name = name
	return nil
}

func (p *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[channelID] = append(p.sent[channelID], content)
	return nil
}

func (p *fakePlatform) RecentMessages(_ context.Context, channelID string, limit int) ([]*Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.history[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (p *fakePlatform) SendTranscript(_ context.Context, channelID string, summary *Summary, filename string, content []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transcriptErr != nil {
		return p.transcriptErr
	}
	p.transcripts = append(p.transcripts, sentTranscript{
		channelID: channelID,
		summary:   summary,
		filename:  filename,
		content:   content,
	})
	return nil
}

func (p *fakePlatform) MemberRoles(_ context.Context, _, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memberRoles[userID], nil
}

func (p *fakePlatform) overwrite(channelID, targetID string) (overwrite, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.overwrites[channelID][targetID]
	return o, ok
}

func (p *fakePlatform) channelExists(channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[channelID]
	return ok
}

type fakeRoles struct {
	roles entities.RoleMap
}

func (r *fakeRoles) Roles(context.Context, string) (entities.RoleMap, error) {
	return r.roles, nil
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []*entities.Transcript
	err   error
}

func (a *fakeArchive) SaveTranscript(_ context.Context, t *entities.Transcript) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, t)
	return nil
}

type harness struct {
	store    *fakeStore
	platform *fakePlatform
	archive  *fakeArchive
	lc       *Lifecycle
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	store.configs[testGuild] = &entities.GuildConfig{
		GuildID:          testGuild,
		TicketCategoryID: testCategory,
		LogChannelID:     testLogs,
	}

	platform := newFakePlatform()
	platform.memberRoles["staff-1"] = []string{roleStaff}
	platform.memberRoles["staff-2"] = []string{roleStaff}
	platform.memberRoles["mid-1"] = []string{roleMid}
	platform.memberRoles["mid-2"] = []string{roleMid}
	platform.memberRoles["low-1"] = []string{roleLow}

	roles := &fakeRoles{roles: entities.RoleMap{
		entities.RoleStaff:    roleStaff,
		entities.RoleLowTier:  roleLow,
		entities.RoleMidTier:  roleMid,
		entities.RoleHighTier: roleHigh,
	}}

	archive := new(fakeArchive)
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	lc := NewLifecycle(l, store, platform, roles,
		WithArchive(archive),
		WithBotID(testBot),
		WithClock(func() time.Time { return testNow }),
	)
	lc.newID = func() string { return "transcript-id" }

	return &harness{
		store:    store,
		platform: platform,
		archive:  archive,
		lc:       lc,
	}
}

func (h *harness) open(t *testing.T, userID string, tier entities.Tier) *entities.Ticket {
	t.Helper()
	tt := entities.TicketTypeMiddleman
	if tier == entities.TierSupport || tier == entities.TierReward {
		tt = entities.TicketTypeSupport
	}
	ticket, err := h.lc.Open(context.Background(), &OpenRequest{
		GuildID: testGuild,
		UserID:  userID,
		Type:    tt,
		Tier:    tier,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return ticket
}

func action(ticket *entities.Ticket, actorID string) Action {
	return Action{
		GuildID:   ticket.GuildID,
		ChannelID: ticket.ChannelID,
		ActorID:   actorID,
	}
}
