package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = "guild-1"
	testChannel = "verify-1"

	roleVerified   = "role-verified"
	roleUnverified = "role-unverified"
	roleMember     = "role-member"
)

type fakeStore struct {
	cfg *entities.GuildConfig
}

func (s *fakeStore) GetGuildConfig(context.Context, string) (*entities.GuildConfig, error) {
	if s.cfg == nil {
		return nil, dataaccess.ErrGuildConfigNotFound
	}
	cp := *s.cfg
	return &cp, nil
}

type fakeRoles struct{}

func (fakeRoles) Roles(context.Context, string) (entities.RoleMap, error) {
	return entities.RoleMap{
		entities.RoleVerified:   roleVerified,
		entities.RoleUnverified: roleUnverified,
		entities.RoleMember:     roleMember,
	}, nil
}

type transient struct {
	channelID string
	content   string
	ttl       time.Duration
}

type fakePlatform struct {
	mu        sync.Mutex
	roles     map[string][]string
	deleted   []string
	transient []transient
	addErr    error
}

func (p *fakePlatform) MemberRoles(_ context.Context, _, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.roles[userID]), nil
}

func (p *fakePlatform) AddRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return p.addErr
	}
	if !slices.Contains(p.roles[userID], roleID) {
		p.roles[userID] = append(p.roles[userID], roleID)
	}
	return nil
}

func (p *fakePlatform) RemoveRole(_ context.Context, _, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[userID] = slices.DeleteFunc(p.roles[userID], func(r string) bool { return r == roleID })
	return nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) SendTransient(_ context.Context, channelID, content string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transient = append(p.transient, transient{channelID: channelID, content: content, ttl: ttl})
	return nil
}

func (p *fakePlatform) held(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.roles[userID])
}

// sequence returns codes CODE01, CODE02, ... in order.
func sequence() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("CODE%02d", n), nil
	}
}

func newTestGate(t *testing.T) (*Gate, *fakeStore, *fakePlatform) {
	t.Helper()

	store := &fakeStore{cfg: &entities.GuildConfig{
		GuildID:         testGuild,
		VerifyChannelID: testChannel,
	}}
	platform := &fakePlatform{roles: map[string][]string{
		"user-1": {roleUnverified},
		"user-2": {roleVerified, roleMember},
	}}

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := NewGate(l, store, platform, fakeRoles{}, WithCodeGenerator(sequence()))
	return g, store, platform
}

func TestNewCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected character %q", r)
		}
		require.False(t, strings.ContainsAny(code, "O0I1"))
	}
}

func TestGate_RequestChallenge(t *testing.T) {
	g, store, _ := newTestGate(t)
	ctx := context.Background()

	code, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)
	require.Equal(t, "CODE01", code)
	require.True(t, g.Pending("user-1"))

	code, err = g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)
	require.Equal(t, "CODE02", code)

	_, err = g.RequestChallenge(ctx, testGuild, "user-2")
	require.ErrorIs(t, err, ErrAlreadyVerified)
	require.False(t, g.Pending("user-2"))

	store.cfg.VerifyChannelID = ""
	_, err = g.RequestChallenge(ctx, testGuild, "user-3")
	require.ErrorIs(t, err, ErrNotConfigured)

	store.cfg = nil
	_, err = g.RequestChallenge(ctx, testGuild, "user-3")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGate_SubmitCorrectAnswer(t *testing.T) {
	g, _, platform := newTestGate(t)
	ctx := context.Background()

	code, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	sub := &Submission{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-1",
		UserID:    "user-1",
		Content:   "  " + strings.ToLower(code) + "\n",
	}

	outcome, err := g.SubmitAnswer(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, OutcomeVerified, outcome)
	require.False(t, g.Pending("user-1"))

	held := platform.held("user-1")
	require.ElementsMatch(t, []string{roleVerified, roleMember}, held)

	require.Equal(t, []string{"msg-1"}, platform.deleted)
	require.Len(t, platform.transient, 1)
	require.Equal(t, WelcomeTTL, platform.transient[0].ttl)

	outcome, err = g.SubmitAnswer(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)
}

func TestGate_SubmitWrongAnswer(t *testing.T) {
	g, _, platform := newTestGate(t)
	ctx := context.Background()

	_, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	outcome, err := g.SubmitAnswer(ctx, &Submission{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-1",
		UserID:    "user-1",
		Content:   "WRONG",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeRetry, outcome)
	require.True(t, g.Pending("user-1"))

	require.Equal(t, []string{roleUnverified}, platform.held("user-1"))
	require.Equal(t, []string{"msg-1"}, platform.deleted)
	require.Len(t, platform.transient, 1)
	require.Equal(t, RetryTTL, platform.transient[0].ttl)
	require.Contains(t, platform.transient[0].content, "CODE02")

	outcome, err = g.SubmitAnswer(ctx, &Submission{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-2",
		UserID:    "user-1",
		Content:   "CODE01",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeRetry, outcome)

	outcome, err = g.SubmitAnswer(ctx, &Submission{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: "msg-3",
		UserID:    "user-1",
		Content:   "CODE03",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeVerified, outcome)
}

func TestGate_SubmitIgnored(t *testing.T) {
	g, _, platform := newTestGate(t)
	ctx := context.Background()

	outcome, err := g.SubmitAnswer(ctx, &Submission{GuildID: testGuild, ChannelID: testChannel, UserID: "user-1", Content: "CODE01"})
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)

	_, err = g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	outcome, err = g.SubmitAnswer(ctx, &Submission{GuildID: testGuild, ChannelID: "general", UserID: "user-1", Content: "CODE01"})
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, outcome)
	require.True(t, g.Pending("user-1"))
	require.Empty(t, platform.deleted)
}

func TestGate_PromoteFailureIsReported(t *testing.T) {
	g, _, platform := newTestGate(t)
	ctx := context.Background()

	code, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	platform.addErr = errors.New("missing permissions")
	outcome, err := g.SubmitAnswer(ctx, &Submission{GuildID: testGuild, ChannelID: testChannel, MessageID: "msg-1", UserID: "user-1", Content: code})
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
	require.Equal(t, "failed", outcome.String())

	// The session is used up and the user is told to start again.
	require.False(t, g.Pending("user-1"))
	require.NotContains(t, platform.held("user-1"), roleVerified)
	require.Equal(t, []string{"msg-1"}, platform.deleted)
	require.Len(t, platform.transient, 1)
	require.Contains(t, platform.transient[0].content, "verify button")

	platform.addErr = nil
	_, err = g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)
	require.True(t, g.Pending("user-1"))
}

func TestGate_CodeFailureOnRetry(t *testing.T) {
	g, _, platform := newTestGate(t)
	ctx := context.Background()

	_, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	g.newCode = func() (string, error) { return "", errors.New("no entropy") }
	outcome, err := g.SubmitAnswer(ctx, &Submission{GuildID: testGuild, ChannelID: testChannel, MessageID: "msg-1", UserID: "user-1", Content: "WRONG"})
	require.Error(t, err)
	require.Equal(t, OutcomeFailed, outcome)
	require.False(t, g.Pending("user-1"))
	require.Len(t, platform.transient, 1)
}

func TestGate_ConcurrentCorrectAnswers(t *testing.T) {
	g, _, _ := newTestGate(t)
	ctx := context.Background()

	code, err := g.RequestChallenge(ctx, testGuild, "user-1")
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verified int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := g.SubmitAnswer(ctx, &Submission{GuildID: testGuild, ChannelID: testChannel, UserID: "user-1", Content: code})
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			if outcome == OutcomeVerified {
				mu.Lock()
				verified++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, verified)
}

func TestGate_OnMemberJoin(t *testing.T) {
	g, store, platform := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, g.OnMemberJoin(ctx, testGuild, "user-9"))
	require.Equal(t, []string{roleUnverified}, platform.held("user-9"))

	store.cfg = nil
	require.NoError(t, g.OnMemberJoin(ctx, testGuild, "user-10"))
	require.Empty(t, platform.held("user-10"))
}
