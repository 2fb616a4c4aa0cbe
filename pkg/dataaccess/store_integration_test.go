package dataaccess

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Jacobbrewer1/ticketdesk/pkg/entities"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	guildID := uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM tickets WHERE guild_id = $1`, guildID)
		_, _ = pool.Exec(ctx, `DELETE FROM blacklist WHERE guild_id = $1`, guildID)
		_, _ = pool.Exec(ctx, `DELETE FROM config WHERE guild_id = $1`, guildID)
		pool.Close()
	})

	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)), pool), guildID
}

func newTestTicket(guildID, id, userID string) *entities.Ticket {
	return &entities.Ticket{
		ID:           id,
		GuildID:      guildID,
		ChannelID:    uuid.NewString(),
		UserID:       userID,
		Type:         entities.TicketTypeMiddleman,
		Tier:         entities.TierMid,
		Status:       entities.StatusOpen,
		TradeDetails: entities.TradeDetails{"other_party": "bob"},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestStore_NextTicketNumber(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := st.NextTicketNumber(ctx, guildID)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	other := uuid.NewString()
	t.Cleanup(func() {
		_, _ = st.GuildDal.(*guildDalImpl).pool.Exec(context.Background(), `DELETE FROM config WHERE guild_id = $1`, other)
	})
	got, err := st.NextTicketNumber(ctx, other)
	require.NoError(t, err)
	require.Equal(t, int64(1), got)
}

func TestStore_NextTicketNumberConcurrent(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := st.NextTicketNumber(ctx, guildID)
			if err != nil {
				t.Errorf("next ticket number: %v", err)
				return
			}
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, workers)
	for i, n := range got {
		require.Equal(t, int64(i+1), n)
	}
}

func TestStore_TicketLifecycle(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	ticket := newTestTicket(guildID, "0001", "user-1")
	require.NoError(t, st.CreateTicket(ctx, ticket))

	got, err := st.GetTicketByChannel(ctx, ticket.ChannelID)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, got.ID)
	require.Equal(t, entities.TierMid, got.Tier)
	require.Equal(t, entities.StatusOpen, got.Status)
	require.Empty(t, got.ClaimedBy)
	require.Equal(t, "bob", got.TradeDetails["other_party"])
	require.True(t, ticket.CreatedAt.Equal(got.CreatedAt))

	dup := newTestTicket(guildID, "0001", "user-2")
	require.ErrorIs(t, st.CreateTicket(ctx, dup), ErrDuplicateTicket)

	second := newTestTicket(guildID, "0002", "user-1")
	require.ErrorIs(t, st.CreateTicket(ctx, second), ErrOpenTicketExists)

	n, err := st.OpenTicketCountForUser(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err := st.ClaimTicket(ctx, guildID, "0001", "staff-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.ClaimTicket(ctx, guildID, "0001", "staff-2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.ReleaseClaim(ctx, guildID, "0001", "staff-2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.TransferClaim(ctx, guildID, "0001", "staff-1", "staff-2")
	require.NoError(t, err)
	require.True(t, ok)

	got, err = st.GetTicketByID(ctx, guildID, "0001")
	require.NoError(t, err)
	require.Equal(t, entities.StatusClaimed, got.Status)
	require.Equal(t, "staff-2", got.ClaimedBy)

	ok, err = st.ReleaseClaim(ctx, guildID, "0001", "staff-2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.CloseTicket(ctx, guildID, "0001")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.CloseTicket(ctx, guildID, "0001")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.ClaimTicket(ctx, guildID, "0001", "staff-1")
	require.NoError(t, err)
	require.False(t, ok)

	n, err = st.OpenTicketCountForUser(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, st.CreateTicket(ctx, second))

	_, err = st.GetTicketByID(ctx, guildID, "9999")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestStore_ConcurrentClaims(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateTicket(ctx, newTestTicket(guildID, "0001", "user-1")))

	const workers = 10
	var (
		wg   sync.WaitGroup
		wins int32
		mu   sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.ClaimTicket(ctx, guildID, "0001", uuid.NewString())
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins)
}

func TestStore_SetClaimAndStatus(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateTicket(ctx, newTestTicket(guildID, "0001", "user-1")))

	require.NoError(t, st.SetClaim(ctx, guildID, "0001", "staff-1", entities.StatusClaimed))
	got, err := st.GetTicketByID(ctx, guildID, "0001")
	require.NoError(t, err)
	require.Equal(t, "staff-1", got.ClaimedBy)

	require.NoError(t, st.SetClaim(ctx, guildID, "0001", "", entities.StatusOpen))
	require.NoError(t, st.SetStatus(ctx, guildID, "0001", entities.StatusClosed))
	got, err = st.GetTicketByID(ctx, guildID, "0001")
	require.NoError(t, err)
	require.Equal(t, entities.StatusClosed, got.Status)
	require.Empty(t, got.ClaimedBy)

	require.ErrorIs(t, st.SetStatus(ctx, guildID, "9999", entities.StatusOpen), ErrTicketNotFound)
}

func TestStore_GuildConfig(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	_, err := st.GetGuildConfig(ctx, guildID)
	require.ErrorIs(t, err, ErrGuildConfigNotFound)

	category := "category-1"
	cfg, err := st.UpsertGuildConfig(ctx, guildID, &entities.GuildConfigPatch{TicketCategoryID: &category})
	require.NoError(t, err)
	require.Equal(t, category, cfg.TicketCategoryID)
	require.Empty(t, cfg.LogChannelID)

	logs := "logs-1"
	patch := &entities.GuildConfigPatch{LogChannelID: &logs}
	patch.SetRole(entities.RoleStaff, "role-staff")
	cfg, err = st.UpsertGuildConfig(ctx, guildID, patch)
	require.NoError(t, err)
	require.Equal(t, category, cfg.TicketCategoryID)
	require.Equal(t, logs, cfg.LogChannelID)
	require.Equal(t, "role-staff", cfg.StaffRoleID)

	_, err = st.NextTicketNumber(ctx, guildID)
	require.NoError(t, err)

	cfg, err = st.GetGuildConfig(ctx, guildID)
	require.NoError(t, err)
	require.Equal(t, int64(1), cfg.TicketCounter)
	require.Equal(t, category, cfg.TicketCategoryID)
}

func TestStore_Blacklist(t *testing.T) {
	st, guildID := setupTestStore(t)
	ctx := context.Background()

	entry, err := st.IsBlacklisted(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.Nil(t, entry)

	added, err := st.AddBlacklist(ctx, &entities.BlacklistEntry{UserID: "user-1", GuildID: guildID, Reason: "scam", BlacklistedBy: "owner"})
	require.NoError(t, err)
	require.True(t, added)

	added, err = st.AddBlacklist(ctx, &entities.BlacklistEntry{UserID: "user-1", GuildID: guildID, Reason: "again", BlacklistedBy: "owner"})
	require.NoError(t, err)
	require.False(t, added)

	entry, err = st.IsBlacklisted(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, "scam", entry.Reason)

	list, err := st.ListBlacklist(ctx, guildID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	removed, err := st.RemoveBlacklist(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.RemoveBlacklist(ctx, "user-1", guildID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestUniqueViolation(t *testing.T) {
	_, ok := uniqueViolation(errors.New("boom"))
	require.False(t, ok)

	_, ok = uniqueViolation(nil)
	require.False(t, ok)
}
