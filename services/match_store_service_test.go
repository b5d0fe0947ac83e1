package services

import (
	"context"
	"testing"
	"time"

	"bump_server/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPollStatusRequiresSessionID(t *testing.T) {
	matches := NewMatchStoreService(NewMemoryExchangeStore(), zap.NewNop(), 10*time.Minute)

	_, err := matches.PollStatus(context.Background(), "")
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestPollStatusUnknownSessionIsEmpty(t *testing.T) {
	matches := NewMatchStoreService(NewMemoryExchangeStore(), zap.NewNop(), 10*time.Minute)

	idx, err := matches.PollStatus(context.Background(), "never-seen")
	require.NoError(t, err)
	require.Nil(t, idx)
}

func TestCreateMatchIndexesBothSessions(t *testing.T) {
	matches := NewMatchStoreService(NewMemoryExchangeStore(), zap.NewNop(), 10*time.Minute)
	ctx := context.Background()

	a := testPending("u1", "sA", models.CategoryAll, sameCity())
	b := testPending("u2", "sB", models.CategoryAll, sameCity())
	token, err := matches.CreateMatch(ctx, a, b)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	for sessionID, role := range map[string]string{"sA": models.RoleA, "sB": models.RoleB} {
		idx, err := matches.PollStatus(ctx, sessionID)
		require.NoError(t, err)
		require.NotNil(t, idx)
		require.Equal(t, token, idx.Token)
		require.Equal(t, role, idx.Role)

		match, err := matches.GetMatchBySession(ctx, sessionID)
		require.NoError(t, err)
		require.NotNil(t, match)
		require.Equal(t, token, match.Token)
	}
}

func TestTokensAreUniquePerMatch(t *testing.T) {
	matches := NewMatchStoreService(NewMemoryExchangeStore(), zap.NewNop(), 10*time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := matches.NewToken()
		require.False(t, seen[token])
		seen[token] = true
	}
}

func TestMatchExpiresAndRefreshExtends(t *testing.T) {
	store := NewMemoryExchangeStore()
	clock := newTestClock(time.Now())
	store.SetClock(clock.Now)
	matches := NewMatchStoreService(store, zap.NewNop(), time.Minute)
	matches.Now = clock.Now
	ctx := context.Background()

	token, err := matches.CreateMatch(ctx, testPending("u1", "sA", models.CategoryAll, sameCity()), testPending("u2", "sB", models.CategoryAll, sameCity()))
	require.NoError(t, err)

	clock.Set(clock.Now().Add(50 * time.Second))
	matches.RefreshTTL(ctx, token)

	clock.Set(clock.Now().Add(50 * time.Second))
	match, err := matches.GetMatch(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, match, "refresh should have extended the record past its original TTL")

	clock.Set(clock.Now().Add(2 * time.Minute))
	match, err = matches.GetMatch(ctx, token)
	require.NoError(t, err)
	require.Nil(t, match, "expired records disappear")
}
