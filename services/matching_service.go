package services

import (
	"context"
	"fmt"
	"time"

	"bump_server/models"

	"go.uber.org/zap"
)

// MatchingService runs the correctness-critical store-and-match step. The
// atomicity itself lives in the ExchangeStore; this layer assigns the
// authoritative timestamp, applies the configured criteria, and turns a
// consumed counterpart into a durable match record.
type MatchingService struct {
	Store   ExchangeStore
	Matches *MatchStoreService
	Logger  *zap.Logger

	Window     time.Duration
	PendingTTL time.Duration
	Now        func() time.Time
}

func NewMatchingService(store ExchangeStore, matches *MatchStoreService, logger *zap.Logger, window, pendingTTL time.Duration) *MatchingService {
	return &MatchingService{
		Store:      store,
		Matches:    matches,
		Logger:     logger,
		Window:     window,
		PendingTTL: pendingTTL,
		Now:        time.Now,
	}
}

// StoreAndMatch records the caller's pending exchange and, in the same atomic
// store step, searches for a compatible counterpart. Returns nil when the
// caller is parked as a waiter. The hit that completes the pair takes role A;
// the earlier waiter discovers role B through the session index.
//
// Any store failure is surfaced as-is — on uncertainty about whether the
// atomic step committed, this must not claim success.
func (m *MatchingService) StoreAndMatch(ctx context.Context, pending *models.PendingExchange) (*models.MatchResult, error) {
	now := m.Now()
	pending.ServerTimestamp = now.UnixMilli()
	pending.ExpiresAt = now.Add(m.PendingTTL).UnixMilli()

	criteria := MatchCriteria{Window: m.Window, PendingTTL: m.PendingTTL}
	counterpart, err := m.Store.StoreAndMatch(ctx, pending, criteria)
	if err != nil {
		return nil, fmt.Errorf("store and match: %w", err)
	}
	if counterpart == nil {
		m.Logger.Debug("no counterpart, pending stored",
			zap.String("sessionId", pending.SessionID),
		)
		return nil, nil
	}

	token, err := m.Matches.CreateMatch(ctx, pending, counterpart)
	if err != nil {
		return nil, fmt.Errorf("persist match: %w", err)
	}
	return &models.MatchResult{Token: token, Role: models.RoleA}, nil
}
