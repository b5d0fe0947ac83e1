package services

import (
	"context"
	"fmt"
	"time"

	"bump_server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchStoreService persists completed and half-completed match records plus
// the session index that lets the passively polling side discover them.
type MatchStoreService struct {
	Store    ExchangeStore
	Logger   *zap.Logger
	MatchTTL time.Duration
	Now      func() time.Time
}

func NewMatchStoreService(store ExchangeStore, logger *zap.Logger, matchTTL time.Duration) *MatchStoreService {
	return &MatchStoreService{Store: store, Logger: logger, MatchTTL: matchTTL, Now: time.Now}
}

// NewToken mints the opaque bearer capability for a match. It is the only
// handle clients ever get, so it must not be guessable.
func (ms *MatchStoreService) NewToken() string {
	return uuid.NewString()
}

// CreateMatch writes a matched record for a reconciled pair plus a session
// index entry for both sides. The caller (a) already knows the token from its
// own hit response; the counterpart (b) only learns it via the index.
func (ms *MatchStoreService) CreateMatch(ctx context.Context, a, b *models.PendingExchange) (string, error) {
	now := ms.Now().UnixMilli()
	match := &models.ExchangeMatch{
		Token:     ms.NewToken(),
		SessionA:  a.SessionID,
		SessionB:  b.SessionID,
		UserA:     a.UserID,
		UserB:     b.UserID,
		ProfileA:  a.Profile,
		ProfileB:  b.Profile,
		CategoryA: a.SharingCategory,
		CategoryB: b.SharingCategory,
		Status:    models.MatchStatusMatched,
		CreatedAt: now,
		MatchedAt: now,
	}

	if err := ms.Store.PutMatch(ctx, match, ms.MatchTTL); err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}
	if err := ms.Store.PutSessionIndex(ctx, a.SessionID, &models.SessionIndex{Token: match.Token, Role: models.RoleA}, ms.MatchTTL); err != nil {
		return "", fmt.Errorf("index session A: %w", err)
	}
	if err := ms.Store.PutSessionIndex(ctx, b.SessionID, &models.SessionIndex{Token: match.Token, Role: models.RoleB}, ms.MatchTTL); err != nil {
		return "", fmt.Errorf("index session B: %w", err)
	}

	ms.Logger.Info("match created",
		zap.String("sessionA", a.SessionID),
		zap.String("sessionB", b.SessionID),
	)
	return match.Token, nil
}

// GetMatch returns the record behind a token, or nil when unknown/expired.
func (ms *MatchStoreService) GetMatch(ctx context.Context, token string) (*models.ExchangeMatch, error) {
	return ms.Store.GetMatch(ctx, token)
}

// GetMatchBySession resolves a session id to its match via the index.
func (ms *MatchStoreService) GetMatchBySession(ctx context.Context, sessionID string) (*models.ExchangeMatch, error) {
	idx, err := ms.Store.GetSessionIndex(ctx, sessionID)
	if err != nil || idx == nil {
		return nil, err
	}
	return ms.Store.GetMatch(ctx, idx.Token)
}

// PollStatus is the read-only discovery lookup. Pure read, idempotent, safe
// to call at any rate.
func (ms *MatchStoreService) PollStatus(ctx context.Context, sessionID string) (*models.SessionIndex, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", models.ErrValidation)
	}
	return ms.Store.GetSessionIndex(ctx, sessionID)
}

// RefreshTTL extends a match record's lifetime, used when a preview is
// accessed so an in-flight sign-in can finish without losing the record.
func (ms *MatchStoreService) RefreshTTL(ctx context.Context, token string) {
	if err := ms.Store.RefreshMatchTTL(ctx, token, ms.MatchTTL); err != nil {
		ms.Logger.Warn("match ttl refresh failed", zap.Error(err))
	}
}
