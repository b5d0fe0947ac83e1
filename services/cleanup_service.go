package services

import (
	"context"

	"go.uber.org/zap"
)

// CleanupService purges a user's stale pending exchanges before a new attempt
// starts, so a user can never match against their own earlier hit.
type CleanupService struct {
	Store  ExchangeStore
	Logger *zap.Logger
}

func NewCleanupService(store ExchangeStore, logger *zap.Logger) *CleanupService {
	return &CleanupService{Store: store, Logger: logger}
}

// Cleanup is best-effort: a failure is logged and swallowed. A stale
// duplicate simply expires, but blocking ingestion would cost a missed bump.
func (cs *CleanupService) Cleanup(ctx context.Context, userID string) {
	if err := cs.Store.DeletePendingForUser(ctx, userID); err != nil {
		cs.Logger.Warn("pending cleanup failed", zap.String("userId", userID), zap.Error(err))
	}
}
