package services

import (
	"context"
	"time"

	"bump_server/models"
)

// MatchCriteria carries the tunable matching heuristics. These are
// best-effort knobs, not invariants; they come straight from config.
type MatchCriteria struct {
	// Window is the maximum serverTimestamp delta between two hits that may
	// still pair. Bump exchanges are a live interaction, so this stays small.
	Window time.Duration
	// PendingTTL bounds how long an unmatched hit stays eligible.
	PendingTTL time.Duration
}

// ExchangeStore is the shared, ephemeral, TTL-capable store behind the
// exchange flow. StoreAndMatch is the one operation that must be atomic:
// record-my-pending and search-for-a-counterpart happen as a single
// indivisible step, or two devices racing within milliseconds could both see
// "no match" and both park as orphaned waiters. Implementations that cannot
// provide that atomicity must fail closed with ErrStoreUnavailable instead of
// degrading to check-then-insert.
//
// Everything else is plain keyed reads and writes; GetMatch/GetSessionIndex
// return (nil, nil) on a miss.
type ExchangeStore interface {
	// StoreAndMatch looks for a compatible live pending exchange. On a hit it
	// removes both entries and returns the counterpart; otherwise it stores
	// pending and returns nil.
	StoreAndMatch(ctx context.Context, pending *models.PendingExchange, criteria MatchCriteria) (*models.PendingExchange, error)

	// DeletePendingForUser removes any pending exchange owned by userID,
	// regardless of session id.
	DeletePendingForUser(ctx context.Context, userID string) error

	PutMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error
	GetMatch(ctx context.Context, token string) (*models.ExchangeMatch, error)
	RefreshMatchTTL(ctx context.Context, token string, ttl time.Duration) error

	// CompleteWaitingMatch writes match over the stored record only while
	// that record is still waiting — the compare-and-set that turns the QR
	// path's read-then-write race into a detectable loss. Returns
	// ErrNotFound when the token is gone, ErrAlreadyScanned when another
	// scanner got there first.
	CompleteWaitingMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error

	PutSessionIndex(ctx context.Context, sessionID string, idx *models.SessionIndex, ttl time.Duration) error
	GetSessionIndex(ctx context.Context, sessionID string) (*models.SessionIndex, error)
}

// locationsCompatible implements the coarse geographic heuristic: same
// city+region, same network block, or either side unknown (a failed lookup
// still participates rather than blocking the bump).
func locationsCompatible(a, b models.Location) bool {
	if a.Unknown || b.Unknown {
		return true
	}
	if a.City != "" && a.City == b.City && a.Region == b.Region {
		return true
	}
	if a.NetworkBlock != "" && a.NetworkBlock == b.NetworkBlock {
		return true
	}
	return false
}

// pendingCompatible reports whether candidate can pair with p at instant now.
// Expired candidates never match, even if still physically present.
func pendingCompatible(p, candidate *models.PendingExchange, window time.Duration, now int64) bool {
	if candidate.UserID == p.UserID {
		return false
	}
	if candidate.ExpiresAt <= now {
		return false
	}
	delta := p.ServerTimestamp - candidate.ServerTimestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > window.Milliseconds() {
		return false
	}
	return locationsCompatible(p.Location, candidate.Location)
}

// betterCandidate prefers the earliest serverTimestamp, ties broken by lowest
// session id for determinism.
func betterCandidate(a, b *models.PendingExchange) *models.PendingExchange {
	if a == nil {
		return b
	}
	if b.ServerTimestamp < a.ServerTimestamp ||
		(b.ServerTimestamp == a.ServerTimestamp && b.SessionID < a.SessionID) {
		return b
	}
	return a
}
