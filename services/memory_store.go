package services

import (
	"context"
	"sync"
	"time"

	"bump_server/models"
)

// MemoryExchangeStore is a mutex-guarded in-process ExchangeStore. The lock
// makes StoreAndMatch trivially atomic, which is exactly what unit tests need
// to exercise the matching semantics without a network dependency.
type MemoryExchangeStore struct {
	mu       sync.Mutex
	pending  map[string]*models.PendingExchange // sessionId -> pending
	matches  map[string]matchEntry              // token -> match
	sessions map[string]sessionEntry            // sessionId -> index
	now      func() time.Time
}

type matchEntry struct {
	match     *models.ExchangeMatch
	expiresAt time.Time
}

type sessionEntry struct {
	idx       *models.SessionIndex
	expiresAt time.Time
}

func NewMemoryExchangeStore() *MemoryExchangeStore {
	return &MemoryExchangeStore{
		pending:  make(map[string]*models.PendingExchange),
		matches:  make(map[string]matchEntry),
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

// SetClock overrides the store clock, for expiry tests.
func (s *MemoryExchangeStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryExchangeStore) StoreAndMatch(ctx context.Context, pending *models.PendingExchange, criteria MatchCriteria) (*models.PendingExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMillis := s.now().UnixMilli()

	var best *models.PendingExchange
	for sessionID, candidate := range s.pending {
		if candidate.ExpiresAt <= nowMillis {
			delete(s.pending, sessionID)
			continue
		}
		if pendingCompatible(pending, candidate, criteria.Window, nowMillis) {
			best = betterCandidate(best, candidate)
		}
	}

	if best != nil {
		delete(s.pending, best.SessionID)
		delete(s.pending, pending.SessionID)
		return best, nil
	}

	cp := *pending
	s.pending[pending.SessionID] = &cp
	return nil, nil
}

func (s *MemoryExchangeStore) DeletePendingForUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sessionID, p := range s.pending {
		if p.UserID == userID {
			delete(s.pending, sessionID)
		}
	}
	return nil
}

func (s *MemoryExchangeStore) PutMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *match
	s.matches[match.Token] = matchEntry{match: &cp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryExchangeStore) GetMatch(ctx context.Context, token string) (*models.ExchangeMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.matches[token]
	if !ok || !entry.expiresAt.After(s.now()) {
		delete(s.matches, token)
		return nil, nil
	}
	cp := *entry.match
	return &cp, nil
}

func (s *MemoryExchangeStore) CompleteWaitingMatch(ctx context.Context, match *models.ExchangeMatch, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.matches[match.Token]
	if !ok || !entry.expiresAt.After(s.now()) {
		delete(s.matches, match.Token)
		return models.ErrNotFound
	}
	if entry.match.Status != models.MatchStatusWaiting {
		return models.ErrAlreadyScanned
	}
	cp := *match
	s.matches[match.Token] = matchEntry{match: &cp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryExchangeStore) RefreshMatchTTL(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.matches[token]; ok {
		entry.expiresAt = s.now().Add(ttl)
		s.matches[token] = entry
	}
	return nil
}

func (s *MemoryExchangeStore) PutSessionIndex(ctx context.Context, sessionID string, idx *models.SessionIndex, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *idx
	s.sessions[sessionID] = sessionEntry{idx: &cp, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryExchangeStore) GetSessionIndex(ctx context.Context, sessionID string) (*models.SessionIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || !entry.expiresAt.After(s.now()) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	cp := *entry.idx
	return &cp, nil
}
