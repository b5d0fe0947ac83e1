package services

import (
	"context"
	"fmt"
	"time"

	"bump_server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QRService handles the alternate entry point: a profile displayed as a
// scannable code creates a one-sided "waiting" record, later completed by the
// first scanner. Completion re-reads the record immediately before a write
// that is conditional on it still being waiting — weaker than the engine's
// full atomicity, but a lost race is detected and surfaced as
// ALREADY_SCANNED, never silently overwritten.
type QRService struct {
	Matches  *MatchStoreService
	Store    ExchangeStore
	Profiles ProfileProvider
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewQRService(matches *MatchStoreService, store ExchangeStore, profiles ProfileProvider, logger *zap.Logger) *QRService {
	return &QRService{Matches: matches, Store: store, Profiles: profiles, Logger: logger, Now: time.Now}
}

// ViewResult is the outcome of viewing a match token.
type ViewResult struct {
	Status          string
	Profile         *models.UserProfile
	SharingCategory string
	MatchedAt       int64
	Role            string
}

// CreateWaiting writes a waiting record for a displayed code, owned by the
// displayer as side A.
func (q *QRService) CreateWaiting(ctx context.Context, userID, sessionID, category string) (*models.ExchangeMatch, error) {
	if category == "" {
		category = models.CategoryAll
	}
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown sharing category %q", models.ErrValidation, category)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	profile, err := q.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, userID)
	}

	match := &models.ExchangeMatch{
		Token:     q.Matches.NewToken(),
		SessionA:  sessionID,
		UserA:     userID,
		ProfileA:  profile,
		CategoryA: category,
		Status:    models.MatchStatusWaiting,
		CreatedAt: q.Now().UnixMilli(),
	}
	if err := q.Store.PutMatch(ctx, match, q.Matches.MatchTTL); err != nil {
		return nil, fmt.Errorf("create waiting match: %w", err)
	}
	if err := q.Store.PutSessionIndex(ctx, sessionID, &models.SessionIndex{Token: match.Token, Role: models.RoleA}, q.Matches.MatchTTL); err != nil {
		return nil, fmt.Errorf("index waiting session: %w", err)
	}
	return match, nil
}

// View resolves a token for an authenticated viewer. For a matched record it
// returns the counterpart's profile filtered to that side's sharing category.
// For a waiting record it either reports "still waiting" to the displayer, or
// completes the match with the viewer as side B.
func (q *QRService) View(ctx context.Context, token, viewerUserID, viewerSessionID, category string) (*ViewResult, error) {
	match, err := q.Matches.GetMatch(ctx, token)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("%w: unknown or expired token", models.ErrNotFound)
	}

	if match.Status == models.MatchStatusMatched {
		switch viewerUserID {
		case match.UserA:
			return pairedView(match, models.RoleA), nil
		case match.UserB:
			return pairedView(match, models.RoleB), nil
		}
		// A third party holding the token after completion lost the race.
		return nil, models.ErrAlreadyScanned
	}

	// A user never completes a match with themselves.
	if viewerUserID == match.UserA {
		return &ViewResult{Status: models.MatchStatusWaiting}, nil
	}

	return q.complete(ctx, match.Token, viewerUserID, viewerSessionID, category)
}

// Preview returns the limited profile view for unauthenticated viewers of a
// waiting record, refreshing its TTL so an in-flight sign-in flow has time to
// finish.
func (q *QRService) Preview(ctx context.Context, token string) (*models.UserProfile, string, error) {
	match, err := q.Matches.GetMatch(ctx, token)
	if err != nil {
		return nil, "", err
	}
	if match == nil {
		return nil, "", fmt.Errorf("%w: unknown or expired token", models.ErrNotFound)
	}
	if match.Status != models.MatchStatusWaiting {
		return nil, "", models.ErrAlreadyScanned
	}
	q.Matches.RefreshTTL(ctx, token)
	return match.ProfileA.PreviewFields(), match.CategoryA, nil
}

// complete turns a waiting record into a matched one with the viewer as side
// B. The record is re-read immediately before the write so a concurrent
// scanner is detected instead of overwritten.
func (q *QRService) complete(ctx context.Context, token, viewerUserID, viewerSessionID, category string) (*ViewResult, error) {
	if category == "" {
		category = models.CategoryAll
	}
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown sharing category %q", models.ErrValidation, category)
	}
	if viewerSessionID == "" {
		viewerSessionID = uuid.NewString()
	}

	profile, err := q.Profiles.GetProfile(ctx, viewerUserID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, viewerUserID)
	}

	// Re-read immediately before the write: another scanner may have
	// completed the record since the initial read.
	match, err := q.Matches.GetMatch(ctx, token)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("%w: unknown or expired token", models.ErrNotFound)
	}
	if match.Status != models.MatchStatusWaiting {
		return nil, models.ErrAlreadyScanned
	}

	match.SessionB = viewerSessionID
	match.UserB = viewerUserID
	match.ProfileB = profile
	match.CategoryB = category
	match.Status = models.MatchStatusMatched
	match.MatchedAt = q.Now().UnixMilli()

	// The write itself is conditional on the record still being waiting, so
	// losing the race surfaces as ALREADY_SCANNED instead of a silent
	// overwrite.
	if err := q.Store.CompleteWaitingMatch(ctx, match, q.Matches.MatchTTL); err != nil {
		return nil, err
	}
	// Refresh A's index and add B's, so the displayer's poll sees completion.
	if err := q.Store.PutSessionIndex(ctx, match.SessionA, &models.SessionIndex{Token: token, Role: models.RoleA}, q.Matches.MatchTTL); err != nil {
		return nil, fmt.Errorf("index session A: %w", err)
	}
	if err := q.Store.PutSessionIndex(ctx, match.SessionB, &models.SessionIndex{Token: token, Role: models.RoleB}, q.Matches.MatchTTL); err != nil {
		return nil, fmt.Errorf("index session B: %w", err)
	}

	q.Logger.Info("waiting match completed by scan",
		zap.String("sessionA", match.SessionA),
		zap.String("sessionB", match.SessionB),
	)
	return pairedView(match, models.RoleB), nil
}

// pairedView builds the response for one side of a matched record: the
// counterpart's profile, filtered to the counterpart's sharing category.
func pairedView(match *models.ExchangeMatch, role string) *ViewResult {
	counterpartProfile := match.ProfileB
	counterpartCategory := match.CategoryB
	if role == models.RoleB {
		counterpartProfile = match.ProfileA
		counterpartCategory = match.CategoryA
	}
	return &ViewResult{
		Status:          models.MatchStatusMatched,
		Profile:         counterpartProfile.FilteredForCategory(counterpartCategory),
		SharingCategory: counterpartCategory,
		MatchedAt:       match.MatchedAt,
		Role:            role,
	}
}
