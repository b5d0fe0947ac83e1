package services

import (
	"context"
	"fmt"

	"bump_server/models"

	"go.uber.org/zap"
)

// ProfileProvider is the external profile store collaborator. Returns
// (nil, nil) when the user has no profile.
type ProfileProvider interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// GeoProvider is the external geolocation collaborator. Lookup never fails:
// on any error it returns an unknown location that still participates in
// matching.
type GeoProvider interface {
	Lookup(ctx context.Context, ip string) models.Location
}

// HitService validates and normalizes an incoming hit, then hands it to the
// matching engine. It performs no store writes of its own.
type HitService struct {
	Profiles ProfileProvider
	Geo      GeoProvider
	Cleanup  *CleanupService
	Engine   *MatchingService
	Logger   *zap.Logger
}

func NewHitService(profiles ProfileProvider, geo GeoProvider, cleanup *CleanupService, engine *MatchingService, logger *zap.Logger) *HitService {
	return &HitService{Profiles: profiles, Geo: geo, Cleanup: cleanup, Engine: engine, Logger: logger}
}

// IngestHit returns nil when the hit was parked as a waiter, or the match
// result when it completed a pair.
func (hs *HitService) IngestHit(ctx context.Context, userID, remoteIP string, req *models.SubmitHitRequest) (*models.MatchResult, error) {
	if req.SessionID == "" || req.AccelerationMagnitude <= 0 {
		return nil, fmt.Errorf("%w: sessionId and accelerationMagnitude are required", models.ErrValidation)
	}
	category := req.SharingCategory
	if category == "" {
		category = models.CategoryAll
	}
	if !models.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown sharing category %q", models.ErrValidation, category)
	}

	profile, err := hs.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrProfileNotFound, userID)
	}

	location := hs.Geo.Lookup(ctx, remoteIP)

	// Client clocks are advisory only; log the skew for diagnostics.
	if req.ClientTimestamp > 0 {
		hs.Logger.Debug("hit received",
			zap.String("sessionId", req.SessionID),
			zap.Int64("clientTimestamp", req.ClientTimestamp),
			zap.Float64("magnitude", req.AccelerationMagnitude),
		)
	}

	hs.Cleanup.Cleanup(ctx, userID)

	pending := &models.PendingExchange{
		SessionID:              req.SessionID,
		UserID:                 userID,
		Profile:                profile,
		ClientTimestamp:        req.ClientTimestamp,
		Location:               location,
		AccelerationMagnitude:  req.AccelerationMagnitude,
		AccelerationVectorHash: req.AccelerationVectorHash,
		SharingCategory:        category,
	}
	return hs.Engine.StoreAndMatch(ctx, pending)
}
