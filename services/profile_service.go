package services

import (
	"context"
	"fmt"

	"bump_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// PhotoURLProvider turns a stored photo key into a fetchable URL.
type PhotoURLProvider interface {
	ReadURL(ctx context.Context, key string) (string, error)
}

// ProfileService is the read-only profile store collaborator. Profile CRUD
// lives elsewhere; the exchange flow only ever snapshots a profile at hit
// time.
type ProfileService struct {
	Dynamo *DynamoService
	Photos PhotoURLProvider
	Logger *zap.Logger
}

func NewProfileService(dynamo *DynamoService, photos PhotoURLProvider, logger *zap.Logger) *ProfileService {
	return &ProfileService{Dynamo: dynamo, Photos: photos, Logger: logger}
}

// GetProfile retrieves a user profile by ID, or nil when none exists. A photo
// presign failure is tolerated by omitting the URL.
func (ps *ProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ps.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if profile.PhotoKey != "" && ps.Photos != nil {
		url, err := ps.Photos.ReadURL(ctx, profile.PhotoKey)
		if err != nil {
			ps.Logger.Warn("photo presign failed", zap.String("userId", userID), zap.Error(err))
		} else {
			profile.PhotoURL = url
		}
	}
	return &profile, nil
}
