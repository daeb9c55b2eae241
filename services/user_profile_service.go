package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

type UserProfileService struct {
	Dynamo *DynamoService
	Logger *zap.Logger
	Clock  func() time.Time
}

// ProfileUpdate carries the client-updatable profile fields. Nil means "leave unchanged".
type ProfileUpdate struct {
	Name           *string              `json:"name,omitempty"`
	ProfilePicture *string              `json:"profilePicture,omitempty"`
	Status         *string              `json:"status,omitempty"`
	Bio            *string              `json:"bio,omitempty"`
	Niches         []string             `json:"niches,omitempty"`
	Location       *string              `json:"location,omitempty"`
	Demographics   *models.Demographics `json:"demographics,omitempty"`
	CompanyName    *string              `json:"companyName,omitempty"`
	Industry       *string              `json:"industry,omitempty"`
	Description    *string              `json:"description,omitempty"`
	Website        *string              `json:"website,omitempty"`
}

var instagramHandlePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

func (ups *UserProfileService) now() time.Time {
	if ups.Clock != nil {
		return ups.Clock()
	}
	return time.Now()
}

// GetUserProfile retrieves a user profile by ID
func (ups *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, Key("id", userID), &profile); err != nil {
		return nil, fmt.Errorf("profile %s: %w", userID, err)
	}
	return &profile, nil
}

// ListProfilesByType returns every profile of the given type
func (ups *UserProfileService) ListProfilesByType(ctx context.Context, profileType string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := ups.Dynamo.QueryItems(ctx, models.UserProfilesTable, "type", profileType,
		QueryOptions{IndexName: models.ProfileTypeIndex}, &profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s profiles: %w", profileType, err)
	}
	return profiles, nil
}

// UpdateUserProfile applies the whitelisted fields valid for the profile's type
func (ups *UserProfileService) UpdateUserProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.UserProfile, error) {
	profile, err := ups.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	setString := func(name string, v *string) {
		if v != nil {
			fields[name] = strings.TrimSpace(*v)
		}
	}

	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", models.ErrInvalidInput)
	}
	setString("name", update.Name)
	setString("profilePicture", update.ProfilePicture)
	if update.Status != nil {
		if *update.Status != models.ProfileStatusActive && *update.Status != models.ProfileStatusInactive {
			return nil, fmt.Errorf("%w: status must be active or inactive", models.ErrInvalidInput)
		}
		fields["status"] = *update.Status
	}

	influencerOnly := update.Bio != nil || update.Niches != nil || update.Location != nil || update.Demographics != nil
	companyOnly := update.CompanyName != nil || update.Industry != nil || update.Description != nil || update.Website != nil

	switch profile.Type {
	case models.ProfileTypeInfluencer:
		if companyOnly {
			return nil, fmt.Errorf("%w: company fields cannot be set on an influencer profile", models.ErrInvalidInput)
		}
		setString("bio", update.Bio)
		setString("location", update.Location)
		if update.Niches != nil {
			fields["niches"] = normalizeTags(update.Niches)
		}
		if update.Demographics != nil {
			fields["demographics"] = update.Demographics
		}
	case models.ProfileTypeCompany:
		if influencerOnly {
			return nil, fmt.Errorf("%w: influencer fields cannot be set on a company profile", models.ErrInvalidInput)
		}
		if update.CompanyName != nil && strings.TrimSpace(*update.CompanyName) == "" {
			return nil, fmt.Errorf("%w: companyName cannot be empty", models.ErrInvalidInput)
		}
		setString("companyName", update.CompanyName)
		setString("industry", update.Industry)
		setString("description", update.Description)
		setString("website", update.Website)
	}

	if len(fields) == 0 {
		return profile, nil
	}
	fields["updatedAt"] = ups.now().UTC()

	var updated models.UserProfile
	if err := ups.Dynamo.UpdateFields(ctx, models.UserProfilesTable, Key("id", userID), fields, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SaveInstagramHandle stores the influencer's Instagram handle (leading @ stripped)
func (ups *UserProfileService) SaveInstagramHandle(ctx context.Context, userID, handle string) (*models.UserProfile, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if !instagramHandlePattern.MatchString(handle) {
		return nil, fmt.Errorf("%w: invalid Instagram handle", models.ErrInvalidInput)
	}

	profile, err := ups.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Type != models.ProfileTypeInfluencer {
		return nil, fmt.Errorf("only influencers can link an Instagram handle: %w", models.ErrForbidden)
	}

	var updated models.UserProfile
	err = ups.Dynamo.UpdateFields(ctx, models.UserProfilesTable, Key("id", userID), map[string]interface{}{
		"instagramHandle": handle,
		"updatedAt":       ups.now().UTC(),
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateInstagramStats writes the latest stats snapshot
func (ups *UserProfileService) UpdateInstagramStats(ctx context.Context, userID string, stats models.InstagramStats) error {
	return ups.Dynamo.UpdateFields(ctx, models.UserProfilesTable, Key("id", userID), map[string]interface{}{
		"instagramStats": stats,
		"updatedAt":      ups.now().UTC(),
	}, nil)
}

// DeleteUserProfile removes the profile, its credential, linked social account and swipes
func (ups *UserProfileService) DeleteUserProfile(ctx context.Context, userID string) error {
	profile, err := ups.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}

	var swipes []models.Swipe
	if err := ups.Dynamo.QueryItems(ctx, models.SwipesTable, "userId", userID, QueryOptions{}, &swipes); err != nil {
		return err
	}
	keys := make([]map[string]types.AttributeValue, 0, len(swipes))
	for _, sw := range swipes {
		keys = append(keys, CompositeKey("userId", sw.UserID, "targetId", sw.TargetID))
	}
	if err := ups.Dynamo.BatchDeleteItems(ctx, models.SwipesTable, keys); err != nil {
		return err
	}

	if err := ups.Dynamo.DeleteItem(ctx, models.SocialAccountsTable, Key("userId", userID)); err != nil {
		return err
	}
	if err := ups.Dynamo.DeleteItem(ctx, models.CredentialsTable, Key("email", profile.Email)); err != nil {
		return err
	}
	if err := ups.Dynamo.DeleteItem(ctx, models.UserProfilesTable, Key("id", userID)); err != nil {
		return err
	}

	ups.Logger.Info("profile deleted", zap.String("userId", userID), zap.Int("swipes", len(swipes)))
	return nil
}

// normalizeTags lower-cases, trims and de-duplicates niche tags
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
