package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"brandmatch_server/models"

	"go.uber.org/zap"
)

// SwipeService records like/dislike swipes and drives the match lifecycle
type SwipeService struct {
	Dynamo    *DynamoService
	Profiles  *UserProfileService
	Campaigns *CampaignService
	Matches   *MatchService
	Logger    *zap.Logger
	Clock     func() time.Time
}

// SwipeInput is the payload of RecordSwipe
type SwipeInput struct {
	TargetID   string `json:"targetId"`
	Type       string `json:"type"`
	CampaignID string `json:"campaignId,omitempty"`
}

// SwipeResult reports the stored swipe and the match it touched, if any
type SwipeResult struct {
	Swipe   models.Swipe  `json:"swipe"`
	Match   *models.Match `json:"match,omitempty"`
	Matched bool          `json:"matched"`
}

func (ss *SwipeService) now() time.Time {
	if ss.Clock != nil {
		return ss.Clock()
	}
	return time.Now()
}

// RecordSwipe stores the swipe and applies its effect on the match between the two sides.
// Influencers swipe on campaigns, companies swipe on influencers.
func (ss *SwipeService) RecordSwipe(ctx context.Context, userID string, in SwipeInput) (*SwipeResult, error) {
	if in.Type != models.SwipeTypeLike && in.Type != models.SwipeTypeDislike {
		return nil, fmt.Errorf("%w: type must be like or dislike", models.ErrInvalidInput)
	}
	if in.TargetID == "" {
		return nil, fmt.Errorf("%w: targetId is required", models.ErrInvalidInput)
	}
	if in.TargetID == userID {
		return nil, fmt.Errorf("%w: cannot swipe on yourself", models.ErrInvalidInput)
	}

	user, err := ss.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	swipe := models.Swipe{
		UserID:    userID,
		TargetID:  in.TargetID,
		Type:      in.Type,
		Timestamp: ss.now().UTC(),
	}

	var influencerID, companyID, campaignID string
	switch user.Type {
	case models.ProfileTypeInfluencer:
		campaign, err := ss.Campaigns.GetCampaign(ctx, in.TargetID)
		if err != nil {
			return nil, err
		}
		if campaign.Status != models.CampaignStatusActive {
			return nil, fmt.Errorf("campaign %s is %s: %w", campaign.ID, campaign.Status, models.ErrConflict)
		}
		swipe.TargetType = models.TargetTypeCampaign
		swipe.CampaignID = campaign.ID
		influencerID, companyID, campaignID = userID, campaign.CompanyID, campaign.ID

	case models.ProfileTypeCompany:
		target, err := ss.Profiles.GetUserProfile(ctx, in.TargetID)
		if err != nil {
			return nil, err
		}
		if target.Type != models.ProfileTypeInfluencer {
			return nil, fmt.Errorf("%w: companies can only swipe on influencers", models.ErrInvalidInput)
		}
		if in.CampaignID != "" {
			campaign, err := ss.Campaigns.GetCampaign(ctx, in.CampaignID)
			if err != nil {
				return nil, err
			}
			if campaign.CompanyID != userID {
				return nil, fmt.Errorf("campaign %s is not owned by %s: %w", campaign.ID, userID, models.ErrForbidden)
			}
		}
		swipe.TargetType = models.TargetTypeInfluencer
		swipe.CampaignID = in.CampaignID
		influencerID, companyID, campaignID = target.ID, userID, in.CampaignID

	default:
		return nil, fmt.Errorf("%w: unknown profile type %q", models.ErrInvalidInput, user.Type)
	}

	if err := ss.Dynamo.PutItem(ctx, models.SwipesTable, swipe); err != nil {
		return nil, fmt.Errorf("failed to record swipe: %w", err)
	}

	result := &SwipeResult{Swipe: swipe}
	if user.Type == models.ProfileTypeCompany && campaignID == "" {
		err = ss.resolveOpenMatches(ctx, result, influencerID, companyID)
	} else {
		err = ss.resolveMatch(ctx, result, influencerID, companyID, campaignID)
	}
	if err != nil {
		return nil, err
	}

	ss.Logger.Info("swipe recorded",
		zap.String("userId", userID),
		zap.String("targetId", in.TargetID),
		zap.String("type", in.Type),
		zap.Bool("matched", result.Matched))
	return result, nil
}

// resolveMatch applies the swipe to the match for a single campaign
func (ss *SwipeService) resolveMatch(ctx context.Context, result *SwipeResult, influencerID, companyID, campaignID string) error {
	swiper := result.Swipe.UserID
	match, err := ss.Matches.findMatch(ctx, MatchID(influencerID, companyID, campaignID))
	if err != nil {
		return err
	}

	if match == nil {
		if result.Swipe.Type != models.SwipeTypeLike {
			return nil
		}
		result.Match, err = ss.Matches.createPending(ctx, influencerID, companyID, campaignID, swiper)
		if !errors.Is(err, models.ErrConflict) {
			return err
		}

		// The other side created the match between our read and write
		result.Match = nil
		match, err = ss.Matches.findMatch(ctx, MatchID(influencerID, companyID, campaignID))
		if err != nil {
			return err
		}
		if match == nil {
			return fmt.Errorf("match %s vanished after conflicting create: %w", MatchID(influencerID, companyID, campaignID), models.ErrConflict)
		}
	}

	if match.Status != models.MatchStatusPending || match.InitiatedBy == swiper {
		result.Match = match
		return nil
	}
	return ss.answer(ctx, result, match)
}

// resolveOpenMatches answers every pending match the influencer opened toward the company
func (ss *SwipeService) resolveOpenMatches(ctx context.Context, result *SwipeResult, influencerID, companyID string) error {
	var matches []models.Match
	err := ss.Dynamo.QueryItems(ctx, models.MatchesTable, "companyId", companyID,
		QueryOptions{IndexName: models.MatchCompanyIndex}, &matches)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	for i := range matches {
		m := &matches[i]
		if m.InfluencerID != influencerID || m.Status != models.MatchStatusPending || m.InitiatedBy != influencerID {
			continue
		}
		if err := ss.answer(ctx, result, m); err != nil {
			return err
		}
	}
	return nil
}

// answer accepts or rejects a pending match opened by the other side
func (ss *SwipeService) answer(ctx context.Context, result *SwipeResult, match *models.Match) error {
	status := models.MatchStatusRejected
	if result.Swipe.Type == models.SwipeTypeLike {
		status = models.MatchStatusAccepted
	}
	updated, err := ss.Matches.transition(ctx, match, status, result.Swipe.UserID)
	if err != nil {
		return err
	}
	if result.Match == nil || status == models.MatchStatusAccepted {
		result.Match = updated
	}
	if status == models.MatchStatusAccepted {
		result.Matched = true
	}
	return nil
}

// ListLikes returns the user's like swipes, newest first
func (ss *SwipeService) ListLikes(ctx context.Context, userID string) ([]models.Swipe, error) {
	var swipes []models.Swipe
	if err := ss.Dynamo.QueryItems(ctx, models.SwipesTable, "userId", userID, QueryOptions{}, &swipes); err != nil {
		return nil, fmt.Errorf("failed to list swipes: %w", err)
	}
	likes := make([]models.Swipe, 0, len(swipes))
	for _, sw := range swipes {
		if sw.Type == models.SwipeTypeLike {
			likes = append(likes, sw)
		}
	}
	sort.SliceStable(likes, func(i, j int) bool {
		return likes[i].Timestamp.After(likes[j].Timestamp)
	})
	return likes, nil
}
