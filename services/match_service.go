package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"brandmatch_server/events"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// matchNamespace derives stable match IDs from (influencer, company, campaign)
var matchNamespace = uuid.MustParse("5b0c3f7e-2a4d-4f0e-9a51-8f0d6c1e7b22")

// MatchService manages influencer/company matches
type MatchService struct {
	Dynamo    *DynamoService
	Profiles  *UserProfileService
	Campaigns *CampaignService
	Events    events.Publisher
	Notifier  Notifier
	Logger    *zap.Logger
	Clock     func() time.Time
}

// MatchEvent is the payload of match.* events and matchUpdated socket pushes
type MatchEvent struct {
	Match     models.Match `json:"match"`
	UpdatedBy string       `json:"updatedBy"`
}

// MatchID returns the deterministic ID of the match for the triple
func MatchID(influencerID, companyID, campaignID string) string {
	return uuid.NewSHA1(matchNamespace, []byte(influencerID+"|"+companyID+"|"+campaignID)).String()
}

func (ms *MatchService) now() time.Time {
	if ms.Clock != nil {
		return ms.Clock()
	}
	return time.Now()
}

// findMatch returns nil, nil when the match does not exist
func (ms *MatchService) findMatch(ctx context.Context, id string) (*models.Match, error) {
	var match models.Match
	err := ms.Dynamo.GetItem(ctx, models.MatchesTable, Key("id", id), &match)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetMatch returns a match visible to userID
func (ms *MatchService) GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error) {
	match, err := ms.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("match %s: %w", matchID, models.ErrNotFound)
	}
	if !match.HasParticipant(userID) {
		return nil, fmt.Errorf("user %s is not part of match %s: %w", userID, matchID, models.ErrForbidden)
	}
	return match, nil
}

// GetMatchWithProfile is GetMatch enriched with the counterpart profile and campaign
func (ms *MatchService) GetMatchWithProfile(ctx context.Context, matchID, userID string) (*models.MatchWithProfile, error) {
	match, err := ms.GetMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	enriched := ms.enrich(ctx, []models.Match{*match}, userID)
	return &enriched[0], nil
}

// ListMatches returns the user's matches, newest update first, optionally filtered by status
func (ms *MatchService) ListMatches(ctx context.Context, userID, status string) ([]models.MatchWithProfile, error) {
	matches, err := ms.userMatches(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Status == status {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return ms.enrich(ctx, matches, userID), nil
}

// userMatches queries the index matching the user's profile type
func (ms *MatchService) userMatches(ctx context.Context, userID string) ([]models.Match, error) {
	profile, err := ms.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	attr, index := "influencerId", models.MatchInfluencerIndex
	if profile.Type == models.ProfileTypeCompany {
		attr, index = "companyId", models.MatchCompanyIndex
	}

	var matches []models.Match
	if err := ms.Dynamo.QueryItems(ctx, models.MatchesTable, attr, userID, QueryOptions{IndexName: index}, &matches); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (ms *MatchService) enrich(ctx context.Context, matches []models.Match, userID string) []models.MatchWithProfile {
	profiles := map[string]*models.UserProfile{}
	campaigns := map[string]*models.Campaign{}
	out := make([]models.MatchWithProfile, 0, len(matches))

	for _, m := range matches {
		item := models.MatchWithProfile{Match: m}

		other := m.Counterpart(userID)
		profile, ok := profiles[other]
		if !ok {
			p, err := ms.Profiles.GetUserProfile(ctx, other)
			if err != nil {
				ms.Logger.Warn("matched profile missing", zap.String("matchId", m.ID), zap.Error(err))
			}
			profile = p
			profiles[other] = p
		}
		item.MatchedProfile = profile

		if m.CampaignID != "" {
			campaign, ok := campaigns[m.CampaignID]
			if !ok {
				c, err := ms.Campaigns.GetCampaign(ctx, m.CampaignID)
				if err != nil {
					ms.Logger.Warn("match campaign missing", zap.String("matchId", m.ID), zap.Error(err))
				}
				campaign = c
				campaigns[m.CampaignID] = c
			}
			item.Campaign = campaign
		}
		out = append(out, item)
	}
	return out
}

// UpdateStatus lets a participant complete an accepted match or reject a
// pending or accepted one.
func (ms *MatchService) UpdateStatus(ctx context.Context, matchID, userID, status string) (*models.Match, error) {
	match, err := ms.GetMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.MatchStatusCompleted:
		if match.Status != models.MatchStatusAccepted {
			return nil, fmt.Errorf("only accepted matches can be completed: %w", models.ErrConflict)
		}
	case models.MatchStatusRejected:
		if match.Status != models.MatchStatusPending && match.Status != models.MatchStatusAccepted {
			return nil, fmt.Errorf("match is already %s: %w", match.Status, models.ErrConflict)
		}
	default:
		return nil, fmt.Errorf("%w: status must be completed or rejected", models.ErrInvalidInput)
	}

	return ms.transition(ctx, match, status, userID)
}

// transition persists a status change and fans out the event
func (ms *MatchService) transition(ctx context.Context, match *models.Match, status, actorID string) (*models.Match, error) {
	var updated models.Match
	err := ms.Dynamo.UpdateFields(ctx, models.MatchesTable, Key("id", match.ID), map[string]interface{}{
		"status":    status,
		"updatedAt": ms.now().UTC(),
	}, &updated, WithCondition("#status = :from",
		map[string]string{"#status": "status"},
		map[string]types.AttributeValue{":from": &types.AttributeValueMemberS{Value: match.Status}},
	))
	if err != nil {
		return nil, err
	}

	subject := models.SubjectMatchUpdated
	if status == models.MatchStatusAccepted {
		subject = models.SubjectMatchAccepted
	}
	ms.announce(ctx, subject, &updated, actorID, updated.InfluencerID, updated.CompanyID)

	ms.Logger.Info("match status changed",
		zap.String("matchId", updated.ID),
		zap.String("from", match.Status),
		zap.String("to", status))
	return &updated, nil
}

// createPending stores a new pending match initiated by initiatorID
func (ms *MatchService) createPending(ctx context.Context, influencerID, companyID, campaignID, initiatorID string) (*models.Match, error) {
	now := ms.now().UTC()
	match := models.Match{
		ID:           MatchID(influencerID, companyID, campaignID),
		InfluencerID: influencerID,
		CompanyID:    companyID,
		CampaignID:   campaignID,
		Status:       models.MatchStatusPending,
		InitiatedBy:  initiatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ms.Dynamo.PutItemIfNotExists(ctx, models.MatchesTable, "id", match); err != nil {
		return nil, err
	}

	ms.announce(ctx, models.SubjectMatchCreated, &match, initiatorID, match.Counterpart(initiatorID))
	ms.Logger.Info("match created", zap.String("matchId", match.ID), zap.String("initiatedBy", initiatorID))
	return &match, nil
}

func (ms *MatchService) announce(ctx context.Context, subject string, match *models.Match, actorID string, recipients ...string) {
	payload := MatchEvent{Match: *match, UpdatedBy: actorID}
	if err := ms.Events.Publish(ctx, subject, payload); err != nil {
		ms.Logger.Warn("failed to publish match event", zap.String("subject", subject), zap.Error(err))
	}
	for _, userID := range recipients {
		ms.Notifier.EmitToUser(userID, EventMatchUpdated, payload)
	}
}
