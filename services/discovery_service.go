package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"brandmatch_server/models"

	"go.uber.org/zap"
)

// DiscoveryService builds the card-swipe feed
type DiscoveryService struct {
	Dynamo       *DynamoService
	Profiles     *UserProfileService
	Campaigns    *CampaignService
	Logger       *zap.Logger
	DefaultLimit int
	MaxLimit     int
	Clock        func() time.Time
}

// FeedOptions narrows the feed
type FeedOptions struct {
	Limit int
	// EligibleOnly keeps campaigns whose requirements the influencer meets
	EligibleOnly bool
	// CampaignID keeps influencers meeting that campaign's requirements
	CampaignID string
}

// FeedItem is one card. Exactly one of Campaign and Profile is set.
type FeedItem struct {
	TargetType string              `json:"targetType"`
	Campaign   *models.Campaign    `json:"campaign,omitempty"`
	Company    *models.UserProfile `json:"company,omitempty"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
}

// TargetID returns the ID a swipe on this card refers to
func (f FeedItem) TargetID() string {
	if f.Campaign != nil {
		return f.Campaign.ID
	}
	if f.Profile != nil {
		return f.Profile.ID
	}
	return ""
}

func (ds *DiscoveryService) now() time.Time {
	if ds.Clock != nil {
		return ds.Clock()
	}
	return time.Now()
}

func (ds *DiscoveryService) limit(requested int) int {
	def, maxLimit := ds.DefaultLimit, ds.MaxLimit
	if def <= 0 {
		def = 10
	}
	if maxLimit <= 0 {
		maxLimit = 50
	}
	switch {
	case requested <= 0:
		return def
	case requested > maxLimit:
		return maxLimit
	}
	return requested
}

// Feed returns unswiped cards for the user: campaigns for influencers,
// influencer profiles for companies.
func (ds *DiscoveryService) Feed(ctx context.Context, userID string, opts FeedOptions) ([]FeedItem, error) {
	user, err := ds.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	swiped, err := ds.swipedTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit := ds.limit(opts.Limit)

	var items []FeedItem
	switch user.Type {
	case models.ProfileTypeInfluencer:
		items, err = ds.campaignFeed(ctx, user, swiped, opts, limit)
	case models.ProfileTypeCompany:
		items, err = ds.influencerFeed(ctx, user, swiped, opts, limit)
	default:
		return nil, fmt.Errorf("%w: unknown profile type %q", models.ErrInvalidInput, user.Type)
	}
	if err != nil {
		return nil, err
	}

	ds.Logger.Debug("feed built", zap.String("userId", userID), zap.Int("items", len(items)))
	return items, nil
}

func (ds *DiscoveryService) campaignFeed(ctx context.Context, user *models.UserProfile, swiped map[string]struct{}, opts FeedOptions, limit int) ([]FeedItem, error) {
	campaigns, err := ds.Campaigns.ListActiveCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})

	now := ds.now()
	companies := map[string]*models.UserProfile{}
	items := make([]FeedItem, 0, limit)
	for i := range campaigns {
		c := &campaigns[i]
		if _, ok := swiped[c.ID]; ok || c.CompanyID == user.ID || c.IsExpired(now) {
			continue
		}
		if opts.EligibleOnly && !MeetsRequirements(user, c.Requirements) {
			continue
		}

		company, ok := companies[c.CompanyID]
		if !ok {
			company, err = ds.Profiles.GetUserProfile(ctx, c.CompanyID)
			if err != nil {
				ds.Logger.Warn("campaign owner missing", zap.String("campaignId", c.ID), zap.Error(err))
				company = nil
			}
			companies[c.CompanyID] = company
		}
		if company == nil || company.Status != models.ProfileStatusActive {
			continue
		}

		items = append(items, FeedItem{TargetType: models.TargetTypeCampaign, Campaign: c, Company: company})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (ds *DiscoveryService) influencerFeed(ctx context.Context, user *models.UserProfile, swiped map[string]struct{}, opts FeedOptions, limit int) ([]FeedItem, error) {
	var requirements *models.CampaignRequirements
	if opts.CampaignID != "" {
		campaign, err := ds.Campaigns.GetCampaign(ctx, opts.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign.CompanyID != user.ID {
			return nil, fmt.Errorf("campaign %s is not owned by %s: %w", campaign.ID, user.ID, models.ErrForbidden)
		}
		requirements = &campaign.Requirements
	}

	profiles, err := ds.Profiles.ListProfilesByType(ctx, models.ProfileTypeInfluencer)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Followers() > profiles[j].Followers()
	})

	items := make([]FeedItem, 0, limit)
	for i := range profiles {
		p := &profiles[i]
		if _, ok := swiped[p.ID]; ok || p.ID == user.ID || p.Status != models.ProfileStatusActive {
			continue
		}
		if requirements != nil && !MeetsRequirements(p, *requirements) {
			continue
		}
		items = append(items, FeedItem{TargetType: models.TargetTypeInfluencer, Profile: p})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (ds *DiscoveryService) swipedTargets(ctx context.Context, userID string) (map[string]struct{}, error) {
	var swipes []models.Swipe
	if err := ds.Dynamo.QueryItems(ctx, models.SwipesTable, "userId", userID, QueryOptions{}, &swipes); err != nil {
		return nil, fmt.Errorf("failed to load swipes: %w", err)
	}
	out := make(map[string]struct{}, len(swipes))
	for _, sw := range swipes {
		out[sw.TargetID] = struct{}{}
	}
	return out, nil
}
