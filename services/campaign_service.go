package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"brandmatch_server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignService manages company campaigns
type CampaignService struct {
	Dynamo   *DynamoService
	Profiles *UserProfileService
	Logger   *zap.Logger
	Clock    func() time.Time
}

// CampaignInput is the create/update payload
type CampaignInput struct {
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	Requirements models.CampaignRequirements `json:"requirements"`
	Budget       models.Budget               `json:"budget"`
	StartDate    *time.Time                  `json:"startDate,omitempty"`
	EndDate      *time.Time                  `json:"endDate,omitempty"`
	// ClearEndDate removes a stored end date on update
	ClearEndDate bool `json:"clearEndDate,omitempty"`
}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

func (cs *CampaignService) now() time.Time {
	if cs.Clock != nil {
		return cs.Clock()
	}
	return time.Now()
}

func (in *CampaignInput) normalize(now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Budget.Currency = strings.ToUpper(strings.TrimSpace(in.Budget.Currency))
	in.Requirements.PreferredNiches = normalizeTags(in.Requirements.PreferredNiches)

	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	case in.Budget.Min < 0:
		return fmt.Errorf("%w: budget min cannot be negative", models.ErrInvalidInput)
	case in.Budget.Max < in.Budget.Min:
		return fmt.Errorf("%w: budget max must be >= min", models.ErrInvalidInput)
	case !currencyPattern.MatchString(in.Budget.Currency):
		return fmt.Errorf("%w: currency must be a 3-letter code", models.ErrInvalidInput)
	case in.Requirements.MinFollowers < 0:
		return fmt.Errorf("%w: minFollowers cannot be negative", models.ErrInvalidInput)
	case in.Requirements.MinEngagementRate < 0 || in.Requirements.MinEngagementRate > 1:
		return fmt.Errorf("%w: minEngagementRate must be between 0 and 1", models.ErrInvalidInput)
	}

	if in.StartDate == nil {
		start := now
		in.StartDate = &start
	}
	if in.EndDate != nil && !in.EndDate.After(*in.StartDate) {
		return fmt.Errorf("%w: endDate must be after startDate", models.ErrInvalidInput)
	}
	return nil
}

// CreateCampaign creates an active campaign owned by companyID
func (cs *CampaignService) CreateCampaign(ctx context.Context, companyID string, in CampaignInput) (*models.Campaign, error) {
	company, err := cs.Profiles.GetUserProfile(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.Type != models.ProfileTypeCompany {
		return nil, fmt.Errorf("only companies can create campaigns: %w", models.ErrForbidden)
	}

	now := cs.now().UTC()
	if err := in.normalize(now); err != nil {
		return nil, err
	}

	campaign := models.Campaign{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		Title:        in.Title,
		Description:  in.Description,
		Requirements: in.Requirements,
		Budget:       in.Budget,
		Status:       models.CampaignStatusActive,
		StartDate:    in.StartDate.UTC(),
		EndDate:      in.EndDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := cs.Dynamo.PutItem(ctx, models.CampaignsTable, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	cs.Logger.Info("campaign created", zap.String("campaignId", campaign.ID), zap.String("companyId", companyID))
	return &campaign, nil
}

// GetCampaign retrieves a campaign by ID
func (cs *CampaignService) GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := cs.Dynamo.GetItem(ctx, models.CampaignsTable, Key("id", campaignID), &campaign); err != nil {
		return nil, fmt.Errorf("campaign %s: %w", campaignID, err)
	}
	return &campaign, nil
}

// UpdateCampaign replaces the editable fields of a campaign owned by companyID
func (cs *CampaignService) UpdateCampaign(ctx context.Context, companyID, campaignID string, in CampaignInput) (*models.Campaign, error) {
	campaign, err := cs.ownedCampaign(ctx, companyID, campaignID)
	if err != nil {
		return nil, err
	}
	if in.ClearEndDate && in.EndDate != nil {
		return nil, fmt.Errorf("%w: endDate and clearEndDate are mutually exclusive", models.ErrInvalidInput)
	}
	if in.StartDate == nil {
		start := campaign.StartDate
		in.StartDate = &start
	}
	if in.EndDate == nil && !in.ClearEndDate {
		in.EndDate = campaign.EndDate
	}
	now := cs.now().UTC()
	if err := in.normalize(now); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"title":        in.Title,
		"description":  in.Description,
		"requirements": in.Requirements,
		"budget":       in.Budget,
		"startDate":    in.StartDate.UTC(),
		"updatedAt":    now,
	}
	if in.EndDate != nil {
		fields["endDate"] = in.EndDate.UTC()
	}

	var opts []UpdateOption
	if in.ClearEndDate {
		opts = append(opts, WithRemove("endDate"))
	}

	var updated models.Campaign
	if err := cs.Dynamo.UpdateFields(ctx, models.CampaignsTable, Key("id", campaignID), fields, &updated, opts...); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetCampaignStatus moves a campaign between active, paused and completed.
// Completed campaigns are final.
func (cs *CampaignService) SetCampaignStatus(ctx context.Context, companyID, campaignID, status string) (*models.Campaign, error) {
	if !models.IsValidCampaignStatus(status) {
		return nil, fmt.Errorf("%w: unknown campaign status %q", models.ErrInvalidInput, status)
	}
	campaign, err := cs.ownedCampaign(ctx, companyID, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == status {
		return campaign, nil
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return nil, fmt.Errorf("campaign already completed: %w", models.ErrConflict)
	}

	var updated models.Campaign
	err = cs.Dynamo.UpdateFields(ctx, models.CampaignsTable, Key("id", campaignID), map[string]interface{}{
		"status":    status,
		"updatedAt": cs.now().UTC(),
	}, &updated)
	if err != nil {
		return nil, err
	}
	cs.Logger.Info("campaign status changed", zap.String("campaignId", campaignID), zap.String("status", status))
	return &updated, nil
}

// ListCompanyCampaigns returns a company's campaigns, newest first
func (cs *CampaignService) ListCompanyCampaigns(ctx context.Context, companyID string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := cs.Dynamo.QueryItems(ctx, models.CampaignsTable, "companyId", companyID,
		QueryOptions{IndexName: models.CampaignCompanyIndex}, &campaigns)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	sort.SliceStable(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

// ListActiveCampaigns returns every active campaign
func (cs *CampaignService) ListActiveCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := cs.Dynamo.QueryItems(ctx, models.CampaignsTable, "status", models.CampaignStatusActive,
		QueryOptions{IndexName: models.CampaignStatusIndex}, &campaigns)
	if err != nil {
		return nil, fmt.Errorf("failed to list active campaigns: %w", err)
	}
	return campaigns, nil
}

func (cs *CampaignService) ownedCampaign(ctx context.Context, companyID, campaignID string) (*models.Campaign, error) {
	campaign, err := cs.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.CompanyID != companyID {
		return nil, fmt.Errorf("campaign %s is not owned by %s: %w", campaignID, companyID, models.ErrForbidden)
	}
	return campaign, nil
}

// MeetsRequirements reports whether an influencer profile satisfies a campaign's
// follower, engagement and niche requirements. Niches only restrict when set.
func MeetsRequirements(profile *models.UserProfile, req models.CampaignRequirements) bool {
	if profile.Followers() < req.MinFollowers {
		return false
	}
	if profile.EngagementRate() < req.MinEngagementRate {
		return false
	}
	if len(req.PreferredNiches) == 0 {
		return true
	}
	niches := map[string]struct{}{}
	for _, n := range profile.Niches {
		niches[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range req.PreferredNiches {
		if _, ok := niches[strings.ToLower(n)]; ok {
			return true
		}
	}
	return false
}
