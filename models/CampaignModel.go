package models

import "time"

// Campaign is a company-authored listing shown to influencers in the discovery feed
type Campaign struct {
	ID           string               `dynamodbav:"id" json:"id"`               // ✅ Partition Key
	CompanyID    string               `dynamodbav:"companyId" json:"companyId"` // GSI companyId-index
	Title        string               `dynamodbav:"title" json:"title"`
	Description  string               `dynamodbav:"description" json:"description"`
	Requirements CampaignRequirements `dynamodbav:"requirements" json:"requirements"`
	Budget       Budget               `dynamodbav:"budget" json:"budget"`
	Status       string               `dynamodbav:"status" json:"status"` // GSI status-index
	StartDate    time.Time            `dynamodbav:"startDate" json:"startDate"`
	EndDate      *time.Time           `dynamodbav:"endDate,omitempty" json:"endDate,omitempty"`
	CreatedAt    time.Time            `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `dynamodbav:"updatedAt" json:"updatedAt"`
}

// CampaignRequirements describes the target audience of a campaign
type CampaignRequirements struct {
	MinFollowers          int                    `dynamodbav:"minFollowers" json:"minFollowers"`
	MinEngagementRate     float64                `dynamodbav:"minEngagementRate" json:"minEngagementRate"`
	PreferredNiches       []string               `dynamodbav:"preferredNiches,omitempty" json:"preferredNiches,omitempty"`
	PreferredDemographics *PreferredDemographics `dynamodbav:"preferredDemographics,omitempty" json:"preferredDemographics,omitempty"`
}

// PreferredDemographics narrows the audience a campaign is looking for
type PreferredDemographics struct {
	Age      []string `dynamodbav:"age,omitempty" json:"age,omitempty"`
	Gender   []string `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	Location []string `dynamodbav:"location,omitempty" json:"location,omitempty"`
}

// Budget is the campaign budget range
type Budget struct {
	Min      float64 `dynamodbav:"min" json:"min"`
	Max      float64 `dynamodbav:"max" json:"max"`
	Currency string  `dynamodbav:"currency" json:"currency"`
}

// IsExpired reports whether the campaign end date is before now
func (c *Campaign) IsExpired(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}

// CampaignsTable is the DynamoDB table name for campaigns
const CampaignsTable = "Campaigns"

const (
	CampaignCompanyIndex = "companyId-index" // PK: companyId
	CampaignStatusIndex  = "status-index"    // PK: status
)
