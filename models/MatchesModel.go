package models

import "time"

// Match links an influencer and a company for a campaign
type Match struct {
	ID           string    `dynamodbav:"id" json:"id"`                     // ✅ Partition Key
	InfluencerID string    `dynamodbav:"influencerId" json:"influencerId"` // GSI influencerId-index
	CompanyID    string    `dynamodbav:"companyId" json:"companyId"`       // GSI companyId-index
	CampaignID   string    `dynamodbav:"campaignId" json:"campaignId"`
	Status       string    `dynamodbav:"status" json:"status"` // pending, accepted, rejected, completed
	InitiatedBy  string    `dynamodbav:"initiatedBy" json:"initiatedBy"`
	CreatedAt    time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is the influencer or the company of the match
func (m *Match) HasParticipant(userID string) bool {
	return m.InfluencerID == userID || m.CompanyID == userID
}

// Counterpart returns the other participant's ID
func (m *Match) Counterpart(userID string) string {
	if m.InfluencerID == userID {
		return m.CompanyID
	}
	return m.InfluencerID
}

// MatchWithProfile is a match enriched with the counterpart's profile
type MatchWithProfile struct {
	Match
	MatchedProfile *UserProfile `json:"matchedProfile,omitempty"`
	Campaign       *Campaign    `json:"campaign,omitempty"`
}

// MatchesTable is the DynamoDB table name for matches
const MatchesTable = "Matches"

const (
	MatchInfluencerIndex = "influencerId-index" // PK: influencerId
	MatchCompanyIndex    = "companyId-index"    // PK: companyId
)
