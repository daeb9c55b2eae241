package models

import "time"

// Swipe is a single like/dislike signal captured from the discovery feed
type Swipe struct {
	UserID     string    `dynamodbav:"userId" json:"userId"`     // ✅ Partition Key
	TargetID   string    `dynamodbav:"targetId" json:"targetId"` // ✅ Sort Key
	TargetType string    `dynamodbav:"targetType" json:"targetType"`
	CampaignID string    `dynamodbav:"campaignId,omitempty" json:"campaignId,omitempty"`
	Type       string    `dynamodbav:"type" json:"type"` // like | dislike
	Timestamp  time.Time `dynamodbav:"timestamp" json:"timestamp"`
}

// SwipesTable is the DynamoDB table name for swipes
const SwipesTable = "Swipes"
