package models

// Profile types
const (
	ProfileTypeInfluencer = "influencer"
	ProfileTypeCompany    = "company"
)

// Profile statuses
const (
	ProfileStatusActive   = "active"
	ProfileStatusInactive = "inactive"
)

// Swipe types (like, dislike)
const (
	SwipeTypeLike    = "like"
	SwipeTypeDislike = "dislike"
)

// Swipe target types
const (
	TargetTypeCampaign   = "campaign"
	TargetTypeInfluencer = "influencer"
)

// Match statuses
const (
	MatchStatusPending   = "pending"
	MatchStatusAccepted  = "accepted"
	MatchStatusRejected  = "rejected"
	MatchStatusCompleted = "completed"
)

// Campaign statuses
const (
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// Message types
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeDocument = "document"
)

// Instagram post types
const (
	PostTypePost = "POST"
	PostTypeReel = "REEL"
)

// Event subjects published on the message bus
const (
	SubjectMatchCreated           = "match.created"
	SubjectMatchAccepted          = "match.accepted"
	SubjectMatchUpdated           = "match.updated"
	SubjectMessageCreated         = "message.created"
	SubjectPasswordResetRequested = "auth.password_reset_requested"
)

// IsValidProfileType reports whether t is a known profile type.
func IsValidProfileType(t string) bool {
	return t == ProfileTypeInfluencer || t == ProfileTypeCompany
}

// IsValidCampaignStatus reports whether s is a known campaign status.
func IsValidCampaignStatus(s string) bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	}
	return false
}

// IsValidMessageType reports whether t is a known message type.
func IsValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument:
		return true
	}
	return false
}
