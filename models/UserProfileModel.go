package models

import "time"

// UserProfile is the document stored for both influencers and companies.
// Influencer-only and company-only fields are omitted when empty.
type UserProfile struct {
	ID             string    `dynamodbav:"id" json:"id"` // ✅ Partition Key
	Email          string    `dynamodbav:"email" json:"email"`
	Name           string    `dynamodbav:"name" json:"name"`
	ProfilePicture string    `dynamodbav:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Type           string    `dynamodbav:"type" json:"type"`     // influencer | company (GSI type-index)
	Status         string    `dynamodbav:"status" json:"status"` // active | inactive
	CreatedAt      time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `dynamodbav:"updatedAt" json:"updatedAt"`

	// Influencer fields
	InstagramHandle string          `dynamodbav:"instagramHandle,omitempty" json:"instagramHandle,omitempty"`
	InstagramStats  *InstagramStats `dynamodbav:"instagramStats,omitempty" json:"instagramStats,omitempty"`
	Bio             string          `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	Niches          []string        `dynamodbav:"niches,omitempty" json:"niches,omitempty"`
	Location        string          `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Demographics    *Demographics   `dynamodbav:"demographics,omitempty" json:"demographics,omitempty"`

	// Company fields
	CompanyName string `dynamodbav:"companyName,omitempty" json:"companyName,omitempty"`
	Industry    string `dynamodbav:"industry,omitempty" json:"industry,omitempty"`
	Description string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Website     string `dynamodbav:"website,omitempty" json:"website,omitempty"`
}

// Demographics describes an influencer's audience
type Demographics struct {
	Age             string   `dynamodbav:"age,omitempty" json:"age,omitempty"`
	Gender          string   `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	PrimaryAudience []string `dynamodbav:"primaryAudience,omitempty" json:"primaryAudience,omitempty"`
}

// InstagramStats is the snapshot written after a media sync
type InstagramStats struct {
	Followers      int             `dynamodbav:"followers" json:"followers"`
	EngagementRate float64         `dynamodbav:"engagementRate" json:"engagementRate"`
	RecentPosts    []InstagramPost `dynamodbav:"recentPosts" json:"recentPosts"`
	SyncedAt       time.Time       `dynamodbav:"syncedAt" json:"syncedAt"`
}

// InstagramPost is a processed media item (POST or REEL)
type InstagramPost struct {
	ID        string    `dynamodbav:"id" json:"id"`
	Type      string    `dynamodbav:"type" json:"type"`
	MediaURL  string    `dynamodbav:"mediaUrl" json:"mediaUrl"`
	Caption   string    `dynamodbav:"caption" json:"caption"`
	Likes     int       `dynamodbav:"likes" json:"likes"`
	Comments  int       `dynamodbav:"comments" json:"comments"`
	Timestamp time.Time `dynamodbav:"timestamp" json:"timestamp"`
}

// Engagement is likes plus comments
func (p InstagramPost) Engagement() int {
	return p.Likes + p.Comments
}

// DisplayName returns the company name for companies and the person name otherwise
func (p *UserProfile) DisplayName() string {
	if p.Type == ProfileTypeCompany && p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Name
}

// Followers returns the synced follower count, 0 when never synced
func (p *UserProfile) Followers() int {
	if p.InstagramStats == nil {
		return 0
	}
	return p.InstagramStats.Followers
}

// EngagementRate returns the synced engagement rate, 0 when never synced
func (p *UserProfile) EngagementRate() float64 {
	if p.InstagramStats == nil {
		return 0
	}
	return p.InstagramStats.EngagementRate
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "Users"

// ProfileTypeIndex is the GSI for querying profiles by type
const ProfileTypeIndex = "type-index" // PK: type
