package models

import "time"

// Credential holds the password hash for an email login
type Credential struct {
	Email        string    `dynamodbav:"email" json:"email"` // ✅ Partition Key
	UserID       string    `dynamodbav:"userId" json:"userId"`
	PasswordHash string    `dynamodbav:"passwordHash" json:"-"`
	CreatedAt    time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// PasswordReset is a single-use password reset token
type PasswordReset struct {
	Token     string    `dynamodbav:"token" json:"token"` // ✅ Partition Key
	Email     string    `dynamodbav:"email" json:"email"`
	ExpiresAt time.Time `dynamodbav:"expiresAt" json:"expiresAt"`
	Used      bool      `dynamodbav:"used" json:"used"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
}

// SocialAccount stores the Instagram credentials of an influencer
type SocialAccount struct {
	UserID         string    `dynamodbav:"userId" json:"userId"` // ✅ Partition Key
	Provider       string    `dynamodbav:"provider" json:"provider"`
	ProviderUserID string    `dynamodbav:"providerUserId" json:"providerUserId"`
	Username       string    `dynamodbav:"username,omitempty" json:"username,omitempty"`
	AccessToken    string    `dynamodbav:"accessToken" json:"-"`
	TokenExpiresAt time.Time `dynamodbav:"tokenExpiresAt,omitempty" json:"tokenExpiresAt,omitempty"`
	ConnectedAt    time.Time `dynamodbav:"connectedAt" json:"connectedAt"`
	LastSyncedAt   time.Time `dynamodbav:"lastSyncedAt,omitempty" json:"lastSyncedAt,omitempty"`
	MediaCount     int       `dynamodbav:"mediaCount,omitempty" json:"mediaCount,omitempty"`
}

const (
	CredentialsTable    = "Credentials"
	PasswordResetsTable = "PasswordResets"
	SocialAccountsTable = "SocialAccounts"
)

// ProviderInstagram is the only supported social provider
const ProviderInstagram = "instagram"
