package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"brandmatch_server/events"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// AuthService handles registration, login, sign-out and password resets
type AuthService struct {
	Dynamo      *DynamoService
	Tokens      *TokenService
	Revocations RevocationStore
	Events      events.Publisher
	Logger      *zap.Logger
	BcryptCost  int
	ResetTTL    time.Duration
	Clock       func() time.Time
}

// RegisterInput is the payload for Register
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Profile   *models.UserProfile `json:"profile"`
}

// PasswordResetRequestedEvent is published for the mail delivery worker
type PasswordResetRequestedEvent struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NormalizeEmail lower-cases and trims an address, then validates it
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", models.ErrInvalidInput)
	}
	return email, nil
}

// ValidatePassword enforces the password policy: 8-72 chars with at least one letter and one digit
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d characters", models.ErrInvalidInput, maxPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must include a letter and a digit", models.ErrInvalidInput)
	}
	return nil
}

func (s *AuthService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *AuthService) cost() int {
	if s.BcryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

// Register creates the credential and the profile document, then issues a token
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if !models.IsValidProfileType(in.Type) {
		return nil, fmt.Errorf("%w: type must be influencer or company", models.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	profile := models.UserProfile{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Type:      in.Type,
		Status:    models.ProfileStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Type == models.ProfileTypeCompany {
		profile.CompanyName = name
	}

	credential := models.Credential{
		Email:        email,
		UserID:       profile.ID,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Dynamo.PutItemIfNotExists(ctx, models.CredentialsTable, "email", credential); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", models.ErrConflict)
		}
		return nil, err
	}

	if err := s.Dynamo.PutItem(ctx, models.UserProfilesTable, profile); err != nil {
		// Roll back the credential
		if delErr := s.Dynamo.DeleteItem(ctx, models.CredentialsTable, Key("email", email)); delErr != nil {
			s.Logger.Error("failed to roll back credential", zap.String("email", email), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.Logger.Info("user registered", zap.String("userId", profile.ID), zap.String("type", profile.Type))
	return s.issue(&profile)
}

// Login verifies the password and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var credential models.Credential
	if err := s.Dynamo.GetItem(ctx, models.CredentialsTable, Key("email", email), &credential); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", models.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", models.ErrUnauthorized)
	}

	var profile models.UserProfile
	if err := s.Dynamo.GetItem(ctx, models.UserProfilesTable, Key("id", credential.UserID), &profile); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return s.issue(&profile)
}

func (s *AuthService) issue(profile *models.UserProfile) (*AuthResult, error) {
	token, claims, err := s.Tokens.IssueAccessToken(profile.ID, profile.Type)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   profile,
	}, nil
}

// Authenticate validates an access token and rejects signed-out ones
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*Claims, error) {
	claims, err := s.Tokens.ParseAccessToken(rawToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", models.ErrUnauthorized)
	}
	return claims, nil
}

// SignOut revokes the token until its natural expiry
func (s *AuthService) SignOut(ctx context.Context, rawToken string) error {
	claims, err := s.Tokens.ParseAccessToken(rawToken)
	if err != nil {
		return err
	}
	if err := s.Revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.Logger.Info("user signed out", zap.String("userId", claims.UserID))
	return nil
}

// RequestPasswordReset stores a single-use reset token and publishes it for delivery.
// Unknown emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var credential models.Credential
	if err := s.Dynamo.GetItem(ctx, models.CredentialsTable, Key("email", email), &credential); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.Logger.Debug("password reset for unknown email")
			return nil
		}
		return err
	}

	now := s.now().UTC()
	reset := models.PasswordReset{
		Token:     uuid.NewString(),
		Email:     email,
		ExpiresAt: now.Add(s.ResetTTL),
		CreatedAt: now,
	}
	if err := s.Dynamo.PutItem(ctx, models.PasswordResetsTable, reset); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	event := PasswordResetRequestedEvent{Email: email, Token: reset.Token, ExpiresAt: reset.ExpiresAt}
	if err := s.Events.Publish(ctx, models.SubjectPasswordResetRequested, event); err != nil {
		return err
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	var reset models.PasswordReset
	if err := s.Dynamo.GetItem(ctx, models.PasswordResetsTable, Key("token", token), &reset); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("invalid reset token: %w", models.ErrInvalidInput)
		}
		return err
	}
	now := s.now().UTC()
	if reset.Used || !reset.ExpiresAt.After(now) {
		return fmt.Errorf("reset token expired or already used: %w", models.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost())
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// Token is consumed before the hash changes; only one caller wins
	err = s.Dynamo.UpdateFields(ctx, models.PasswordResetsTable, Key("token", token),
		map[string]interface{}{"used": true}, nil,
		WithCondition("#used = :unused",
			map[string]string{"#used": "used"},
			map[string]types.AttributeValue{":unused": &types.AttributeValueMemberBOOL{Value: false}},
		))
	if errors.Is(err, models.ErrConflict) {
		return fmt.Errorf("reset token expired or already used: %w", models.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	return s.Dynamo.UpdateFields(ctx, models.CredentialsTable, Key("email", reset.Email),
		map[string]interface{}{"passwordHash": string(hash), "updatedAt": now}, nil)
}
