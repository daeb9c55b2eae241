package services

import (
	"fmt"
	"time"

	"brandmatch_server/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	audienceAccess         = "access"
	audienceInstagramState = "instagram_oauth"
	tokenIssuer            = "brandmatch"
)

// Claims are carried by access tokens and OAuth state tokens
type Claims struct {
	UserID      string `json:"user_id"`
	ProfileType string `json:"profile_type,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 tokens
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	stateTTL time.Duration
	Clock    func() time.Time
}

// NewTokenService creates a token service for the given secret
func NewTokenService(secret string, ttl, stateTTL time.Duration) *TokenService {
	return &TokenService{
		secret:   []byte(secret),
		ttl:      ttl,
		stateTTL: stateTTL,
		Clock:    time.Now,
	}
}

// IssueAccessToken returns a signed access token for the user
func (ts *TokenService) IssueAccessToken(userID, profileType string) (string, *Claims, error) {
	return ts.issue(userID, profileType, audienceAccess, ts.ttl)
}

// ParseAccessToken validates an access token and returns its claims
func (ts *TokenService) ParseAccessToken(raw string) (*Claims, error) {
	return ts.parse(raw, audienceAccess)
}

// IssueState returns a short-lived token binding an OAuth round trip to userID
func (ts *TokenService) IssueState(userID string) (string, error) {
	token, _, err := ts.issue(userID, "", audienceInstagramState, ts.stateTTL)
	return token, err
}

// ParseState validates an OAuth state token and returns the bound user ID
func (ts *TokenService) ParseState(raw string) (string, error) {
	claims, err := ts.parse(raw, audienceInstagramState)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (ts *TokenService) issue(userID, profileType, audience string, ttl time.Duration) (string, *Claims, error) {
	now := ts.Clock()
	claims := &Claims{
		UserID:      userID,
		ProfileType: profileType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

func (ts *TokenService) parse(raw, audience string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing token: %w", models.ErrUnauthorized)
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(ts.Clock),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, models.ErrUnauthorized)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims: %w", models.ErrUnauthorized)
	}
	return claims, nil
}
