package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"brandmatch_server/config"
	"brandmatch_server/models"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	instagramProfileFields = "id,username,media_count"
	instagramMediaFields   = "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,like_count,comments_count"
	topMediaPerType        = 3
)

// InstagramUser is the /me response
type InstagramUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	MediaCount int    `json:"media_count"`
}

// InstagramMedia is a raw media item from /{user-id}/media
type InstagramMedia struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	MediaType     string `json:"media_type"` // IMAGE, VIDEO, CAROUSEL_ALBUM
	MediaURL      string `json:"media_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Permalink     string `json:"permalink"`
	Timestamp     string `json:"timestamp"`
	LikeCount     int    `json:"like_count"`
	CommentsCount int    `json:"comments_count"`
}

// GraphAPIError is the error envelope returned by the Graph API
type GraphAPIError struct {
	StatusCode int
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
}

func (e *GraphAPIError) Error() string {
	return fmt.Sprintf("instagram api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// InstagramService links Instagram accounts and syncs influencer stats
type InstagramService struct {
	OAuth      *oauth2.Config
	APIBaseURL string
	MediaLimit int
	HTTPClient *http.Client
	Tokens     *TokenService
	Profiles   *UserProfileService
	Dynamo     *DynamoService
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewInstagramService builds the service from configuration
func NewInstagramService(
	cfg config.InstagramConfig,
	tokens *TokenService,
	profiles *UserProfileService,
	dynamo *DynamoService,
	logger *zap.Logger,
) *InstagramService {
	return &InstagramService{
		OAuth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"user_profile", "user_media"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		APIBaseURL: cfg.APIBaseURL,
		MediaLimit: cfg.MediaLimit,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Tokens:     tokens,
		Profiles:   profiles,
		Dynamo:     dynamo,
		Logger:     logger,
		Clock:      time.Now,
	}
}

// AuthURL returns the authorization URL the client opens to link Instagram
func (s *InstagramService) AuthURL(ctx context.Context, userID string) (string, error) {
	profile, err := s.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.Type != models.ProfileTypeInfluencer {
		return "", fmt.Errorf("only influencers can link Instagram: %w", models.ErrForbidden)
	}
	state, err := s.Tokens.IssueState(userID)
	if err != nil {
		return "", err
	}
	return s.OAuth.AuthCodeURL(state), nil
}

// CompleteAuth handles the OAuth redirect: verifies state, exchanges the code,
// stores the linked account and syncs stats.
func (s *InstagramService) CompleteAuth(ctx context.Context, state, code string) (*models.InstagramStats, error) {
	userID, err := s.Tokens.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth state: %w", err)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", models.ErrInvalidInput)
	}

	token, err := s.OAuth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient), code)
	if err != nil {
		s.Logger.Warn("instagram code exchange failed", zap.String("userId", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	igUser, err := s.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	now := s.Clock().UTC()
	account := models.SocialAccount{
		UserID:         userID,
		Provider:       models.ProviderInstagram,
		ProviderUserID: igUser.ID,
		Username:       igUser.Username,
		AccessToken:    token.AccessToken,
		TokenExpiresAt: token.Expiry,
		ConnectedAt:    now,
		MediaCount:     igUser.MediaCount,
	}
	if err := s.Dynamo.PutItem(ctx, models.SocialAccountsTable, account); err != nil {
		return nil, fmt.Errorf("failed to store instagram account: %w", err)
	}
	if igUser.Username != "" {
		if _, err := s.Profiles.SaveInstagramHandle(ctx, userID, igUser.Username); err != nil {
			return nil, err
		}
	}

	s.Logger.Info("instagram linked", zap.String("userId", userID), zap.String("username", igUser.Username))
	return s.SyncStats(ctx, userID, nil)
}

// GetAccount returns the linked account of a user
func (s *InstagramService) GetAccount(ctx context.Context, userID string) (*models.SocialAccount, error) {
	var account models.SocialAccount
	if err := s.Dynamo.GetItem(ctx, models.SocialAccountsTable, Key("userId", userID), &account); err != nil {
		return nil, fmt.Errorf("instagram account: %w", err)
	}
	return &account, nil
}

// Disconnect removes the linked account; synced stats stay on the profile
func (s *InstagramService) Disconnect(ctx context.Context, userID string) error {
	return s.Dynamo.DeleteItem(ctx, models.SocialAccountsTable, Key("userId", userID))
}

// SyncStats fetches media, keeps the top posts and reels, and writes the stats
// snapshot to the profile. A nil followers keeps the previously synced count.
func (s *InstagramService) SyncStats(ctx context.Context, userID string, followers *int) (*models.InstagramStats, error) {
	account, err := s.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	followerCount := profile.Followers()
	if followers != nil {
		if *followers < 0 {
			return nil, fmt.Errorf("%w: followers cannot be negative", models.ErrInvalidInput)
		}
		followerCount = *followers
	}

	media, err := s.FetchMedia(ctx, account.AccessToken, account.ProviderUserID, s.MediaLimit)
	if IsInvalidTokenError(err) {
		s.Logger.Warn("instagram token rejected", zap.String("userId", userID), zap.Error(err))
		return nil, fmt.Errorf("instagram access expired, reconnect the account: %w", errors.Join(models.ErrUnauthorized, err))
	}
	if err != nil {
		return nil, err
	}
	posts, reels := ProcessMedia(media)
	recent := append(append([]models.InstagramPost{}, posts...), reels...)

	now := s.Clock().UTC()
	stats := models.InstagramStats{
		Followers:      followerCount,
		EngagementRate: EngagementRate(followerCount, recent),
		RecentPosts:    recent,
		SyncedAt:       now,
	}
	if err := s.Profiles.UpdateInstagramStats(ctx, userID, stats); err != nil {
		return nil, err
	}
	if err := s.Dynamo.UpdateFields(ctx, models.SocialAccountsTable, Key("userId", userID),
		map[string]interface{}{"lastSyncedAt": now}, nil); err != nil {
		return nil, err
	}

	s.Logger.Info("instagram stats synced",
		zap.String("userId", userID),
		zap.Int("followers", followerCount),
		zap.Int("media", len(media)),
		zap.Float64("engagementRate", stats.EngagementRate))
	return &stats, nil
}

// FetchProfile calls GET /me
func (s *InstagramService) FetchProfile(ctx context.Context, accessToken string) (*InstagramUser, error) {
	params := url.Values{}
	params.Set("fields", instagramProfileFields)
	params.Set("access_token", accessToken)

	var user InstagramUser
	if err := s.getJSON(ctx, "/me", params, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch instagram profile: %w", err)
	}
	return &user, nil
}

// FetchMedia calls GET /{igUserID}/media
func (s *InstagramService) FetchMedia(ctx context.Context, accessToken, igUserID string, limit int) ([]InstagramMedia, error) {
	if limit <= 0 {
		limit = 30
	}
	params := url.Values{}
	params.Set("fields", instagramMediaFields)
	params.Set("access_token", accessToken)
	params.Set("limit", strconv.Itoa(limit))

	var page struct {
		Data []InstagramMedia `json:"data"`
	}
	if err := s.getJSON(ctx, "/"+url.PathEscape(igUserID)+"/media", params, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch instagram media: %w", err)
	}
	if page.Data == nil {
		return []InstagramMedia{}, nil
	}
	return page.Data, nil
}

func (s *InstagramService) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.APIBaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &GraphAPIError{StatusCode: resp.StatusCode, Message: string(body)}
		var envelope struct {
			Error *GraphAPIError `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			envelope.Error.StatusCode = resp.StatusCode
			apiErr = envelope.Error
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsInvalidTokenError reports whether err is a Graph API expired/invalid token error
func IsInvalidTokenError(err error) bool {
	var apiErr *GraphAPIError
	return errors.As(err, &apiErr) && apiErr.Code == 190
}

// ProcessMedia splits media into posts and reels (VIDEO), each sorted by
// likes+comments descending and truncated to the top 3.
func ProcessMedia(media []InstagramMedia) (posts, reels []models.InstagramPost) {
	posts = []models.InstagramPost{}
	reels = []models.InstagramPost{}

	for _, item := range media {
		post := models.InstagramPost{
			ID:       item.ID,
			Type:     models.PostTypePost,
			MediaURL: item.MediaURL,
			Caption:  item.Caption,
			Likes:    item.LikeCount,
			Comments: item.CommentsCount,
		}
		if post.MediaURL == "" {
			post.MediaURL = item.ThumbnailURL
		}
		if ts, err := parseInstagramTime(item.Timestamp); err == nil {
			post.Timestamp = ts
		}

		if item.MediaType == "VIDEO" {
			post.Type = models.PostTypeReel
			reels = append(reels, post)
		} else {
			posts = append(posts, post)
		}
	}

	byEngagement := func(list []models.InstagramPost) func(i, j int) bool {
		return func(i, j int) bool { return list[i].Engagement() > list[j].Engagement() }
	}
	sort.SliceStable(posts, byEngagement(posts))
	sort.SliceStable(reels, byEngagement(reels))

	if len(posts) > topMediaPerType {
		posts = posts[:topMediaPerType]
	}
	if len(reels) > topMediaPerType {
		reels = reels[:topMediaPerType]
	}
	return posts, reels
}

// EngagementRate is the average likes+comments per media item divided by followers.
// Returns 0 without media or followers.
func EngagementRate(followers int, media []models.InstagramPost) float64 {
	if len(media) == 0 || followers <= 0 {
		return 0
	}
	total := 0
	for _, m := range media {
		total += m.Engagement()
	}
	return float64(total) / float64(len(media)) / float64(followers)
}

// Graph API timestamps look like 2024-01-02T15:04:05+0000
func parseInstagramTime(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05-0700", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
