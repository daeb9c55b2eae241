package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brandmatch_server/dynamotest"
	"brandmatch_server/events"
	"brandmatch_server/models"
	"brandmatch_server/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	logger := zap.NewNop()
	dynamo := services.NewDynamoService(dynamotest.NewClient(), logger)
	require.NoError(t, dynamo.CreateTables(context.Background()))

	publisher := events.NoopPublisher{}
	tokens := services.NewTokenService("router-secret", time.Hour, 10*time.Minute)
	profiles := &services.UserProfileService{Dynamo: dynamo, Logger: logger}
	campaigns := &services.CampaignService{Dynamo: dynamo, Profiles: profiles, Logger: logger}
	matches := &services.MatchService{
		Dynamo: dynamo, Profiles: profiles, Campaigns: campaigns,
		Events: publisher, Notifier: services.NoopNotifier{}, Logger: logger,
	}

	return NewRouter(Services{
		Auth: &services.AuthService{
			Dynamo: dynamo, Tokens: tokens, Revocations: services.NewMemoryRevocationStore(),
			Events: publisher, Logger: logger, BcryptCost: bcrypt.MinCost, ResetTTL: time.Hour,
		},
		Profiles:  profiles,
		Instagram: &services.InstagramService{Tokens: tokens, Profiles: profiles, Dynamo: dynamo, Logger: logger, Clock: time.Now},
		Campaigns: campaigns,
		Discovery: &services.DiscoveryService{Dynamo: dynamo, Profiles: profiles, Campaigns: campaigns, Logger: logger},
		Swipes:    &services.SwipeService{Dynamo: dynamo, Profiles: profiles, Campaigns: campaigns, Matches: matches, Logger: logger},
		Matches:   matches,
		Chat: &services.ChatService{
			Dynamo: dynamo, Matches: matches, Events: publisher,
			Notifier: services.NoopNotifier{}, Logger: logger,
		},
	}, logger)
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func registerUser(t *testing.T, h http.Handler, name, profileType string) services.AuthResult {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/auth/register", "", services.RegisterInput{
		Email: name + "@example.com", Password: "password1", Name: name, Type: profileType,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res services.AuthResult
	decode(t, rec, &res)
	require.NotEmpty(t, res.Token)
	return res
}

func TestPublicRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = do(t, h, http.MethodGet, "/privacy-policy", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"route not found"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/api/profiles/me", "/api/discover", "/api/matches", "/api/conversations"} {
		rec := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := do(t, h, http.MethodGet, "/api/profiles/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	h := newTestRouter(t)
	reg := registerUser(t, h, "ana", models.ProfileTypeInfluencer)

	rec := do(t, h, http.MethodPost, "/api/auth/register", "", services.RegisterInput{
		Email: "ANA@example.com", Password: "password1", Name: "Ana", Type: models.ProfileTypeInfluencer,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/register", "", `{"email":"x@example.com","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login services.AuthResult
	decode(t, rec, &login)
	assert.Equal(t, reg.Profile.ID, login.Profile.ID)

	rec = do(t, h, http.MethodGet, "/api/profiles/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.UserProfile
	decode(t, rec, &me)
	assert.Equal(t, "ana@example.com", me.Email)

	rec = do(t, h, http.MethodPost, "/api/auth/signout", login.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/profiles/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/auth/password-reset", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMatchmakingFlow(t *testing.T) {
	h := newTestRouter(t)
	ana := registerUser(t, h, "ana", models.ProfileTypeInfluencer)
	acme := registerUser(t, h, "acme", models.ProfileTypeCompany)
	zed := registerUser(t, h, "zed", models.ProfileTypeInfluencer)

	rec := do(t, h, http.MethodPost, "/api/campaigns", ana.Token, services.CampaignInput{
		Title: "Nope", Budget: models.Budget{Min: 1, Max: 2, Currency: "USD"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/campaigns", acme.Token, services.CampaignInput{
		Title: "Spring launch", Budget: models.Budget{Min: 100, Max: 500, Currency: "usd"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var campaign models.Campaign
	decode(t, rec, &campaign)
	assert.Equal(t, "USD", campaign.Budget.Currency)

	rec = do(t, h, http.MethodGet, "/api/discover?limit=5", ana.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed []services.FeedItem
	decode(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, campaign.ID, feed[0].Campaign.ID)

	rec = do(t, h, http.MethodPost, "/api/swipes", ana.Token, services.SwipeInput{TargetID: campaign.ID, Type: models.SwipeTypeLike})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var swipe services.SwipeResult
	decode(t, rec, &swipe)
	assert.False(t, swipe.Matched)

	rec = do(t, h, http.MethodPost, "/api/swipes", acme.Token, services.SwipeInput{
		TargetID: ana.Profile.ID, Type: models.SwipeTypeLike, CampaignID: campaign.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &swipe)
	require.True(t, swipe.Matched)
	matchID := swipe.Match.ID

	rec = do(t, h, http.MethodPost, "/api/matches/"+matchID+"/messages", ana.Token, map[string]string{"content": "Hi Acme!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/matches/"+matchID+"/messages", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []models.Message
	decode(t, rec, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hi Acme!", messages[0].Content)

	rec = do(t, h, http.MethodGet, "/api/matches/"+matchID+"/messages?before=yesterday", acme.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/matches/"+matchID+"/read", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked":1}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/conversations", acme.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var conversations []models.Conversation
	decode(t, rec, &conversations)
	require.Len(t, conversations, 1)
	assert.Zero(t, conversations[0].UnreadCount)

	rec = do(t, h, http.MethodGet, "/api/matches/"+matchID, zed.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/matches/does-not-exist", ana.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/matches/"+matchID+"/status", ana.Token, map[string]string{"status": models.MatchStatusCompleted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/matches/"+matchID+"/messages", ana.Token, map[string]string{"content": "still there?"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "completed"))
}

func TestMediaRoutesDisabledWithoutBucket(t *testing.T) {
	h := newTestRouter(t)
	ana := registerUser(t, h, "ana", models.ProfileTypeInfluencer)

	rec := do(t, h, http.MethodPost, "/api/media/upload-url", ana.Token, map[string]string{"fileName": "a.png"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
