package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"brandmatch_server/dynamotest"
	"brandmatch_server/events"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type emitted struct {
	Room    string
	Event   string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *recordingNotifier) EmitToUser(userID, event string, payload interface{}) {
	n.record(UserRoom(userID), event, payload)
}

func (n *recordingNotifier) EmitToMatch(matchID, event string, payload interface{}) {
	n.record(MatchRoom(matchID), event, payload)
}

func (n *recordingNotifier) record(room, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{Room: room, Event: event, Payload: payload})
}

func (n *recordingNotifier) rooms(event string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var rooms []string
	for _, e := range n.events {
		if e.Event == event {
			rooms = append(rooms, e.Room)
		}
	}
	return rooms
}

// staleReads serves queued GetItem results before the real table, letting a
// test replay what a concurrent request saw before another write landed.
type staleReads struct {
	*dynamotest.Client

	mu    sync.Mutex
	queue map[string][]*dynamodb.GetItemOutput
}

func (s *staleReads) serve(tableName string, out *dynamodb.GetItemOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		s.queue = map[string][]*dynamodb.GetItemOutput{}
	}
	s.queue[tableName] = append(s.queue[tableName], out)
}

func (s *staleReads) GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	name := aws.ToString(in.TableName)
	if q := s.queue[name]; len(q) > 0 {
		s.queue[name] = q[1:]
		s.mu.Unlock()
		return q[0], nil
	}
	s.mu.Unlock()
	return s.Client.GetItem(ctx, in, opts...)
}

type testEnv struct {
	client   *dynamotest.Client
	stale    *staleReads
	dynamo   *DynamoService
	events   *events.RecordingPublisher
	notifier *recordingNotifier
	now      time.Time

	tokens      *TokenService
	revocations *MemoryRevocationStore
	auth        *AuthService
	profiles    *UserProfileService
	campaigns   *CampaignService
	discovery   *DiscoveryService
	matches     *MatchService
	swipes      *SwipeService
	chat        *ChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		client:   dynamotest.NewClient(),
		events:   &events.RecordingPublisher{},
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := zap.NewNop()
	clock := func() time.Time { return env.now }

	env.stale = &staleReads{Client: env.client}
	env.dynamo = NewDynamoService(env.stale, logger)
	require.NoError(t, env.dynamo.CreateTables(context.Background()))

	env.tokens = NewTokenService("test-secret", time.Hour, 10*time.Minute)
	env.tokens.Clock = clock
	env.revocations = NewMemoryRevocationStore()
	env.revocations.Clock = clock

	env.auth = &AuthService{
		Dynamo:      env.dynamo,
		Tokens:      env.tokens,
		Revocations: env.revocations,
		Events:      env.events,
		Logger:      logger,
		BcryptCost:  bcrypt.MinCost,
		ResetTTL:    time.Hour,
		Clock:       clock,
	}
	env.profiles = &UserProfileService{Dynamo: env.dynamo, Logger: logger, Clock: clock}
	env.campaigns = &CampaignService{Dynamo: env.dynamo, Profiles: env.profiles, Logger: logger, Clock: clock}
	env.discovery = &DiscoveryService{
		Dynamo:       env.dynamo,
		Profiles:     env.profiles,
		Campaigns:    env.campaigns,
		Logger:       logger,
		DefaultLimit: 10,
		MaxLimit:     50,
		Clock:        clock,
	}
	env.matches = &MatchService{
		Dynamo:    env.dynamo,
		Profiles:  env.profiles,
		Campaigns: env.campaigns,
		Events:    env.events,
		Notifier:  env.notifier,
		Logger:    logger,
		Clock:     clock,
	}
	env.swipes = &SwipeService{
		Dynamo:    env.dynamo,
		Profiles:  env.profiles,
		Campaigns: env.campaigns,
		Matches:   env.matches,
		Logger:    logger,
		Clock:     clock,
	}
	env.chat = &ChatService{
		Dynamo:   env.dynamo,
		Matches:  env.matches,
		Events:   env.events,
		Notifier: env.notifier,
		Logger:   logger,
		Clock:    clock,
	}
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) register(t *testing.T, email, name, profileType string) *models.UserProfile {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "password1",
		Name:     name,
		Type:     profileType,
	})
	require.NoError(t, err)
	return res.Profile
}

func (e *testEnv) influencer(t *testing.T, name string, followers int, engagement float64, niches ...string) *models.UserProfile {
	t.Helper()
	p := e.register(t, name+"@example.com", name, models.ProfileTypeInfluencer)
	if len(niches) > 0 {
		_, err := e.profiles.UpdateUserProfile(context.Background(), p.ID, ProfileUpdate{Niches: niches})
		require.NoError(t, err)
	}
	require.NoError(t, e.profiles.UpdateInstagramStats(context.Background(), p.ID, models.InstagramStats{
		Followers:      followers,
		EngagementRate: engagement,
	}))
	updated, err := e.profiles.GetUserProfile(context.Background(), p.ID)
	require.NoError(t, err)
	return updated
}

func (e *testEnv) company(t *testing.T, name string) *models.UserProfile {
	t.Helper()
	return e.register(t, name+"@example.com", name, models.ProfileTypeCompany)
}

func (e *testEnv) campaign(t *testing.T, companyID, title string, req models.CampaignRequirements) *models.Campaign {
	t.Helper()
	c, err := e.campaigns.CreateCampaign(context.Background(), companyID, CampaignInput{
		Title:        title,
		Requirements: req,
		Budget:       models.Budget{Min: 100, Max: 500, Currency: "usd"},
	})
	require.NoError(t, err)
	return c
}

// acceptedMatch returns an accepted match between a fresh influencer and company
func (e *testEnv) acceptedMatch(t *testing.T) (*models.Match, *models.UserProfile, *models.UserProfile) {
	t.Helper()
	ctx := context.Background()
	inf := e.influencer(t, "ana", 5000, 0.05)
	co := e.company(t, "acme")
	c := e.campaign(t, co.ID, "Spring launch", models.CampaignRequirements{})

	_, err := e.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: c.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)
	res, err := e.swipes.RecordSwipe(ctx, co.ID, SwipeInput{TargetID: inf.ID, Type: models.SwipeTypeLike, CampaignID: c.ID})
	require.NoError(t, err)
	require.True(t, res.Matched)
	return res.Match, inf, co
}
