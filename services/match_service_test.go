package services

import (
	"context"
	"testing"
	"time"

	"brandmatch_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchID_Deterministic(t *testing.T) {
	a := MatchID("inf", "co", "camp")
	assert.Equal(t, a, MatchID("inf", "co", "camp"))
	assert.NotEqual(t, a, MatchID("inf", "co", "other"))
	assert.NotEqual(t, a, MatchID("co", "inf", "camp"))
}

func TestGetMatch_Access(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, co := env.acceptedMatch(t)
	outsider := env.influencer(t, "zed", 10, 0)

	got, err := env.matches.GetMatch(ctx, match.ID, inf.ID)
	require.NoError(t, err)
	assert.Equal(t, match.ID, got.ID)

	_, err = env.matches.GetMatch(ctx, match.ID, co.ID)
	require.NoError(t, err)

	_, err = env.matches.GetMatch(ctx, match.ID, outsider.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.matches.GetMatch(ctx, "missing", inf.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetMatchWithProfile(t *testing.T) {
	env := newTestEnv(t)
	match, inf, co := env.acceptedMatch(t)

	got, err := env.matches.GetMatchWithProfile(context.Background(), match.ID, co.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MatchedProfile)
	assert.Equal(t, inf.ID, got.MatchedProfile.ID)
	require.NotNil(t, got.Campaign)
	assert.Equal(t, "Spring launch", got.Campaign.Title)
}

func TestListMatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accepted, inf, co := env.acceptedMatch(t)

	env.advance(time.Minute)
	later := env.campaign(t, co.ID, "Summer", models.CampaignRequirements{})
	_, err := env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: later.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)

	all, err := env.matches.ListMatches(ctx, inf.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, later.ID, all[0].CampaignID, "most recently updated first")
	assert.Equal(t, accepted.ID, all[1].ID)
	for _, m := range all {
		require.NotNil(t, m.MatchedProfile)
		assert.Equal(t, co.ID, m.MatchedProfile.ID)
		assert.NotNil(t, m.Campaign)
	}

	pending, err := env.matches.ListMatches(ctx, co.ID, models.MatchStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inf.ID, pending[0].MatchedProfile.ID)
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	match, inf, co := env.acceptedMatch(t)
	outsider := env.company(t, "globex")

	_, err := env.matches.UpdateStatus(ctx, match.ID, inf.ID, models.MatchStatusAccepted)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = env.matches.UpdateStatus(ctx, match.ID, outsider.ID, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, models.ErrForbidden)

	env.advance(time.Hour)
	done, err := env.matches.UpdateStatus(ctx, match.ID, co.ID, models.MatchStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, done.Status)
	assert.True(t, env.now.Equal(done.UpdatedAt))
	assert.Equal(t, models.SubjectMatchUpdated, env.events.Subjects()[len(env.events.Subjects())-1])

	_, err = env.matches.UpdateStatus(ctx, match.ID, inf.ID, models.MatchStatusRejected)
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = env.matches.UpdateStatus(ctx, match.ID, inf.ID, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUpdateStatus_PendingMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inf := env.influencer(t, "ana", 100, 0)
	co := env.company(t, "acme")
	c := env.campaign(t, co.ID, "Launch", models.CampaignRequirements{})

	res, err := env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: c.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)

	_, err = env.matches.UpdateStatus(ctx, res.Match.ID, co.ID, models.MatchStatusCompleted)
	assert.ErrorIs(t, err, models.ErrConflict, "pending matches cannot be completed")

	rejected, err := env.matches.UpdateStatus(ctx, res.Match.ID, inf.ID, models.MatchStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusRejected, rejected.Status)

	var event MatchEvent
	for _, e := range env.events.Events() {
		if e.Subject == models.SubjectMatchUpdated {
			event = e.Payload.(MatchEvent)
		}
	}
	assert.Equal(t, inf.ID, event.UpdatedBy)
	assert.Equal(t, models.MatchStatusRejected, event.Match.Status)
}
