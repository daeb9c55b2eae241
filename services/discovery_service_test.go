package services

import (
	"context"
	"testing"
	"time"

	"brandmatch_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedIDs(items []FeedItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TargetID())
	}
	return ids
}

func TestFeed_InfluencerSeesActiveUnswipedCampaigns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inf := env.influencer(t, "ana", 2000, 0.03, "food")
	co := env.company(t, "acme")

	older := env.campaign(t, co.ID, "Older", models.CampaignRequirements{})
	env.advance(time.Minute)
	newer := env.campaign(t, co.ID, "Newer", models.CampaignRequirements{})
	paused := env.campaign(t, co.ID, "Paused", models.CampaignRequirements{})
	_, err := env.campaigns.SetCampaignStatus(ctx, co.ID, paused.ID, models.CampaignStatusPaused)
	require.NoError(t, err)
	swiped := env.campaign(t, co.ID, "Swiped", models.CampaignRequirements{})
	_, err = env.swipes.RecordSwipe(ctx, inf.ID, SwipeInput{TargetID: swiped.ID, Type: models.SwipeTypeDislike})
	require.NoError(t, err)

	items, err := env.discovery.Feed(ctx, inf.ID, FeedOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{newer.ID, older.ID}, feedIDs(items))
	for _, item := range items {
		assert.Equal(t, models.TargetTypeCampaign, item.TargetType)
		require.NotNil(t, item.Company)
		assert.Equal(t, co.ID, item.Company.ID)
	}
}

func TestFeed_ExcludesExpiredCampaigns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inf := env.influencer(t, "ana", 2000, 0.03)
	co := env.company(t, "acme")

	end := env.now.Add(24 * time.Hour)
	in := validCampaignInput()
	in.Requirements = models.CampaignRequirements{}
	in.EndDate = &end
	c, err := env.campaigns.CreateCampaign(ctx, co.ID, in)
	require.NoError(t, err)

	items, err := env.discovery.Feed(ctx, inf.ID, FeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, feedIDs(items))

	env.advance(48 * time.Hour)
	items, err = env.discovery.Feed(ctx, inf.ID, FeedOptions{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFeed_EligibleOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inf := env.influencer(t, "ana", 2000, 0.03, "food")
	co := env.company(t, "acme")

	fits := env.campaign(t, co.ID, "Fits", models.CampaignRequirements{MinFollowers: 1000, PreferredNiches: []string{"food"}})
	env.campaign(t, co.ID, "Too big", models.CampaignRequirements{MinFollowers: 10000})
	env.campaign(t, co.ID, "Wrong niche", models.CampaignRequirements{PreferredNiches: []string{"gaming"}})

	all, err := env.discovery.Feed(ctx, inf.ID, FeedOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	eligible, err := env.discovery.Feed(ctx, inf.ID, FeedOptions{EligibleOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{fits.ID}, feedIDs(eligible))
}

func TestFeed_CompanySeesInfluencers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	co := env.company(t, "acme")
	env.company(t, "globex")
	small := env.influencer(t, "ana", 500, 0.01)
	big := env.influencer(t, "bea", 50000, 0.05, "travel")
	inactive := env.influencer(t, "cat", 9000, 0.02)
	_, err := env.profiles.UpdateUserProfile(ctx, inactive.ID, ProfileUpdate{Status: strPtr(models.ProfileStatusInactive)})
	require.NoError(t, err)

	items, err := env.discovery.Feed(ctx, co.ID, FeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{big.ID, small.ID}, feedIDs(items), "sorted by followers, companies and inactive profiles excluded")

	c := env.campaign(t, co.ID, "Travel", models.CampaignRequirements{MinFollowers: 1000, PreferredNiches: []string{"travel"}})
	items, err = env.discovery.Feed(ctx, co.ID, FeedOptions{CampaignID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{big.ID}, feedIDs(items))

	_, err = env.swipes.RecordSwipe(ctx, co.ID, SwipeInput{TargetID: big.ID, Type: models.SwipeTypeLike})
	require.NoError(t, err)
	items, err = env.discovery.Feed(ctx, co.ID, FeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{small.ID}, feedIDs(items))
}

func TestFeed_CampaignFilterMustBeOwned(t *testing.T) {
	env := newTestEnv(t)
	acme := env.company(t, "acme")
	globex := env.company(t, "globex")
	c := env.campaign(t, globex.ID, "Theirs", models.CampaignRequirements{})

	_, err := env.discovery.Feed(context.Background(), acme.ID, FeedOptions{CampaignID: c.ID})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestFeed_Limit(t *testing.T) {
	env := newTestEnv(t)
	co := env.company(t, "acme")
	for i := 0; i < 4; i++ {
		env.influencer(t, string(rune('a'+i))+"inf", 100*(i+1), 0)
	}

	items, err := env.discovery.Feed(context.Background(), co.ID, FeedOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)

	assert.Equal(t, 10, env.discovery.limit(0))
	assert.Equal(t, 50, env.discovery.limit(500))
	assert.Equal(t, 7, env.discovery.limit(7))
}
