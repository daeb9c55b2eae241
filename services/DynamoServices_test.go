package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSwipes(t *testing.T, env *testEnv, userID string, n int) []map[string]types.AttributeValue {
	t.Helper()
	keys := make([]map[string]types.AttributeValue, 0, n)
	for i := 0; i < n; i++ {
		target := fmt.Sprintf("target-%02d", i)
		require.NoError(t, env.dynamo.PutItem(context.Background(), models.SwipesTable, models.Swipe{
			UserID:    userID,
			TargetID:  target,
			Type:      models.SwipeTypeLike,
			Timestamp: env.now,
		}))
		keys = append(keys, CompositeKey("userId", userID, "targetId", target))
	}
	return keys
}

func noDelay(int, error) (time.Duration, error) { return 0, nil }

func TestBatchDeleteItems_RetriesUnprocessed(t *testing.T) {
	env := newTestEnv(t)
	env.dynamo.Backoff = retry.BackoffDelayerFunc(noDelay)
	keys := seedSwipes(t, env, "user-1", 30)

	env.client.Unprocessed = 2
	require.NoError(t, env.dynamo.BatchDeleteItems(context.Background(), models.SwipesTable, keys))

	assert.Equal(t, 0, env.client.ItemCount(models.SwipesTable))
	assert.Equal(t, 4, env.client.BatchCalls, "two retries for the first batch, one call for the second")
}

func TestBatchDeleteItems_GivesUp(t *testing.T) {
	env := newTestEnv(t)
	env.dynamo.Backoff = retry.BackoffDelayerFunc(noDelay)
	env.dynamo.MaxBatchAttempts = 2
	keys := seedSwipes(t, env, "user-1", 3)

	env.client.Unprocessed = 10
	err := env.dynamo.BatchDeleteItems(context.Background(), models.SwipesTable, keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unprocessed")
	assert.Equal(t, 2, env.client.BatchCalls)
}

func TestBatchDeleteItems_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.dynamo.Backoff = retry.BackoffDelayerFunc(func(int, error) (time.Duration, error) { return time.Hour, nil })
	keys := seedSwipes(t, env, "user-1", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env.client.Unprocessed = 1
	err := env.dynamo.BatchDeleteItems(ctx, models.SwipesTable, keys)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateFields_Options(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	co := env.company(t, "acme")
	end := env.now.Add(time.Hour)
	c, err := env.campaigns.CreateCampaign(ctx, co.ID, CampaignInput{
		Title:   "Launch",
		Budget:  models.Budget{Min: 1, Max: 2, Currency: "USD"},
		EndDate: &end,
	})
	require.NoError(t, err)

	paused := map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: models.CampaignStatusPaused}}
	err = env.dynamo.UpdateFields(ctx, models.CampaignsTable, Key("id", c.ID),
		map[string]interface{}{"title": "Relaunch"}, nil,
		WithCondition("#s = :s", map[string]string{"#s": "status"}, paused))
	assert.ErrorIs(t, err, models.ErrConflict)

	var updated models.Campaign
	require.NoError(t, env.dynamo.UpdateFields(ctx, models.CampaignsTable, Key("id", c.ID),
		map[string]interface{}{"title": "Relaunch"}, &updated, WithRemove("endDate")))
	assert.Equal(t, "Relaunch", updated.Title)
	assert.Nil(t, updated.EndDate)

	err = env.dynamo.UpdateFields(ctx, models.CampaignsTable, Key("id", "missing"),
		map[string]interface{}{"title": "x"}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
