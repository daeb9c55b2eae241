package services

import (
	"context"
	"errors"
	"testing"

	"brandmatch_server/dynamotest"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateTableInput(t *testing.T) {
	var messages, matches TableDefinition
	for _, td := range TableDefinitions() {
		switch td.Name {
		case models.MessagesTable:
			messages = td
		case models.MatchesTable:
			matches = td
		}
	}

	in := messages.CreateTableInput()
	require.Len(t, in.KeySchema, 2)
	assert.Equal(t, "matchId", aws.ToString(in.KeySchema[0].AttributeName))
	assert.Equal(t, types.KeyTypeRange, in.KeySchema[1].KeyType)
	assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)

	in = matches.CreateTableInput()
	require.Len(t, in.GlobalSecondaryIndexes, 2)
	assert.Len(t, in.AttributeDefinitions, 3, "id plus one attribute per index")
	assert.Equal(t, types.ProjectionTypeAll, in.GlobalSecondaryIndexes[0].Projection.ProjectionType)
}

func TestCreateTables_Idempotent(t *testing.T) {
	client := dynamotest.NewClient()
	ds := NewDynamoService(client, zap.NewNop())

	require.NoError(t, ds.CreateTables(context.Background()))
	require.NoError(t, ds.CreateTables(context.Background()))

	client.Err = errors.New("boom")
	assert.Error(t, ds.CreateTables(context.Background()))
}
