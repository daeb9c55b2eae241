package services

import (
	"context"
	"errors"
	"fmt"

	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// TableDefinition describes a table's key schema and GSIs (all keys are strings)
type TableDefinition struct {
	Name         string
	PartitionKey string
	SortKey      string
	Indexes      []IndexDefinition
}

// IndexDefinition describes a GSI projecting all attributes
type IndexDefinition struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// TableDefinitions returns every table the server uses
func TableDefinitions() []TableDefinition {
	return []TableDefinition{
		{
			Name:         models.UserProfilesTable,
			PartitionKey: "id",
			Indexes: []IndexDefinition{
				{Name: models.ProfileTypeIndex, PartitionKey: "type"},
			},
		},
		{Name: models.CredentialsTable, PartitionKey: "email"},
		{Name: models.PasswordResetsTable, PartitionKey: "token"},
		{Name: models.SocialAccountsTable, PartitionKey: "userId"},
		{
			Name:         models.CampaignsTable,
			PartitionKey: "id",
			Indexes: []IndexDefinition{
				{Name: models.CampaignCompanyIndex, PartitionKey: "companyId"},
				{Name: models.CampaignStatusIndex, PartitionKey: "status"},
			},
		},
		{Name: models.SwipesTable, PartitionKey: "userId", SortKey: "targetId"},
		{
			Name:         models.MatchesTable,
			PartitionKey: "id",
			Indexes: []IndexDefinition{
				{Name: models.MatchInfluencerIndex, PartitionKey: "influencerId"},
				{Name: models.MatchCompanyIndex, PartitionKey: "companyId"},
			},
		},
		{Name: models.MessagesTable, PartitionKey: "matchId", SortKey: "sortKey"},
	}
}

// CreateTableInput converts the definition into an on-demand CreateTable request
func (td TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	attributes := map[string]struct{}{}
	var definitions []types.AttributeDefinition
	addAttribute := func(name string) {
		if name == "" {
			return
		}
		if _, ok := attributes[name]; ok {
			return
		}
		attributes[name] = struct{}{}
		definitions = append(definitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	addAttribute(td.PartitionKey)
	addAttribute(td.SortKey)

	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(td.Name),
		KeySchema:   keySchema(td.PartitionKey, td.SortKey),
		BillingMode: types.BillingModePayPerRequest,
	}

	for _, idx := range td.Indexes {
		addAttribute(idx.PartitionKey)
		addAttribute(idx.SortKey)
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.PartitionKey, idx.SortKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	input.AttributeDefinitions = definitions
	return input
}

func keySchema(partitionKey, sortKey string) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(partitionKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange})
	}
	return schema
}

// CreateTables creates every table, skipping the ones that already exist
func (ds *DynamoService) CreateTables(ctx context.Context) error {
	for _, td := range TableDefinitions() {
		_, err := ds.Client.CreateTable(ctx, td.CreateTableInput())
		if err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				ds.Logger.Info("table already exists", zap.String("table", td.Name))
				continue
			}
			return fmt.Errorf("failed to create table '%s': %w", td.Name, err)
		}
		ds.Logger.Info("table created", zap.String("table", td.Name))
	}
	return nil
}
