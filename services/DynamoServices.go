package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"brandmatch_server/config"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoService
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type DynamoService struct {
	Client DynamoDBAPI
	Logger *zap.Logger

	// Backoff spaces out retries of unprocessed batch writes
	Backoff          retry.BackoffDelayer
	MaxBatchAttempts int
}

// NewDynamoService wraps a DynamoDB client
func NewDynamoService(client DynamoDBAPI, logger *zap.Logger) *DynamoService {
	return &DynamoService{Client: client, Logger: logger}
}

// InitializeDynamoDBClient initializes the DynamoDB client
func InitializeDynamoDBClient(ctx context.Context, cfg config.AWSConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Key builds a single-attribute string key
func Key(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// CompositeKey builds a partition + sort string key
func CompositeKey(pkName, pk, skName, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pk},
		skName: &types.AttributeValueMemberS{Value: sk},
	}
}

// PutItem marshals item and writes it to tableName
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      marshaledItem,
	})
	if err != nil {
		ds.Logger.Error("put item failed", zap.String("table", tableName), zap.Error(err))
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// PutItemIfNotExists writes item only when no item with the same partition key exists.
// Returns models.ErrConflict otherwise.
func (ds *DynamoService) PutItemIfNotExists(ctx context.Context, tableName, partitionKey string, item interface{}) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(tableName),
		Item:                     marshaledItem,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": partitionKey},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("item already exists in table '%s': %w", tableName, models.ErrConflict)
		}
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// GetItem retrieves an item and unmarshals it into out. Returns models.ErrNotFound when missing.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out interface{}) error {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	if output.Item == nil {
		return fmt.Errorf("item in table '%s': %w", tableName, models.ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(output.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from table '%s': %w", tableName, err)
	}
	return nil
}

// UpdateOption adjusts an UpdateFields call
type UpdateOption func(*updateOptions)

type updateOptions struct {
	condition string
	names     map[string]string
	values    map[string]types.AttributeValue
	remove    []string
}

// WithCondition adds expr to the item-exists check. When it fails UpdateFields
// returns models.ErrConflict.
func WithCondition(expr string, names map[string]string, values map[string]types.AttributeValue) UpdateOption {
	return func(o *updateOptions) {
		o.condition = expr
		o.names = names
		o.values = values
	}
}

// WithRemove deletes the named attributes in the same update
func WithRemove(attributes ...string) UpdateOption {
	return func(o *updateOptions) {
		o.remove = append(o.remove, attributes...)
	}
}

// UpdateFields sets the given attributes on an existing item and unmarshals the
// updated item into out (out may be nil). Returns models.ErrNotFound when the item does not exist.
func (ds *DynamoService) UpdateFields(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	fields map[string]interface{},
	out interface{},
	opts ...UpdateOption,
) error {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(key) == 0 {
		return errors.New("update failed: key cannot be empty")
	}
	if len(fields) == 0 && len(o.remove) == 0 {
		return errors.New("update failed: no fields to update")
	}

	// Sorted so the generated expression is stable
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var keyName string
	for k := range key {
		if keyName == "" || k < keyName {
			keyName = k
		}
	}

	expressionNames := map[string]string{"#key": keyName}
	expressionValues := map[string]types.AttributeValue{}
	setClauses := make([]string, 0, len(names))
	for i, name := range names {
		av, err := attributevalue.Marshal(fields[name])
		if err != nil {
			return fmt.Errorf("failed to marshal field '%s': %w", name, err)
		}
		nameToken := fmt.Sprintf("#f%d", i)
		valueToken := fmt.Sprintf(":v%d", i)
		expressionNames[nameToken] = name
		expressionValues[valueToken] = av
		setClauses = append(setClauses, nameToken+" = "+valueToken)
	}
	removeClauses := make([]string, 0, len(o.remove))
	for i, name := range o.remove {
		nameToken := fmt.Sprintf("#r%d", i)
		expressionNames[nameToken] = name
		removeClauses = append(removeClauses, nameToken)
	}

	var update []string
	if len(setClauses) > 0 {
		update = append(update, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		update = append(update, "REMOVE "+strings.Join(removeClauses, ", "))
	}

	condition := "attribute_exists(#key)"
	if o.condition != "" {
		condition += " AND " + o.condition
		for k, v := range o.names {
			expressionNames[k] = v
		}
		for k, v := range o.values {
			expressionValues[k] = v
		}
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(tableName),
		Key:                      key,
		UpdateExpression:         aws.String(strings.Join(update, " ")),
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: expressionNames,
		ReturnValues:             types.ReturnValueAllNew,
	}
	if len(expressionValues) > 0 {
		input.ExpressionAttributeValues = expressionValues
	}

	output, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if o.condition != "" {
				return fmt.Errorf("item in table '%s' changed concurrently: %w", tableName, models.ErrConflict)
			}
			return fmt.Errorf("item in table '%s': %w", tableName, models.ErrNotFound)
		}
		ds.Logger.Error("update item failed", zap.String("table", tableName), zap.Error(err))
		return fmt.Errorf("failed to update item in table '%s': %w", tableName, err)
	}

	if out == nil || output.Attributes == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(output.Attributes, out); err != nil {
		return fmt.Errorf("failed to unmarshal updated item: %w", err)
	}
	return nil
}

// DeleteItem removes an item from DynamoDB
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	_, err := ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	return nil
}

// QueryOptions tunes QueryItems
type QueryOptions struct {
	IndexName string
	// SortKeyCondition is appended to the partition key condition, e.g. "#sk < :sk"
	SortKeyCondition string
	Names            map[string]string
	Values           map[string]types.AttributeValue
	Limit            int32 // 0 = no limit
	LatestFirst      bool  // true = descending sort key order
}

// QueryItems queries items whose partition key attribute equals value and
// unmarshals them into out (a pointer to a slice). Follows LastEvaluatedKey
// until Limit items were read or the result set is exhausted.
func (ds *DynamoService) QueryItems(
	ctx context.Context,
	tableName string,
	partitionKey string,
	value string,
	opts QueryOptions,
	out interface{},
) error {
	keyCondition := "#pk = :pk"
	if opts.SortKeyCondition != "" {
		keyCondition += " AND " + opts.SortKeyCondition
	}

	expressionNames := map[string]string{"#pk": partitionKey}
	for k, v := range opts.Names {
		expressionNames[k] = v
	}
	expressionValues := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: value},
	}
	for k, v := range opts.Values {
		expressionValues[k] = v
	}

	scanIndexForward := !opts.LatestFirst
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  expressionNames,
		ExpressionAttributeValues: expressionValues,
		ScanIndexForward:          aws.Bool(scanIndexForward),
	}
	if opts.IndexName != "" {
		input.IndexName = aws.String(opts.IndexName)
	}

	var items []map[string]types.AttributeValue
	for {
		if opts.Limit > 0 {
			input.Limit = aws.Int32(opts.Limit - int32(len(items)))
		}
		output, err := ds.Client.Query(ctx, input)
		if err != nil {
			ds.Logger.Error("query failed",
				zap.String("table", tableName),
				zap.String("index", opts.IndexName),
				zap.Error(err))
			return fmt.Errorf("failed to query table '%s': %w", tableName, err)
		}
		items = append(items, output.Items...)

		if len(output.LastEvaluatedKey) == 0 || (opts.Limit > 0 && int32(len(items)) >= opts.Limit) {
			break
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("failed to unmarshal query result: %w", err)
	}
	return nil
}

// BatchDeleteItems deletes keys from tableName in batches of 25. Unprocessed
// requests are retried with exponential backoff.
func (ds *DynamoService) BatchDeleteItems(ctx context.Context, tableName string, keys []map[string]types.AttributeValue) error {
	const maxBatchSize = 25

	for i := 0; i < len(keys); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-i)
		for _, key := range keys[i:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}
		if err := ds.batchWrite(ctx, tableName, requests); err != nil {
			return err
		}
	}
	return nil
}

func (ds *DynamoService) batchWrite(ctx context.Context, tableName string, requests []types.WriteRequest) error {
	backoff := ds.Backoff
	if backoff == nil {
		backoff = retry.NewExponentialJitterBackoff(5 * time.Second)
	}
	maxAttempts := ds.MaxBatchAttempts
	if maxAttempts <= 0 {
		maxAttempts = 8
	}

	pending := map[string][]types.WriteRequest{tableName: requests}
	for attempt := 1; ; attempt++ {
		output, err := ds.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to batch write items to table '%s': %w", tableName, err)
		}
		pending = output.UnprocessedItems
		if len(pending[tableName]) == 0 {
			return nil
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("batch write to table '%s' left %d unprocessed items after %d attempts",
				tableName, len(pending[tableName]), attempt)
		}

		delay, err := backoff.BackoffDelay(attempt, nil)
		if err != nil {
			return err
		}
		ds.Logger.Warn("retrying unprocessed batch items",
			zap.String("table", tableName),
			zap.Int("unprocessed", len(pending[tableName])),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
