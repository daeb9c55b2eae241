// Package dynamotest provides an in-memory stand-in for the DynamoDB client.
// It understands the expression shapes DynamoService generates: equality on
// the partition key plus an optional comparison on the sort key, SET and
// REMOVE update expressions, and conditions built from attribute_exists,
// attribute_not_exists and simple comparisons joined by AND.
package dynamotest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type keyDef struct {
	partition string
	sort      string
}

type table struct {
	key     keyDef
	indexes map[string]keyDef
	items   map[string]map[string]types.AttributeValue
}

// Client is a concurrency-safe in-memory DynamoDB
type Client struct {
	mu     sync.Mutex
	tables map[string]*table

	// Err, when set, is returned by every call
	Err error

	// Unprocessed is the number of write requests the next BatchWriteItem
	// calls hand back as UnprocessedItems. Each call decrements it.
	Unprocessed int
	// BatchCalls counts BatchWriteItem invocations
	BatchCalls int
}

// NewClient returns an empty client; tables are created with CreateTable
func NewClient() *Client {
	return &Client{tables: map[string]*table{}}
}

// ItemCount returns the number of items stored in tableName
func (c *Client) ItemCount(tableName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

func (c *Client) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	name := aws.ToString(in.TableName)
	if _, ok := c.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table exists: " + name)}
	}
	t := &table{
		key:     parseKeySchema(in.KeySchema),
		indexes: map[string]keyDef{},
		items:   map[string]map[string]types.AttributeValue{},
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		t.indexes[aws.ToString(gsi.IndexName)] = parseKeySchema(gsi.KeySchema)
	}
	c.tables[name] = t
	return &dynamodb.CreateTableOutput{}, nil
}

func (c *Client) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item := t.items[t.itemKey(in.Key)]
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (c *Client) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.itemKey(in.Item)
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, t.items[k]); err != nil {
		return nil, err
	}
	t.items[k] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (c *Client) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	delete(t.items, t.itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (c *Client) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.itemKey(in.Key)
	existing := t.items[k]
	if err := checkCondition(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, existing); err != nil {
		return nil, err
	}

	item := copyItem(existing)
	if item == nil {
		item = copyItem(in.Key)
	}

	expr := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	setPart, removePart := expr, ""
	if i := strings.Index(expr, "REMOVE "); i >= 0 {
		setPart, removePart = strings.TrimSpace(expr[:i]), strings.TrimPrefix(expr[i:], "REMOVE ")
	}
	if (setPart == "" && removePart == "") || (setPart != "" && !strings.HasPrefix(setPart, "SET ")) {
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	if setPart != "" {
		for _, clause := range strings.Split(strings.TrimPrefix(setPart, "SET "), ",") {
			parts := strings.SplitN(clause, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("dynamotest: bad SET clause %q", clause)
			}
			name := resolveName(strings.TrimSpace(parts[0]), in.ExpressionAttributeNames)
			value, ok := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
			if !ok {
				return nil, fmt.Errorf("dynamotest: missing value for %q", parts[1])
			}
			item[name] = value
		}
	}
	if removePart != "" {
		for _, token := range strings.Split(removePart, ",") {
			delete(item, resolveName(strings.TrimSpace(token), in.ExpressionAttributeNames))
		}
	}
	t.items[k] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (c *Client) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.table(in.TableName)
	if err != nil {
		return nil, err
	}

	kd := t.key
	if in.IndexName != nil {
		idx, ok := t.indexes[aws.ToString(in.IndexName)]
		if !ok {
			return nil, fmt.Errorf("dynamotest: unknown index %q", aws.ToString(in.IndexName))
		}
		kd = idx
	}

	conditions := strings.Split(aws.ToString(in.KeyConditionExpression), " AND ")
	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		ok := true
		for _, cond := range conditions {
			if !evalComparison(cond, in.ExpressionAttributeNames, in.ExpressionAttributeValues, item) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, item)
		}
	}

	sortKey := kd.sort
	if sortKey == "" {
		sortKey = t.key.sort
	}
	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := scalar(matched[i][sortKey]), scalar(matched[j][sortKey])
		if a == b {
			a, b = t.itemKey(matched[i]), t.itemKey(matched[j])
		}
		if forward {
			return a < b
		}
		return a > b
	})

	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	out := make([]map[string]types.AttributeValue, 0, len(matched))
	for _, item := range matched {
		out = append(out, copyItem(item))
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (c *Client) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.BatchCalls++

	unprocessed := map[string][]types.WriteRequest{}
	for tableName, requests := range in.RequestItems {
		t, ok := c.tables[tableName]
		if !ok {
			return nil, &types.ResourceNotFoundException{Message: aws.String("no table " + tableName)}
		}
		if c.Unprocessed > 0 {
			n := c.Unprocessed
			if n > len(requests) {
				n = len(requests)
			}
			unprocessed[tableName] = append(unprocessed[tableName], requests[:n]...)
			requests = requests[n:]
			c.Unprocessed--
		}
		for _, req := range requests {
			switch {
			case req.DeleteRequest != nil:
				delete(t.items, t.itemKey(req.DeleteRequest.Key))
			case req.PutRequest != nil:
				t.items[t.itemKey(req.PutRequest.Item)] = copyItem(req.PutRequest.Item)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}, nil
}

func (c *Client) table(name *string) (*table, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	t, ok := c.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no table " + aws.ToString(name))}
	}
	return t, nil
}

func (t *table) itemKey(item map[string]types.AttributeValue) string {
	k := scalar(item[t.key.partition])
	if t.key.sort != "" {
		k += "\x00" + scalar(item[t.key.sort])
	}
	return k
}

func parseKeySchema(schema []types.KeySchemaElement) keyDef {
	var kd keyDef
	for _, el := range schema {
		switch el.KeyType {
		case types.KeyTypeHash:
			kd.partition = aws.ToString(el.AttributeName)
		case types.KeyTypeRange:
			kd.sort = aws.ToString(el.AttributeName)
		}
	}
	return kd
}

func checkCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, existing map[string]types.AttributeValue) error {
	if expr == nil {
		return nil
	}
	for _, part := range strings.Split(*expr, " AND ") {
		e := strings.TrimSpace(part)
		var ok bool
		switch {
		case strings.HasPrefix(e, "attribute_not_exists("):
			name := resolveName(strings.TrimSuffix(strings.TrimPrefix(e, "attribute_not_exists("), ")"), names)
			_, exists := existing[name]
			ok = !exists
		case strings.HasPrefix(e, "attribute_exists("):
			name := resolveName(strings.TrimSuffix(strings.TrimPrefix(e, "attribute_exists("), ")"), names)
			_, ok = existing[name]
		case len(strings.Fields(e)) == 3:
			ok = evalComparison(e, names, values, existing)
		default:
			return fmt.Errorf("dynamotest: unsupported condition %q", e)
		}
		if !ok {
			return &types.ConditionalCheckFailedException{Message: aws.String("condition failed: " + *expr)}
		}
	}
	return nil
}

func evalComparison(cond string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	fields := strings.Fields(cond)
	if len(fields) != 3 {
		return false
	}
	attr, ok := item[resolveName(fields[0], names)]
	if !ok {
		return false
	}
	value, ok := values[fields[2]]
	if !ok {
		return false
	}

	cmp := compare(attr, value)
	switch fields[1] {
	case "=":
		return cmp == 0
	case "<>":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func compare(a, b types.AttributeValue) int {
	an, aNum := a.(*types.AttributeValueMemberN)
	bn, bNum := b.(*types.AttributeValueMemberN)
	if aNum && bNum {
		af, _ := strconv.ParseFloat(an.Value, 64)
		bf, _ := strconv.ParseFloat(bn.Value, 64)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(scalar(a), scalar(b))
}

func resolveName(token string, names map[string]string) string {
	if strings.HasPrefix(token, "#") {
		if name, ok := names[token]; ok {
			return name
		}
	}
	return token
}

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(v.Value)
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
