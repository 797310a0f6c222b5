package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

const (
	batchWriteChunkSize = 25
	batchGetChunkSize   = 100
	maxBatchAttempts    = 4
	batchBackoffBase    = 100 * time.Millisecond
)

// DynamoAPI is the subset of the DynamoDB client used by the adapter.
// Injecting it keeps the adapter testable without a live endpoint.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Dynamo implements Store against DynamoDB.
type Dynamo struct {
	client DynamoAPI
	logger *zap.Logger
}

var _ Store = (*Dynamo)(nil)

// NewDynamo creates a DynamoDB-backed store.
func NewDynamo(client DynamoAPI, logger *zap.Logger) *Dynamo {
	return &Dynamo{client: client, logger: logger}
}

func (d *Dynamo) Get(ctx context.Context, table string, key Key) (Item, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, appErrors.NewInternal(fmt.Sprintf("failed to get item from %s", table), err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return out.Item, nil
}

func (d *Dynamo) Put(ctx context.Context, table string, item Item, cond *ConditionSet) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}
	if cond != nil {
		b := newExprBuilder()
		expr, err := b.conditionSet(cond)
		if err != nil {
			return appErrors.NewInternal("failed to build condition", err)
		}
		input.ConditionExpression = aws.String(expr)
		input.ExpressionAttributeNames = b.names
		if len(b.values) > 0 {
			input.ExpressionAttributeValues = b.values
		}
	}
	if _, err := d.client.PutItem(ctx, input); err != nil {
		return mapWriteError(err, fmt.Sprintf("failed to put item into %s", table))
	}
	return nil
}

func (d *Dynamo) Update(ctx context.Context, table string, key Key, upd Update, cond *ConditionSet) (Item, error) {
	b := newExprBuilder()
	updateExpr, err := b.update(upd)
	if err != nil {
		return nil, appErrors.NewInternal("failed to build update", err)
	}
	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      key,
		UpdateExpression:         aws.String(updateExpr),
		ExpressionAttributeNames: b.names,
		ReturnValues:             types.ReturnValueAllNew,
	}
	if cond != nil {
		condExpr, err := b.conditionSet(cond)
		if err != nil {
			return nil, appErrors.NewInternal("failed to build condition", err)
		}
		input.ConditionExpression = aws.String(condExpr)
	}
	if len(b.values) > 0 {
		input.ExpressionAttributeValues = b.values
	}
	out, err := d.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, mapWriteError(err, fmt.Sprintf("failed to update item in %s", table))
	}
	return out.Attributes, nil
}

func (d *Dynamo) Delete(ctx context.Context, table string, key Key, cond *ConditionSet) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	}
	if cond != nil {
		b := newExprBuilder()
		expr, err := b.conditionSet(cond)
		if err != nil {
			return appErrors.NewInternal("failed to build condition", err)
		}
		input.ConditionExpression = aws.String(expr)
		input.ExpressionAttributeNames = b.names
		if len(b.values) > 0 {
			input.ExpressionAttributeValues = b.values
		}
	}
	if _, err := d.client.DeleteItem(ctx, input); err != nil {
		return mapWriteError(err, fmt.Sprintf("failed to delete item from %s", table))
	}
	return nil
}

func (d *Dynamo) Query(ctx context.Context, table string, q Query) (Page, error) {
	keyCond, err := buildKeyCondition(q.KeyConditions)
	if err != nil {
		return Page{}, appErrors.NewInternal("failed to build key condition", err)
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if len(q.Filter) > 0 {
		filter, err := buildFilter(q.Filter)
		if err != nil {
			return Page{}, appErrors.NewInternal("failed to build filter", err)
		}
		builder = builder.WithFilter(filter)
	}
	if len(q.Projection) > 0 {
		names := make([]expression.NameBuilder, len(q.Projection))
		for i, p := range q.Projection {
			names[i] = expression.Name(p)
		}
		builder = builder.WithProjection(expression.ProjectionBuilder{}.AddNames(names...))
	}
	expr, err := builder.Build()
	if err != nil {
		return Page{}, appErrors.NewInternal("failed to build query expression", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.ScanDescending),
	}
	if q.IndexName != "" {
		input.IndexName = aws.String(q.IndexName)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(q.Limit)
	}
	if len(q.ExclusiveStartKey) > 0 {
		input.ExclusiveStartKey = q.ExclusiveStartKey
	}

	out, err := d.client.Query(ctx, input)
	if err != nil {
		return Page{}, appErrors.NewInternal(fmt.Sprintf("failed to query %s", table), err)
	}
	return Page{Items: out.Items, LastEvaluatedKey: out.LastEvaluatedKey}, nil
}

func (d *Dynamo) Scan(ctx context.Context, table string) ([]Item, error) {
	var items []Item
	var startKey Key
	for {
		input := &dynamodb.ScanInput{TableName: aws.String(table)}
		if len(startKey) > 0 {
			input.ExclusiveStartKey = startKey
		}
		out, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, appErrors.NewInternal(fmt.Sprintf("failed to scan %s", table), err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (d *Dynamo) BatchWrite(ctx context.Context, table string, writes []Write) error {
	for start := 0; start < len(writes); start += batchWriteChunkSize {
		end := start + batchWriteChunkSize
		if end > len(writes) {
			end = len(writes)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, w := range writes[start:end] {
			if w.Put != nil {
				requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: w.Put}})
			} else {
				requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: w.Delete}})
			}
		}
		if err := d.writeChunk(ctx, table, requests); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dynamo) writeChunk(ctx context.Context, table string, requests []types.WriteRequest) error {
	for attempt := 1; attempt <= maxBatchAttempts; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: requests},
		})
		if err != nil {
			return appErrors.NewInternal(fmt.Sprintf("failed to batch write to %s", table), err)
		}
		unprocessed := out.UnprocessedItems[table]
		if len(unprocessed) == 0 {
			return nil
		}
		d.logger.Debug("retrying unprocessed batch items",
			zap.String("table", table),
			zap.Int("unprocessed", len(unprocessed)),
			zap.Int("attempt", attempt))
		requests = unprocessed
		if err := sleepBackoff(ctx, attempt); err != nil {
			return appErrors.NewInternal("batch write interrupted", err)
		}
	}
	return &appErrors.AppError{
		Type:    appErrors.ErrorTypeInternal,
		Code:    appErrors.CodeTooManyAttempts,
		Message: fmt.Sprintf("batch write to %s did not drain after %d attempts", table, maxBatchAttempts),
	}
}

func (d *Dynamo) BatchGet(ctx context.Context, table string, keys []Key) ([]Item, error) {
	var items []Item
	for start := 0; start < len(keys); start += batchGetChunkSize {
		end := start + batchGetChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		pending := keys[start:end]
		for attempt := 1; len(pending) > 0; attempt++ {
			if attempt > maxBatchAttempts {
				return nil, &appErrors.AppError{
					Type:    appErrors.ErrorTypeInternal,
					Code:    appErrors.CodeTooManyAttempts,
					Message: fmt.Sprintf("batch get from %s did not drain after %d attempts", table, maxBatchAttempts),
				}
			}
			out, err := d.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{table: {Keys: pending}},
			})
			if err != nil {
				return nil, appErrors.NewInternal(fmt.Sprintf("failed to batch get from %s", table), err)
			}
			items = append(items, out.Responses[table]...)
			pending = out.UnprocessedKeys[table].Keys
			if len(pending) > 0 {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, appErrors.NewInternal("batch get interrupted", err)
				}
			}
		}
	}
	return items, nil
}

func (d *Dynamo) CreateTable(ctx context.Context, schema TableSchema) error {
	input := buildCreateTableInput(schema)
	if _, err := d.client.CreateTable(ctx, input); err != nil {
		var exists *types.ResourceInUseException
		if errors.As(err, &exists) {
			return nil
		}
		return appErrors.NewInternal(fmt.Sprintf("failed to create table %s", schema.Name), err)
	}
	return d.waitForTable(ctx, schema.Name, true)
}

func (d *Dynamo) DeleteTable(ctx context.Context, table string) error {
	if _, err := d.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(table)}); err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return appErrors.NewInternal(fmt.Sprintf("failed to delete table %s", table), err)
	}
	return d.waitForTable(ctx, table, false)
}

func (d *Dynamo) waitForTable(ctx context.Context, table string, wantActive bool) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		out, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				if !wantActive {
					return nil
				}
			} else {
				return appErrors.NewInternal(fmt.Sprintf("failed to describe table %s", table), err)
			}
		} else if wantActive && out.Table.TableStatus == types.TableStatusActive {
			return nil
		}
		select {
		case <-ctx.Done():
			return appErrors.NewInternal("table wait interrupted", ctx.Err())
		case <-ticker.C:
		}
	}
}

func buildCreateTableInput(schema TableSchema) *dynamodb.CreateTableInput {
	attrTypes := map[string]AttributeType{}
	addKey := func(ks KeySchema) {
		attrTypes[ks.HashKey] = ks.HashType
		if ks.RangeKey != "" {
			attrTypes[ks.RangeKey] = ks.RangeType
		}
	}
	addKey(schema.Key)
	for _, idx := range schema.Indexes {
		addKey(idx.Key)
	}

	var defs []types.AttributeDefinition
	for name, attrType := range attrTypes {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeType(attrType),
		})
	}

	keySchema := func(ks KeySchema) []types.KeySchemaElement {
		elems := []types.KeySchemaElement{{AttributeName: aws.String(ks.HashKey), KeyType: types.KeyTypeHash}}
		if ks.RangeKey != "" {
			elems = append(elems, types.KeySchemaElement{AttributeName: aws.String(ks.RangeKey), KeyType: types.KeyTypeRange})
		}
		return elems
	}

	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(schema.Name),
		AttributeDefinitions: defs,
		KeySchema:            keySchema(schema.Key),
		BillingMode:          types.BillingModePayPerRequest,
	}
	for _, idx := range schema.Indexes {
		if idx.Global {
			input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  keySchema(idx.Key),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			})
		} else {
			input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, types.LocalSecondaryIndex{
				IndexName:  aws.String(idx.Name),
				KeySchema:  keySchema(idx.Key),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			})
		}
	}
	return input
}

func mapWriteError(err error, message string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return appErrors.NewConflict(appErrors.CodeConditionViolated, "conditional check failed")
	}
	return appErrors.NewInternal(message, err)
}

func sleepBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(batchBackoffBase << uint(attempt-1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
