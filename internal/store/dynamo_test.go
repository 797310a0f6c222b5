package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// fakeDynamoAPI overrides only the calls a test exercises; anything else
// panics through the embedded nil interface.
type fakeDynamoAPI struct {
	DynamoAPI
	putItem        func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem     func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	batchWriteItem func(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
}

func (f *fakeDynamoAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.putItem(params)
}

func (f *fakeDynamoAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.updateItem(params)
}

func (f *fakeDynamoAPI) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return f.batchWriteItem(params)
}

func TestDynamo_Put_MapsConditionalFailureToConflict(t *testing.T) {
	fake := &fakeDynamoAPI{
		putItem: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	d := NewDynamo(fake, zap.NewNop())

	err := d.Put(context.Background(), "t", Item{"Pk": S("a")}, &ConditionSet{All: []Condition{AttrNotExists("Pk")}})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))
}

func TestDynamo_Update_BuildsExpression(t *testing.T) {
	var captured *dynamodb.UpdateItemInput
	fake := &fakeDynamoAPI{
		updateItem: func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
			captured = in
			return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"Pk": S("a")}}, nil
		},
	}
	d := NewDynamo(fake, zap.NewNop())

	item, err := d.Update(context.Background(), "t", Key{"Pk": S("a")}, Update{
		Set: map[string]any{"Name": "x"},
		Add: map[string]any{"Count": int64(1)},
	}, &ConditionSet{All: []Condition{AttrExists("Pk")}})
	require.NoError(t, err)
	require.NotNil(t, item)

	require.NotNil(t, captured)
	assert.Equal(t, "SET #n0 = :v0 ADD #n1 :v1", *captured.UpdateExpression)
	assert.Equal(t, "attribute_exists(#n2)", *captured.ConditionExpression)
	assert.Equal(t, types.ReturnValueAllNew, captured.ReturnValues)
	assert.Equal(t, "Name", captured.ExpressionAttributeNames["#n0"])
	assert.Equal(t, "1", captured.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberN).Value)
}

func TestDynamo_BatchWrite_RetriesUnprocessed(t *testing.T) {
	calls := 0
	fake := &fakeDynamoAPI{
		batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			calls++
			requests := in.RequestItems["t"]
			if calls == 1 {
				// leave the last request unprocessed once
				return &dynamodb.BatchWriteItemOutput{
					UnprocessedItems: map[string][]types.WriteRequest{"t": requests[len(requests)-1:]},
				}, nil
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	d := NewDynamo(fake, zap.NewNop())

	writes := []Write{
		{Put: Item{"Pk": S("a")}},
		{Put: Item{"Pk": S("b")}},
	}
	err := d.BatchWrite(context.Background(), "t", writes)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDynamo_BatchWrite_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	fake := &fakeDynamoAPI{
		batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			calls++
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]types.WriteRequest{"t": in.RequestItems["t"]},
			}, nil
		},
	}
	d := NewDynamo(fake, zap.NewNop())

	err := d.BatchWrite(context.Background(), "t", []Write{{Put: Item{"Pk": S("a")}}})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.CodeTooManyAttempts))
	assert.Equal(t, maxBatchAttempts, calls)
}

func TestDynamo_BatchWrite_ChunksLargeBatches(t *testing.T) {
	var sizes []int
	fake := &fakeDynamoAPI{
		batchWriteItem: func(in *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
			sizes = append(sizes, len(in.RequestItems["t"]))
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}
	d := NewDynamo(fake, zap.NewNop())

	writes := make([]Write, 60)
	for i := range writes {
		writes[i] = Write{Delete: Key{"Pk": S("a")}}
	}
	require.NoError(t, d.BatchWrite(context.Background(), "t", writes))
	assert.Equal(t, []int{25, 25, 10}, sizes)
}
