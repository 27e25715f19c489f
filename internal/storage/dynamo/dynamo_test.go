package dynamo

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

// fakeDynamo returns canned responses and records the last update.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	item       map[string]*dynamodb.AttributeValue
	updateErr  error
	updateOut  *dynamodb.UpdateItemOutput
	lastUpdate *dynamodb.UpdateItemInput
	lastPut    *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItemWithContext(ctx aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) PutItemWithContext(ctx aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(ctx aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdate = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateOut != nil {
		return f.updateOut, nil
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func conditionFailed() error {
	return awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
}

func marshalItem(t *testing.T, item groupItem) map[string]*dynamodb.AttributeValue {
	t.Helper()
	av, err := dynamodbattribute.MarshalMap(item)
	require.NoError(t, err)
	return av
}

func TestItemRoundTripKeepsOrderFields(t *testing.T) {
	yes := true
	orders := []models.Order{
		{ID: "1", Name: "Ana", Category: "pecivo", Size: "mali", HasCheese: &yes, Sauce: "ljuti", Adds: []string{"luk"}},
		{ID: "2", Category: "vegetarijanski", Sauce: "mix"},
	}
	item := groupItem{Id: "g1", CreatedAt: 42, Version: 3, Orders: toOrderItems(orders), OrderIds: orderIDs(orders)}

	var decoded groupItem
	require.NoError(t, dynamodbattribute.UnmarshalMap(marshalItem(t, item), &decoded))
	group := decoded.group()

	assert.Equal(t, "g1", group.ID)
	assert.Equal(t, int64(42), group.CreatedAt)
	assert.Equal(t, "3", group.Revision)
	require.Len(t, group.Orders, 2)
	assert.Equal(t, orders[0], group.Orders[0])
	assert.Equal(t, []string{}, group.Orders[1].Adds)
	assert.Nil(t, group.Orders[1].HasCheese)
}

func TestOrderIDsAreSortedAndUnique(t *testing.T) {
	ids := orderIDs([]models.Order{{ID: "3"}, {ID: "1"}, {ID: "3"}})
	assert.Equal(t, []string{"1", "3"}, ids)
}

func TestCreateGroupIsConditional(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewWithClient(fake, "groups")

	group := &models.Group{}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "1", group.Revision)
	require.NotNil(t, fake.lastPut)
	assert.Equal(t, "attribute_not_exists(Id)", aws.StringValue(fake.lastPut.ConditionExpression))
}

func TestGetGroupMissingItem(t *testing.T) {
	store := NewWithClient(&fakeDynamo{}, "groups")
	_, err := store.GetGroup(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrGroupNotFound)
}

func TestAppendOrderUsesListAppend(t *testing.T) {
	result := groupItem{Id: "g1", Version: 2, Orders: []orderItem{{Id: "1", Category: "tortilja", Adds: []string{}}}}
	fake := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{Attributes: marshalItem(t, result)}}
	store := NewWithClient(fake, "groups")

	orders, err := store.AppendOrder(context.Background(), "g1", models.Order{ID: "1", Category: "tortilja"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Contains(t, aws.StringValue(fake.lastUpdate.UpdateExpression), "list_append")
	assert.Contains(t, aws.StringValue(fake.lastUpdate.ConditionExpression), "contains")
	assert.Equal(t, dynamodb.ReturnValueAllNew, aws.StringValue(fake.lastUpdate.ReturnValues))
}

func TestAppendOrderConditionFailures(t *testing.T) {
	t.Run("missing group", func(t *testing.T) {
		store := NewWithClient(&fakeDynamo{updateErr: conditionFailed()}, "groups")
		_, err := store.AppendOrder(context.Background(), "g1", models.Order{ID: "1"})
		assert.ErrorIs(t, err, storage.ErrGroupNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		fake := &fakeDynamo{updateErr: conditionFailed(), item: marshalItem(t, groupItem{Id: "g1", Version: 1})}
		store := NewWithClient(fake, "groups")
		_, err := store.AppendOrder(context.Background(), "g1", models.Order{ID: "1"})
		assert.ErrorIs(t, err, storage.ErrDuplicateOrder)
	})
}

func TestReplaceOrdersConflict(t *testing.T) {
	fake := &fakeDynamo{updateErr: conditionFailed(), item: marshalItem(t, groupItem{Id: "g1", Version: 5})}
	store := NewWithClient(fake, "groups")

	_, err := store.ReplaceOrders(context.Background(), "g1", nil, "4")
	assert.ErrorIs(t, err, storage.ErrConflict)
	assert.True(t, strings.Contains(aws.StringValue(fake.lastUpdate.UpdateExpression), "REMOVE"))
}

func TestReplaceOrdersReturnsNextRevision(t *testing.T) {
	store := NewWithClient(&fakeDynamo{}, "groups")
	rev, err := store.ReplaceOrders(context.Background(), "g1", []models.Order{{ID: "1"}}, "4")
	require.NoError(t, err)
	assert.Equal(t, "5", rev)
}
