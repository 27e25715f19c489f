// Package dynamo provides a DynamoDB-backed implementation of storage.Backend.
//
// Each group is a single item whose Orders attribute is a list. Appends use
// list_append in one conditional UpdateItem, so concurrent submissions never
// overwrite each other.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"
	"github.com/google/uuid"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

// Ensure Store implements storage.Backend and storage.AtomicAppender
var (
	_ storage.Backend        = (*Store)(nil)
	_ storage.AtomicAppender = (*Store)(nil)
)

// Config selects the table and, for local development, a custom endpoint.
type Config struct {
	Table    string
	Region   string
	Endpoint string
}

// Store implements storage.Backend on a DynamoDB table keyed by Id.
type Store struct {
	db    dynamodbiface.DynamoDBAPI
	table string
}

// New creates a Store using a fresh AWS session.
func New(cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb table name is required")
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return NewWithClient(dynamodb.New(sess), cfg.Table), nil
}

// NewWithClient creates a Store on an existing DynamoDB client.
func NewWithClient(db dynamodbiface.DynamoDBAPI, table string) *Store {
	return &Store{db: db, table: table}
}

// ListGroups scans the table and returns groups oldest first.
func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	var groups []*models.Group
	var decodeErr error
	err := s.db.ScanPagesWithContext(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		var items []groupItem
		if err := dynamodbattribute.UnmarshalListOfMaps(page.Items, &items); err != nil {
			decodeErr = err
			return false
		}
		for _, item := range items {
			groups = append(groups, item.group())
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan groups: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", decodeErr)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt == groups[j].CreatedAt {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt < groups[j].CreatedAt
	})
	return groups, nil
}

// CreateGroup puts a new item, refusing to overwrite an existing ID.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	item := groupItem{
		Id:        group.ID,
		CreatedAt: group.CreatedAt,
		Version:   1,
		Orders:    toOrderItems(group.Orders),
		OrderIds:  orderIDs(group.Orders),
	}
	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to encode group: %w", err)
	}

	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(Id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put group: %w", err)
	}
	group.Revision = revision(item.Version)
	return nil
}

// GetGroup reads the item with a strongly consistent read.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	item, found, err := s.getItem(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrGroupNotFound
	}
	return item.group(), nil
}

// ReplaceOrders overwrites the order list when Version still equals revision.
func (s *Store) ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, rev string) (string, error) {
	version, err := strconv.ParseInt(rev, 10, 64)
	if err != nil {
		return "", storage.ErrConflict
	}

	update := expression.Set(expression.Name("Orders"), expression.Value(toOrderItems(orders))).
		Set(expression.Name("Version"), expression.Value(version+1))
	if ids := orderIDs(orders); len(ids) > 0 {
		update = update.Set(expression.Name("OrderIds"), expression.Value(stringSet(ids)))
	} else {
		update = update.Remove(expression.Name("OrderIds"))
	}
	cond := expression.AttributeExists(expression.Name("Id")).
		And(expression.Name("Version").Equal(expression.Value(version)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return "", fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = s.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       stringKey("Id", groupID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return "", s.explainConditionFailure(ctx, groupID, storage.ErrConflict)
		}
		return "", fmt.Errorf("failed to update orders: %w", err)
	}
	return revision(version + 1), nil
}

// AppendOrder appends to the Orders list server-side.
func (s *Store) AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error) {
	update := expression.Set(
		expression.Name("Orders"),
		expression.ListAppend(expression.Name("Orders"), expression.Value([]orderItem{toOrderItem(order)})),
	).
		Set(expression.Name("Version"), expression.Name("Version").Plus(expression.Value(1))).
		Add(expression.Name("OrderIds"), expression.Value(stringSet{order.ID}))
	cond := expression.AttributeExists(expression.Name("Id")).
		And(expression.Not(expression.Contains(expression.Name("OrderIds"), order.ID)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build append expression: %w", err)
	}

	out, err := s.db.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       stringKey("Id", groupID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              aws.String(dynamodb.ReturnValueAllNew),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, s.explainConditionFailure(ctx, groupID, storage.ErrDuplicateOrder)
		}
		return nil, fmt.Errorf("failed to append order: %w", err)
	}

	var item groupItem
	if err := dynamodbattribute.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to decode group: %w", err)
	}
	return item.group().Orders, nil
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

func (s *Store) getItem(ctx context.Context, groupID string) (groupItem, bool, error) {
	out, err := s.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            stringKey("Id", groupID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return groupItem{}, false, fmt.Errorf("failed to get group: %w", err)
	}
	if len(out.Item) == 0 {
		return groupItem{}, false, nil
	}
	var item groupItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return groupItem{}, false, fmt.Errorf("failed to decode group: %w", err)
	}
	return item, true, nil
}

// explainConditionFailure tells a missing group apart from the other
// reason a conditional write was rejected.
func (s *Store) explainConditionFailure(ctx context.Context, groupID string, otherwise error) error {
	_, found, err := s.getItem(ctx, groupID)
	if err != nil {
		return err
	}
	if !found {
		return storage.ErrGroupNotFound
	}
	return otherwise
}

func stringKey(name, value string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		name: {S: aws.String(value)},
	}
}

func isConditionalCheckFailed(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
	}
	return false
}

func revision(version int64) string {
	return strconv.FormatInt(version, 10)
}
