package dynamo

import (
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/mmynk/grouporder/internal/models"
)

// groupItem is the table row for one group. OrderIds mirrors the IDs in
// Orders so appends can be conditioned on the ID being unused.
type groupItem struct {
	Id        string      `dynamodbav:"Id"`
	CreatedAt int64       `dynamodbav:"CreatedAt"`
	Version   int64       `dynamodbav:"Version"`
	Orders    []orderItem `dynamodbav:"Orders"`
	OrderIds  []string    `dynamodbav:"OrderIds,stringset,omitempty"`
}

type orderItem struct {
	Id        string   `dynamodbav:"Id"`
	Name      string   `dynamodbav:"Name,omitempty"`
	Category  string   `dynamodbav:"Category"`
	Size      string   `dynamodbav:"Size,omitempty"`
	HasCheese *bool    `dynamodbav:"HasCheese,omitempty"`
	Sauce     string   `dynamodbav:"Sauce,omitempty"`
	Adds      []string `dynamodbav:"Adds"`
}

// stringSet marshals as a DynamoDB string set (SS) rather than a list.
type stringSet []string

func (s stringSet) MarshalDynamoDBAttributeValue(av *dynamodb.AttributeValue) error {
	av.SS = aws.StringSlice(s)
	return nil
}

func toOrderItem(o models.Order) orderItem {
	adds := o.Adds
	if adds == nil {
		adds = []string{}
	}
	return orderItem{
		Id:        o.ID,
		Name:      o.Name,
		Category:  o.Category,
		Size:      o.Size,
		HasCheese: o.HasCheese,
		Sauce:     o.Sauce,
		Adds:      adds,
	}
}

func (i orderItem) order() models.Order {
	adds := i.Adds
	if adds == nil {
		adds = []string{}
	}
	return models.Order{
		ID:        i.Id,
		Name:      i.Name,
		Category:  i.Category,
		Size:      i.Size,
		HasCheese: i.HasCheese,
		Sauce:     i.Sauce,
		Adds:      adds,
	}
}

func toOrderItems(orders []models.Order) []orderItem {
	items := make([]orderItem, len(orders))
	for i, o := range orders {
		items[i] = toOrderItem(o)
	}
	return items
}

func orderIDs(orders []models.Order) []string {
	seen := make(map[string]bool, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if !seen[o.ID] {
			seen[o.ID] = true
			ids = append(ids, o.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (g groupItem) group() *models.Group {
	orders := make([]models.Order, len(g.Orders))
	for i, item := range g.Orders {
		orders[i] = item.order()
	}
	return &models.Group{
		ID:        g.Id,
		CreatedAt: g.CreatedAt,
		Orders:    orders,
		Revision:  revision(g.Version),
	}
}
