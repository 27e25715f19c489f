// Package azuretables provides an Azure Table Storage implementation of
// storage.Backend. Each group is one entity; the entity ETag is the revision
// and writes are conditioned on it with If-Match.
//
// The order list is stored as JSON split across the string properties
// Orders, Orders1, Orders2 and so on, since a single string property holds at
// most 64 KiB. The entity itself is limited to 1 MiB, which caps a group at
// maxChunks chunks (roughly two thousand orders); beyond that writes fail
// with storage.ErrGroupTooLarge.
package azuretables

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

// Ensure Store implements storage.Backend
var _ storage.Backend = (*Store)(nil)

const (
	// partitionKey holds every group; lookups are always by RowKey.
	partitionKey = "groups"

	ordersProperty      = "Orders"
	orderChunksProperty = "OrderChunks"
	// maxChunkBytes keeps a chunk under 64 KiB even when every UTF-8 byte
	// becomes two bytes of UTF-16 on the service side.
	maxChunkBytes = 32000
	// maxChunks keeps the entity under the 1 MiB entity limit.
	maxChunks = 15
)

// tableClient is the subset of *aztables.Client used by Store.
type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Store implements storage.Backend on an Azure table.
type Store struct {
	table tableClient
}

type groupEntity struct {
	aztables.Entity
	CreatedAt   string `json:"CreatedAt"`
	OrderChunks int    `json:"OrderChunks"`
}

// New creates a Store from a storage account connection string and table name.
func New(connStr, table string) (*Store, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}
	return &Store{table: svc.NewClient(table)}, nil
}

// ListGroups pages through the partition and returns groups oldest first.
func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	filter := "PartitionKey eq '" + partitionKey + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var groups []*models.Group
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list groups: %w", err)
		}
		for _, e := range resp.Entities {
			group, err := decodeEntity(e)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt == groups[j].CreatedAt {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt < groups[j].CreatedAt
	})
	return groups, nil
}

// CreateGroup adds a new entity; an existing RowKey is an error.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	payload, err := encodeEntity(group.ID, group.CreatedAt, group.Orders)
	if err != nil {
		return err
	}
	resp, err := s.table.AddEntity(ctx, payload, nil)
	if err != nil {
		return fmt.Errorf("failed to add group entity: %w", err)
	}
	group.Revision = string(resp.ETag)
	return nil
}

// GetGroup reads the entity and reports its ETag as the revision.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	resp, err := s.table.GetEntity(ctx, partitionKey, groupID, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, storage.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group entity: %w", err)
	}
	group, err := decodeEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	group.Revision = string(resp.ETag)
	return group, nil
}

// ReplaceOrders replaces the entity if its ETag still equals revision.
func (s *Store) ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, revision string) (string, error) {
	current, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	payload, err := encodeEntity(groupID, current.CreatedAt, orders)
	if err != nil {
		return "", err
	}
	etag := azcore.ETag(revision)
	resp, err := s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		switch statusCode(err) {
		case http.StatusPreconditionFailed:
			return "", storage.ErrConflict
		case http.StatusNotFound:
			return "", storage.ErrGroupNotFound
		}
		return "", fmt.Errorf("failed to update group entity: %w", err)
	}
	return string(resp.ETag), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// encodeEntity builds the write payload. Timestamp is server-managed and
// never sent.
func encodeEntity(id string, createdAt int64, orders []models.Order) ([]byte, error) {
	if orders == nil {
		orders = []models.Order{}
	}
	ordersJSON, err := sonic.MarshalString(orders)
	if err != nil {
		return nil, fmt.Errorf("failed to encode orders: %w", err)
	}
	chunks := splitChunks(ordersJSON, maxChunkBytes)
	if len(chunks) > maxChunks {
		return nil, fmt.Errorf("%w: %d orders", storage.ErrGroupTooLarge, len(orders))
	}

	props := map[string]any{
		"PartitionKey":         partitionKey,
		"RowKey":               id,
		"CreatedAt":            strconv.FormatInt(createdAt, 10),
		"CreatedAt@odata.type": "Edm.Int64",
		orderChunksProperty:    len(chunks),
	}
	for i, chunk := range chunks {
		props[chunkProperty(i)] = chunk
	}
	payload, err := sonic.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode group entity: %w", err)
	}
	return payload, nil
}

func decodeEntity(data []byte) (*models.Group, error) {
	var ent groupEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return nil, fmt.Errorf("failed to decode group entity: %w", err)
	}
	createdAt, err := strconv.ParseInt(ent.CreatedAt, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode group created time: %w", err)
	}
	var props map[string]any
	if err := sonic.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("failed to decode group entity: %w", err)
	}

	// Entities written before chunking carry a single Orders property.
	n := max(ent.OrderChunks, 1)
	var ordersJSON strings.Builder
	for i := 0; i < n; i++ {
		v, ok := props[chunkProperty(i)]
		if !ok && i == 0 {
			break
		}
		chunk, isString := v.(string)
		if !ok || !isString {
			return nil, fmt.Errorf("failed to decode orders: chunk %d of %d missing", i+1, n)
		}
		ordersJSON.WriteString(chunk)
	}

	orders := []models.Order{}
	if ordersJSON.Len() > 0 {
		if err := sonic.UnmarshalString(ordersJSON.String(), &orders); err != nil {
			return nil, fmt.Errorf("failed to decode orders: %w", err)
		}
	}
	for i := range orders {
		if orders[i].Adds == nil {
			orders[i].Adds = []string{}
		}
	}
	return &models.Group{ID: ent.RowKey, CreatedAt: createdAt, Orders: orders}, nil
}

func chunkProperty(i int) string {
	if i == 0 {
		return ordersProperty
	}
	return ordersProperty + strconv.Itoa(i)
}

// splitChunks cuts s into pieces of at most size bytes without splitting a rune.
func splitChunks(s string, size int) []string {
	var chunks []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
