package azuretables

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

type storedEntity struct {
	etag    int
	payload []byte
}

// fakeTable keeps entities in memory and enforces If-Match like the service.
type fakeTable struct {
	mu       sync.Mutex
	entities map[string]storedEntity
	nextTag  int
}

func newFakeTable() *fakeTable {
	return &fakeTable{entities: make(map[string]storedEntity)}
}

func (f *fakeTable) tag() azcore.ETag {
	f.nextTag++
	return azcore.ETag(`W/"` + strconv.Itoa(f.nextTag) + `"`)
}

func rowKey(t testing.TB, payload []byte) string {
	var ent struct {
		RowKey string `json:"RowKey"`
	}
	require.NoError(t, sonic.Unmarshal(payload, &ent), "decode payload")
	return ent.RowKey
}

type fakeClient struct {
	t *testing.T
	*fakeTable
}

func (f fakeClient) AddEntity(ctx context.Context, entity []byte, _ *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rowKey(f.t, entity)
	if _, ok := f.entities[key]; ok {
		return aztables.AddEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusConflict}
	}
	etag := f.tag()
	f.entities[key] = storedEntity{etag: f.nextTag, payload: entity}
	return aztables.AddEntityResponse{ETag: etag}, nil
}

func (f fakeClient) GetEntity(ctx context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ent, ok := f.entities[rk]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	return aztables.GetEntityResponse{
		ETag:  azcore.ETag(`W/"` + strconv.Itoa(ent.etag) + `"`),
		Value: ent.payload,
	}, nil
}

func (f fakeClient) UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rowKey(f.t, entity)
	ent, ok := f.entities[key]
	if !ok {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
	}
	current := azcore.ETag(`W/"` + strconv.Itoa(ent.etag) + `"`)
	if options != nil && options.IfMatch != nil && *options.IfMatch != azcore.ETagAny && *options.IfMatch != current {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}
	}
	etag := f.tag()
	f.entities[key] = storedEntity{etag: f.nextTag, payload: entity}
	return aztables.UpdateEntityResponse{ETag: etag}, nil
}

func (f fakeClient) NewListEntitiesPager(_ *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	f.mu.Lock()
	var page [][]byte
	for _, ent := range f.entities {
		page = append(page, ent.payload)
	}
	f.mu.Unlock()
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return false },
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			return aztables.ListEntitiesResponse{Entities: page}, nil
		},
	})
}

func newTestStore(t *testing.T) *Store {
	return &Store{table: fakeClient{t: t, fakeTable: newFakeTable()}}
}

func TestEntityEncoding(t *testing.T) {
	yes := true
	orders := []models.Order{{ID: "1", Name: "Ana", Category: "pecivo", Size: "veliki", HasCheese: &yes, Sauce: "mix", Adds: []string{"luk"}}}
	payload, err := encodeEntity("g1", 1700000000123, orders)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, sonic.Unmarshal(payload, &raw))
	assert.Equal(t, "groups", raw["PartitionKey"])
	assert.Equal(t, "Edm.Int64", raw["CreatedAt@odata.type"])

	group, err := decodeEntity(payload)
	require.NoError(t, err)
	assert.Equal(t, "g1", group.ID)
	assert.Equal(t, int64(1700000000123), group.CreatedAt)
	assert.Equal(t, orders, group.Orders)
}

func TestStoreRevisionsFollowETags(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	group := &models.Group{}
	require.NoError(t, store.CreateGroup(ctx, group))
	assert.NotEmpty(t, group.Revision)

	fetched, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.Revision, fetched.Revision)
	assert.Empty(t, fetched.Orders)

	rev, err := store.ReplaceOrders(ctx, group.ID, []models.Order{{ID: "1", Category: "tortilja", Adds: []string{}}}, fetched.Revision)
	require.NoError(t, err)
	assert.NotEqual(t, fetched.Revision, rev)

	_, err = store.ReplaceOrders(ctx, group.ID, nil, fetched.Revision)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStoreMissingGroup(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetGroup(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrGroupNotFound)

	_, err = store.ReplaceOrders(context.Background(), "missing", nil, `W/"1"`)
	assert.ErrorIs(t, err, storage.ErrGroupNotFound)
}

func TestGroupStoreOverAzureTables(t *testing.T) {
	ctx := context.Background()
	store := storage.NewGroupStore(newTestStore(t))

	group, err := store.CreateGroup(ctx)
	require.NoError(t, err)
	for _, name := range []string{"Ana", "Ivo"} {
		_, err := store.AppendOrder(ctx, group.ID, models.Order{Name: name, Category: "vegetarijanski", Sauce: "blagi"})
		require.NoError(t, err)
	}

	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Orders, 2)
}

func bigOrders(n int) []models.Order {
	orders := make([]models.Order, n)
	for i := range orders {
		orders[i] = models.Order{
			ID:       strconv.Itoa(i + 1),
			Name:     "Đurđica Šćepanović-Žužić",
			Category: "tortilja mix salata",
			Sauce:    "ljuti (malo manje)",
			Adds:     []string{"zelena salata", "rajčica"},
		}
	}
	return orders
}

func TestLargeGroupSpansSeveralProperties(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	group := &models.Group{}
	require.NoError(t, store.CreateGroup(ctx, group))

	orders := bigOrders(600)
	_, err := store.ReplaceOrders(ctx, group.ID, orders, group.Revision)
	require.NoError(t, err)

	payload, err := encodeEntity(group.ID, group.CreatedAt, orders)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, sonic.Unmarshal(payload, &raw))
	chunks := int(raw["OrderChunks"].(float64))
	assert.Greater(t, chunks, 1)
	for i := 0; i < chunks; i++ {
		chunk, ok := raw[chunkProperty(i)].(string)
		require.True(t, ok, "chunk %d", i)
		assert.LessOrEqual(t, len(chunk), maxChunkBytes)
		assert.True(t, utf8.ValidString(chunk))
	}

	fetched, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, orders, fetched.Orders)
}

func TestGroupTooLarge(t *testing.T) {
	_, err := encodeEntity("g1", 1, bigOrders(4000))
	assert.ErrorIs(t, err, storage.ErrGroupTooLarge)
}

func TestDecodeSinglePropertyEntity(t *testing.T) {
	payload := []byte(`{"PartitionKey":"groups","RowKey":"g1","CreatedAt":"5","Orders":"[{\"id\":\"1\",\"category\":\"pecivo\",\"adds\":null}]"}`)
	group, err := decodeEntity(payload)
	require.NoError(t, err)
	require.Len(t, group.Orders, 1)
	assert.Equal(t, "pecivo", group.Orders[0].Category)
	assert.Equal(t, []string{}, group.Orders[0].Adds)
}

func TestDecodeMissingChunk(t *testing.T) {
	payload := []byte(`{"PartitionKey":"groups","RowKey":"g1","CreatedAt":"5","OrderChunks":2,"Orders":"[]"}`)
	_, err := decodeEntity(payload)
	assert.Error(t, err)
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{""}, splitChunks("", 4))
	assert.Equal(t, []string{"abcd"}, splitChunks("abcd", 4))
	assert.Equal(t, []string{"a", "č", "b"}, splitChunks("ačb", 2))
}
