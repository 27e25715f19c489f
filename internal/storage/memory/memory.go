// Package memory provides an in-process implementation of storage.Backend.
// Data lives only as long as the process; it backs tests and local runs.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

// Ensure Store implements storage.Backend
var _ storage.Backend = (*Store)(nil)

type document struct {
	createdAt int64
	version   int64
	orders    []models.Order
}

// Store keeps group documents in a map guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	groups map[string]*document
}

// New creates an empty Store.
func New() *Store {
	return &Store{groups: make(map[string]*document)}
}

// ListGroups returns all groups ordered by creation time.
func (s *Store) ListGroups(ctx context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*models.Group, 0, len(s.groups))
	for id, doc := range s.groups {
		groups = append(groups, doc.group(id))
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt == groups[j].CreatedAt {
			return groups[i].ID < groups[j].ID
		}
		return groups[i].CreatedAt < groups[j].CreatedAt
	})
	return groups, nil
}

// CreateGroup stores a new group with a generated ID.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &document{createdAt: group.CreatedAt, version: 1, orders: copyOrders(group.Orders)}
	s.groups[group.ID] = doc
	group.Revision = strconv.FormatInt(doc.version, 10)
	return nil
}

// GetGroup returns a copy of the stored group.
func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.groups[groupID]
	if !ok {
		return nil, storage.ErrGroupNotFound
	}
	return doc.group(groupID), nil
}

// ReplaceOrders swaps the order list when revision matches the stored version.
func (s *Store) ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, revision string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.groups[groupID]
	if !ok {
		return "", storage.ErrGroupNotFound
	}
	if strconv.FormatInt(doc.version, 10) != revision {
		return "", storage.ErrConflict
	}
	doc.orders = copyOrders(orders)
	doc.version++
	return strconv.FormatInt(doc.version, 10), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (d *document) group(id string) *models.Group {
	return &models.Group{
		ID:        id,
		CreatedAt: d.createdAt,
		Orders:    copyOrders(d.orders),
		Revision:  strconv.FormatInt(d.version, 10),
	}
}

func copyOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		if o.Adds != nil {
			adds := make([]string, len(o.Adds))
			copy(adds, o.Adds)
			o.Adds = adds
		}
		if o.HasCheese != nil {
			v := *o.HasCheese
			o.HasCheese = &v
		}
		out[i] = o
	}
	return out
}
