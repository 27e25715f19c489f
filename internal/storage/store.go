// Package storage provides abstractions for persistent group storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/grouporder/internal/models"
)

var (
	// ErrGroupNotFound is returned when no document exists for a group ID.
	// It is an expected outcome, distinct from transport or backend failures.
	ErrGroupNotFound = errors.New("group not found")

	// ErrConflict is returned by a conditional write whose revision is stale.
	ErrConflict = errors.New("concurrent modification")

	// ErrDuplicateOrder is returned by an AtomicAppender when the group already
	// holds an order with the same ID.
	ErrDuplicateOrder = errors.New("duplicate order id")

	// ErrGroupTooLarge is returned by backends with a document size limit
	// when the order list no longer fits.
	ErrGroupTooLarge = errors.New("group exceeds the storage size limit")
)

// Backend defines the document operations a storage implementation provides.
// This abstraction allows swapping backends (SQLite, DynamoDB, Azure Tables,
// in-memory) without changing the service layer.
type Backend interface {
	// ListGroups returns every stored group.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// CreateGroup persists a new group.
	// The group.ID, CreatedAt and Revision fields will be populated by the backend.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group, including its current Revision.
	// Returns ErrGroupNotFound if no such group exists.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ReplaceOrders overwrites the group's order list if the stored revision
	// still equals revision, and returns the new revision.
	// Returns ErrConflict when the revision is stale and ErrGroupNotFound when
	// the group does not exist.
	ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, revision string) (string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// AtomicAppender is implemented by backends that can append to the order
// list in a single server-side operation. GroupStore prefers it over the
// read-modify-write loop.
type AtomicAppender interface {
	// AppendOrder appends order and returns the complete resulting list.
	// Returns ErrGroupNotFound if no such group exists and ErrDuplicateOrder
	// if the order ID is already taken.
	AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error)
}
