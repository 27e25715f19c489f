package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/mmynk/grouporder/internal/metrics"
	"github.com/mmynk/grouporder/internal/models"
)

const (
	// DefaultAppendAttempts bounds the optimistic-concurrency loop of AppendOrder.
	DefaultAppendAttempts = 5
	// DefaultRetryDelay is the first pause after a conflict. It doubles per
	// attempt up to 16 times its initial value, with jitter.
	DefaultRetryDelay = 5 * time.Millisecond
)

// GroupStore is the group document adapter used by services and sessions.
// It turns the backend's conditional writes into a lossless append.
type GroupStore struct {
	backend     Backend
	maxAttempts int
	retryDelay  time.Duration
}

// Option configures a GroupStore.
type Option func(*GroupStore)

// WithAppendAttempts sets how many times AppendOrder retries after a conflict.
func WithAppendAttempts(n int) Option {
	return func(s *GroupStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the initial pause between conflicting attempts.
// Zero retries immediately.
func WithRetryDelay(d time.Duration) Option {
	return func(s *GroupStore) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// NewGroupStore creates a GroupStore on top of the given backend.
func NewGroupStore(backend Backend, opts ...Option) *GroupStore {
	s := &GroupStore{backend: backend, maxAttempts: DefaultAppendAttempts, retryDelay: DefaultRetryDelay}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListGroups returns all groups.
func (s *GroupStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.backend.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// CreateGroup creates an empty group and returns it with its new ID.
func (s *GroupStore) CreateGroup(ctx context.Context) (*models.Group, error) {
	group := &models.Group{Orders: []models.Order{}}
	if err := s.backend.CreateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	metrics.GroupsCreated.Inc()
	return group, nil
}

// FetchGroup returns the group document.
// Returns an error wrapping ErrGroupNotFound when the group does not exist.
func (s *GroupStore) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, ErrGroupNotFound
	}
	group, err := s.backend.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get group %s: %w", groupID, err)
	}
	if group.Orders == nil {
		group.Orders = []models.Order{}
	}
	return group, nil
}

// AppendOrder adds order to the end of the group's list and returns the
// resulting list.
//
// Backends with an atomic append primitive are used directly. For the others
// the list is read together with its revision and written back conditionally;
// a conflicting concurrent append causes a re-read and another attempt, so no
// order is ever overwritten.
func (s *GroupStore) AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error) {
	if groupID == "" {
		return nil, ErrGroupNotFound
	}
	if order.ID == "" {
		order.ID = NewOrderID()
	}
	if order.Adds == nil {
		order.Adds = []string{}
	}

	if appender, ok := s.backend.(AtomicAppender); ok {
		return s.appendAtomic(ctx, appender, groupID, order)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		group, err := s.FetchGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}

		order.ID = uniqueOrderID(order.ID, group.OrderIDs())
		orders := make([]models.Order, 0, len(group.Orders)+1)
		orders = append(orders, group.Orders...)
		orders = append(orders, order)

		if _, err := s.backend.ReplaceOrders(ctx, groupID, orders, group.Revision); err != nil {
			if errors.Is(err, ErrConflict) {
				metrics.AppendConflicts.Inc()
				slog.Debug("Append conflict, retrying",
					"group_id", groupID,
					"attempt", attempt,
				)
				if attempt == s.maxAttempts {
					break
				}
				if err := sleep(ctx, backoff(s.retryDelay, attempt)); err != nil {
					return nil, err
				}
				continue
			}
			if errors.Is(err, ErrGroupNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to write orders: %w", err)
		}

		metrics.OrdersAppended.Inc()
		return orders, nil
	}

	return nil, fmt.Errorf("failed to append order to group %s after %d attempts: %w", groupID, s.maxAttempts, ErrConflict)
}

func (s *GroupStore) appendAtomic(ctx context.Context, appender AtomicAppender, groupID string, order models.Order) ([]models.Order, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		orders, err := appender.AppendOrder(ctx, groupID, order)
		if err == nil {
			metrics.OrdersAppended.Inc()
			return orders, nil
		}
		if !errors.Is(err, ErrDuplicateOrder) {
			if errors.Is(err, ErrGroupNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to append order: %w", err)
		}
		order.ID = nextOrderID(order.ID)
	}
	return nil, fmt.Errorf("failed to append order to group %s after %d attempts: %w", groupID, s.maxAttempts, ErrDuplicateOrder)
}

// backoff returns the pause after the given failed attempt: initial doubled
// per attempt, capped at 16x initial, then jittered into [d/2, d).
func backoff(initial time.Duration, attempt int) time.Duration {
	if initial <= 0 {
		return 0
	}
	d := float64(initial) * math.Pow(2, float64(attempt-1))
	if limit := float64(16 * initial); d > limit {
		d = limit
	}
	return time.Duration(d/2 + rand.Float64()*d/2)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close releases the backend.
func (s *GroupStore) Close() error {
	return s.backend.Close()
}
