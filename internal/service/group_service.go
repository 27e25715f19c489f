package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/grouporder/internal/convert"
	"github.com/mmynk/grouporder/internal/export"
	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/metrics"
	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/pkg/api"
)

// GroupStore is the storage the service depends on. *storage.GroupStore
// implements it.
type GroupStore interface {
	ListGroups(ctx context.Context) ([]*models.Group, error)
	CreateGroup(ctx context.Context) (*models.Group, error)
	FetchGroup(ctx context.Context, groupID string) (*models.Group, error)
	AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error)
}

// Ensure GroupService implements the Connect handler interface
var _ api.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store GroupStore
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store GroupStore) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new, empty group.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	slog.Info("CreateGroup request received")

	group, err := s.store.CreateGroup(ctx)
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID)

	return connect.NewResponse(&api.CreateGroupResponse{
		Group: convert.ToAPIGroup(group),
	}), nil
}

// GetGroup retrieves a group and its orders by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupId)

	group, err := s.store.FetchGroup(ctx, req.Msg.GroupId)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "orders_count", len(group.Orders))

	return connect.NewResponse(&api.GetGroupResponse{
		Group: convert.ToAPIGroup(group),
	}), nil
}

// ListGroups retrieves all groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	slog.Info("ListGroups request received")

	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	apiGroups := make([]*api.Group, len(groups))
	for i, group := range groups {
		apiGroups[i] = convert.ToAPIGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))

	return connect.NewResponse(&api.ListGroupsResponse{
		Groups: apiGroups,
	}), nil
}

// AppendOrder validates a draft order and appends it to the group's list.
func (s *GroupService) AppendOrder(ctx context.Context, req *connect.Request[api.AppendOrderRequest]) (*connect.Response[api.AppendOrderResponse], error) {
	slog.Info("AppendOrder request received", "group_id", req.Msg.GroupId)

	var id string
	if req.Msg.Order != nil {
		id = req.Msg.Order.Id
	}
	draft := menu.DraftFromOrder(convert.FromAPIOrder(req.Msg.Order))
	order, err := draft.Order(id)
	if err != nil {
		slog.Warn("AppendOrder rejected", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	orders, err := s.store.AppendOrder(ctx, req.Msg.GroupId, order)
	if err != nil {
		slog.Error("AppendOrder failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Order appended", "group_id", req.Msg.GroupId, "orders_count", len(orders))

	return connect.NewResponse(&api.AppendOrderResponse{
		Orders: convert.ToAPIOrders(orders),
	}), nil
}

// ExportOrders renders the group's orders as the numbered SMS text.
func (s *GroupService) ExportOrders(ctx context.Context, req *connect.Request[api.ExportOrdersRequest]) (*connect.Response[api.ExportOrdersResponse], error) {
	slog.Info("ExportOrders request received", "group_id", req.Msg.GroupId)

	group, err := s.store.FetchGroup(ctx, req.Msg.GroupId)
	if err != nil {
		slog.Error("ExportOrders failed", "group_id", req.Msg.GroupId, "error", err)
		return nil, toConnectError(err)
	}

	lines := export.Lines(group.Orders)
	return connect.NewResponse(&api.ExportOrdersResponse{
		Text:  export.Format(group.Orders),
		Lines: lines,
	}), nil
}

// GetMenu returns the catalog the order form is built from.
func (s *GroupService) GetMenu(ctx context.Context, req *connect.Request[api.GetMenuRequest]) (*connect.Response[api.GetMenuResponse], error) {
	return connect.NewResponse(&api.GetMenuResponse{
		Categories:     menu.Categories(),
		Sizes:          menu.Sizes(),
		Sauces:         menu.Sauces(),
		AddOns:         menu.AddOns(),
		SizeExempt:     menu.SizeExempt(),
		CheeseEligible: menu.CheeseEligible(),
		MaxNameLength:  menu.MaxNameLength,
	}), nil
}

// toConnectError maps domain errors onto Connect codes. Validation errors
// carry the offending field in response metadata.
func toConnectError(err error) *connect.Error {
	var validationErr *menu.ValidationError
	switch {
	case errors.As(err, &validationErr):
		metrics.ValidationFailures.WithLabelValues(string(validationErr.Field)).Inc()
		connectErr := connect.NewError(connect.CodeInvalidArgument, err)
		connectErr.Meta().Set(api.InvalidFieldHeader, string(validationErr.Field))
		return connectErr
	case errors.Is(err, storage.ErrGroupNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrDuplicateOrder):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrGroupTooLarge):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
