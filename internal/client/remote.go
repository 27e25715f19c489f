// Package client talks to a grouporder server over the GroupService RPC API
// and exposes the same operations as the local group store.
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/grouporder/internal/convert"
	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/pkg/api"
)

// Remote is a group store backed by a remote server.
type Remote struct {
	rpc api.GroupServiceClient
}

// New creates a Remote for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Remote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Remote{rpc: api.NewGroupServiceClient(httpClient, baseURL, opts...)}
}

// NewWithClient wraps an existing GroupService client.
func NewWithClient(rpc api.GroupServiceClient) *Remote {
	return &Remote{rpc: rpc}
}

// CreateGroup creates an empty group on the server.
func (r *Remote) CreateGroup(ctx context.Context) (*models.Group, error) {
	resp, err := r.rpc.CreateGroup(ctx, connect.NewRequest(&api.CreateGroupRequest{}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return convert.FromAPIGroup(resp.Msg.Group), nil
}

// FetchGroup loads a group. A missing group is reported as storage.ErrGroupNotFound.
func (r *Remote) FetchGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, storage.ErrGroupNotFound
	}
	resp, err := r.rpc.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupId: groupID}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return convert.FromAPIGroup(resp.Msg.Group), nil
}

// ListGroups returns every group on the server.
func (r *Remote) ListGroups(ctx context.Context) ([]*models.Group, error) {
	resp, err := r.rpc.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	groups := make([]*models.Group, len(resp.Msg.Groups))
	for i, g := range resp.Msg.Groups {
		groups[i] = convert.FromAPIGroup(g)
	}
	return groups, nil
}

// AppendOrder appends order and returns the group's complete list.
func (r *Remote) AppendOrder(ctx context.Context, groupID string, order models.Order) ([]models.Order, error) {
	resp, err := r.rpc.AppendOrder(ctx, connect.NewRequest(&api.AppendOrderRequest{
		GroupId: groupID,
		Order:   convert.ToAPIOrder(order),
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return convert.FromAPIOrders(resp.Msg.Orders), nil
}

// ExportOrders returns the server-rendered SMS text.
func (r *Remote) ExportOrders(ctx context.Context, groupID string) (string, error) {
	resp, err := r.rpc.ExportOrders(ctx, connect.NewRequest(&api.ExportOrdersRequest{GroupId: groupID}))
	if err != nil {
		return "", fromConnectError(err)
	}
	return resp.Msg.Text, nil
}

// fromConnectError turns Connect codes back into the errors the local store
// returns, so callers handle both the same way.
func fromConnectError(err error) error {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	switch connectErr.Code() {
	case connect.CodeNotFound:
		return storage.ErrGroupNotFound
	case connect.CodeAborted:
		return errors.Join(storage.ErrConflict, err)
	case connect.CodeInvalidArgument:
		if field := connectErr.Meta().Get(api.InvalidFieldHeader); field != "" {
			f := menu.Field(field)
			return &menu.ValidationError{
				Field:   f,
				Reason:  strings.TrimPrefix(connectErr.Message(), "invalid "+field+": "),
				Message: menu.Prompt(f),
			}
		}
	}
	return err
}
