package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "grouporder.v1.GroupService"

// Procedure paths of the GroupService RPCs.
const (
	GroupServiceCreateGroupProcedure  = "/grouporder.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure     = "/grouporder.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure   = "/grouporder.v1.GroupService/ListGroups"
	GroupServiceAppendOrderProcedure  = "/grouporder.v1.GroupService/AppendOrder"
	GroupServiceExportOrdersProcedure = "/grouporder.v1.GroupService/ExportOrders"
	GroupServiceGetMenuProcedure      = "/grouporder.v1.GroupService/GetMenu"
)

// InvalidFieldHeader names the draft field rejected by validation on
// InvalidArgument errors.
const InvalidFieldHeader = "Grouporder-Invalid-Field"

// GroupServiceHandler is implemented by the server.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AppendOrder(context.Context, *connect.Request[AppendOrderRequest]) (*connect.Response[AppendOrderResponse], error)
	ExportOrders(context.Context, *connect.Request[ExportOrdersRequest]) (*connect.Response[ExportOrdersResponse], error)
	GetMenu(context.Context, *connect.Request[GetMenuRequest]) (*connect.Response[GetMenuResponse], error)
}

// GroupServiceClient is a client for the GroupService.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AppendOrder(context.Context, *connect.Request[AppendOrderRequest]) (*connect.Response[AppendOrderResponse], error)
	ExportOrders(context.Context, *connect.Request[ExportOrdersRequest]) (*connect.Response[ExportOrdersResponse], error)
	GetMenu(context.Context, *connect.Request[GetMenuRequest]) (*connect.Response[GetMenuResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(
		GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(
		GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(
		GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAppendOrderProcedure, connect.NewUnaryHandler(
		GroupServiceAppendOrderProcedure, svc.AppendOrder, opts...))
	mux.Handle(GroupServiceExportOrdersProcedure, connect.NewUnaryHandler(
		GroupServiceExportOrdersProcedure, svc.ExportOrders, opts...))
	mux.Handle(GroupServiceGetMenuProcedure, connect.NewUnaryHandler(
		GroupServiceGetMenuProcedure, svc.GetMenu, opts...))

	return "/" + GroupServiceName + "/", mux
}

type groupServiceClient struct {
	createGroup  *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup     *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups   *connect.Client[ListGroupsRequest, ListGroupsResponse]
	appendOrder  *connect.Client[AppendOrderRequest, AppendOrderResponse]
	exportOrders *connect.Client[ExportOrdersRequest, ExportOrdersResponse]
	getMenu      *connect.Client[GetMenuRequest, GetMenuResponse]
}

// NewGroupServiceClient constructs a client for the GroupService. The baseURL
// is the server's scheme, host and optional path prefix.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &groupServiceClient{
		createGroup: connect.NewClient[CreateGroupRequest, CreateGroupResponse](
			httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup: connect.NewClient[GetGroupRequest, GetGroupResponse](
			httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups: connect.NewClient[ListGroupsRequest, ListGroupsResponse](
			httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		appendOrder: connect.NewClient[AppendOrderRequest, AppendOrderResponse](
			httpClient, baseURL+GroupServiceAppendOrderProcedure, opts...),
		exportOrders: connect.NewClient[ExportOrdersRequest, ExportOrdersResponse](
			httpClient, baseURL+GroupServiceExportOrdersProcedure, opts...),
		getMenu: connect.NewClient[GetMenuRequest, GetMenuResponse](
			httpClient, baseURL+GroupServiceGetMenuProcedure, opts...),
	}
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) AppendOrder(ctx context.Context, req *connect.Request[AppendOrderRequest]) (*connect.Response[AppendOrderResponse], error) {
	return c.appendOrder.CallUnary(ctx, req)
}

func (c *groupServiceClient) ExportOrders(ctx context.Context, req *connect.Request[ExportOrdersRequest]) (*connect.Response[ExportOrdersResponse], error) {
	return c.exportOrders.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetMenu(ctx context.Context, req *connect.Request[GetMenuRequest]) (*connect.Response[GetMenuResponse], error) {
	return c.getMenu.CallUnary(ctx, req)
}
