// Package api defines the grouporder.v1 GroupService wire messages and the
// Connect handler and client for them. Messages travel as JSON.
package api

// Order is the wire form of one participant's order.
type Order struct {
	Id        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Category  string   `json:"category"`
	Size      string   `json:"size,omitempty"`
	HasCheese *bool    `json:"hasCheese,omitempty"`
	Sauce     string   `json:"sauce,omitempty"`
	Adds      []string `json:"adds"`
}

// Group is the wire form of a group document.
type Group struct {
	Id        string   `json:"id"`
	CreatedAt int64    `json:"createdAt"`
	Orders    []*Order `json:"orders"`
}

type CreateGroupRequest struct{}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupId string `json:"groupId"`
}

func (x *GetGroupRequest) GetGroupId() string {
	if x != nil {
		return x.GroupId
	}
	return ""
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

// AppendOrderRequest carries a draft; Id may be empty and is then assigned
// by the server.
type AppendOrderRequest struct {
	GroupId string `json:"groupId"`
	Order   *Order `json:"order"`
}

func (x *AppendOrderRequest) GetGroupId() string {
	if x != nil {
		return x.GroupId
	}
	return ""
}

// AppendOrderResponse returns the complete list after the append.
type AppendOrderResponse struct {
	Orders []*Order `json:"orders"`
}

func (x *AppendOrderResponse) GetOrders() []*Order {
	if x != nil {
		return x.Orders
	}
	return nil
}

type ExportOrdersRequest struct {
	GroupId string `json:"groupId"`
}

func (x *ExportOrdersRequest) GetGroupId() string {
	if x != nil {
		return x.GroupId
	}
	return ""
}

type ExportOrdersResponse struct {
	Text  string   `json:"text"`
	Lines []string `json:"lines"`
}

type GetMenuRequest struct{}

// GetMenuResponse lists the catalog in display order.
type GetMenuResponse struct {
	Categories     []string `json:"categories"`
	Sizes          []string `json:"sizes"`
	Sauces         []string `json:"sauces"`
	AddOns         []string `json:"addOns"`
	SizeExempt     []string `json:"sizeExempt"`
	CheeseEligible []string `json:"cheeseEligible"`
	MaxNameLength  int      `json:"maxNameLength"`
}
