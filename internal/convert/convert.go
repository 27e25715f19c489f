// Package convert maps between domain models and GroupService wire messages.
package convert

import (
	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/pkg/api"
)

func ToAPIOrder(o models.Order) *api.Order {
	adds := o.Adds
	if adds == nil {
		adds = []string{}
	}
	return &api.Order{
		Id:        o.ID,
		Name:      o.Name,
		Category:  o.Category,
		Size:      o.Size,
		HasCheese: o.HasCheese,
		Sauce:     o.Sauce,
		Adds:      adds,
	}
}

func FromAPIOrder(o *api.Order) models.Order {
	if o == nil {
		return models.Order{Adds: []string{}}
	}
	adds := o.Adds
	if adds == nil {
		adds = []string{}
	}
	return models.Order{
		ID:        o.Id,
		Name:      o.Name,
		Category:  o.Category,
		Size:      o.Size,
		HasCheese: o.HasCheese,
		Sauce:     o.Sauce,
		Adds:      adds,
	}
}

func ToAPIOrders(orders []models.Order) []*api.Order {
	out := make([]*api.Order, len(orders))
	for i, o := range orders {
		out[i] = ToAPIOrder(o)
	}
	return out
}

func FromAPIOrders(orders []*api.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = FromAPIOrder(o)
	}
	return out
}

// ToAPIGroup drops the revision, which never leaves the server.
func ToAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		Id:        g.ID,
		CreatedAt: g.CreatedAt,
		Orders:    ToAPIOrders(g.Orders),
	}
}

func FromAPIGroup(g *api.Group) *models.Group {
	if g == nil {
		return nil
	}
	return &models.Group{
		ID:        g.Id,
		CreatedAt: g.CreatedAt,
		Orders:    FromAPIOrders(g.Orders),
	}
}
