package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/mmynk/grouporder/internal/models"
)

func insertOrders(ctx context.Context, tx *sql.Tx, groupID string, orders []models.Order) error {
	for i, o := range orders {
		adds := o.Adds
		if adds == nil {
			adds = []string{}
		}
		addsJSON, err := sonic.MarshalString(adds)
		if err != nil {
			return fmt.Errorf("failed to encode add-ons: %w", err)
		}

		var cheese sql.NullBool
		if o.HasCheese != nil {
			cheese = sql.NullBool{Bool: *o.HasCheese, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (group_id, position, id, name, category, size, has_cheese, sauce, adds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			groupID, i, o.ID, o.Name, o.Category, o.Size, cheese, o.Sauce, addsJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadOrders(ctx context.Context, groupID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, size, has_cheese, sauce, adds
		 FROM orders WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var (
			o        models.Order
			cheese   sql.NullBool
			addsJSON string
		)
		if err := rows.Scan(&o.ID, &o.Name, &o.Category, &o.Size, &cheese, &o.Sauce, &addsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if cheese.Valid {
			v := cheese.Bool
			o.HasCheese = &v
		}
		if err := sonic.UnmarshalString(addsJSON, &o.Adds); err != nil {
			return nil, fmt.Errorf("failed to decode add-ons: %w", err)
		}
		if o.Adds == nil {
			o.Adds = []string{}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}
