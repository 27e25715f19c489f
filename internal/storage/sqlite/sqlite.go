// Package sqlite provides a SQLite-backed implementation of the storage.Backend interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/storage"
)

// Ensure SQLiteStore implements storage.Backend
var _ storage.Backend = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Backend using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateGroup persists a new group together with any initial orders.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	// Generate IDs if not set
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, created_at, version) VALUES (?, ?, 1)",
		group.ID, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertOrders(ctx, tx, group.ID, group.Orders); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.Revision = "1"
	return nil
}

// GetGroup retrieves a group by ID, including its orders in insertion order.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, version FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.CreatedAt, &version)
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	group.Revision = strconv.FormatInt(version, 10)

	orders, err := s.loadOrders(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group.Orders = orders
	return group, nil
}

// ListGroups returns all groups, oldest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, version FROM groups ORDER BY created_at, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		var version int64
		if err := rows.Scan(&group.ID, &group.CreatedAt, &version); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		group.Revision = strconv.FormatInt(version, 10)
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	rows.Close()

	for _, group := range groups {
		if group.Orders, err = s.loadOrders(ctx, group.ID); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// ReplaceOrders overwrites the group's orders if its version still equals revision.
func (s *SQLiteStore) ReplaceOrders(ctx context.Context, groupID string, orders []models.Order, revision string) (string, error) {
	version, err := strconv.ParseInt(revision, 10, 64)
	if err != nil {
		return "", storage.ErrConflict
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE groups SET version = version + 1 WHERE id = ? AND version = ?",
		groupID, version,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrGroupNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to check group: %w", err)
		}
		return "", storage.ErrConflict
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE group_id = ?", groupID); err != nil {
		return "", fmt.Errorf("failed to delete orders: %w", err)
	}
	if err := insertOrders(ctx, tx, groupID, orders); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return strconv.FormatInt(version+1, 10), nil
}
