package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
)

type CreateOrderRequest struct {
	CustomerID          int64
	Title               string
	VehicleGenerationID *int64
	VehicleYear         *int
	Stages              []NewStage
}

// NewStage is a stage copied onto an order at creation time.
type NewStage struct {
	Name        string
	Description string
}

type rowScanner interface {
	Scan(dest ...any) error
}

const orderColumns = `id, customer_id, title, status, vehicle_generation_id, vehicle_year,
		       created_at, updated_at, completed_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var generationID sql.NullInt64
	var year sql.NullInt32
	var completedAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.Title,
		&order.Status,
		&generationID,
		&year,
		&order.CreatedAt,
		&order.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	order.VehicleGenerationID = int64Ptr(generationID)
	order.VehicleYear = intPtr(year)
	order.CompletedAt = timePtr(completedAt)
	return order, nil
}

// CreateOrder inserts the order with status pending and its templated stages
// numbered 0..n-1. It must run inside a transaction so a failing stage insert
// leaves no half-created order behind.
func CreateOrder(ctx context.Context, tx *sql.Tx, req CreateOrderRequest) (*models.Order, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
		req.CustomerID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check customer exists: %w", err)
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, title, status, vehicle_generation_id, vehicle_year, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING `+orderColumns,
		req.CustomerID, req.Title, models.OrderStatusPending, req.VehicleGenerationID, req.VehicleYear))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for i, s := range req.Stages {
		stage, err := insertStage(ctx, tx, order.ID, s.Name, s.Description, i, nil)
		if err != nil {
			return nil, err
		}
		order.Stages = append(order.Stages, *stage)
	}

	return order, nil
}

func GetOrder(ctx context.Context, q database.DBTX, id int64) (*models.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	stages, err := ListStages(ctx, q, id)
	if err != nil {
		return nil, err
	}
	order.Stages = stages

	return order, nil
}

// LockOrder reads the order row with FOR UPDATE, serializing status
// recomputation for the same order.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE id = $1
		 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

// SetOrderStatus is reserved for the order status recomputation; nothing
// else writes orders.status after creation. completed_at is stamped with now
// on completion and cleared otherwise.
func SetOrderStatus(ctx context.Context, tx *sql.Tx, id int64, status string, now time.Time) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1::text,
		     completed_at = CASE WHEN $1::text = 'completed' THEN $2::timestamptz ELSE NULL END,
		     updated_at = $2::timestamptz
		 WHERE id = $3
		 RETURNING `+orderColumns,
		status, now, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("set order status: %w", err)
	}

	return order, nil
}

func ListOrdersCursor(ctx context.Context, q database.DBTX, customerID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, database.Validationf("decode cursor: %v", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
