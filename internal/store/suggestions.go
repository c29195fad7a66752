package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/shopspring/decimal"
)

type CreateSuggestionRequest struct {
	StageID    int64
	PartID     int64
	Quantity   int
	UnitPrice  decimal.Decimal
	IsRequired bool
	AdminNotes string
}

const suggestionColumns = `id, stage_id, part_id, quantity, unit_price, is_required, suggested_by_admin,
		       status, selected_by_client, admin_notes, client_notes, created_at, updated_at`

func scanSuggestion(row rowScanner) (*models.InventorySuggestion, error) {
	s := &models.InventorySuggestion{}
	err := row.Scan(
		&s.ID,
		&s.StageID,
		&s.PartID,
		&s.Quantity,
		&s.UnitPrice,
		&s.IsRequired,
		&s.SuggestedByAdmin,
		&s.Status,
		&s.SelectedByClient,
		&s.AdminNotes,
		&s.ClientNotes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func CreateSuggestion(ctx context.Context, q database.DBTX, req CreateSuggestionRequest) (*models.InventorySuggestion, error) {
	s, err := scanSuggestion(q.QueryRowContext(ctx,
		`INSERT INTO order_stage_inventory
		     (stage_id, part_id, quantity, unit_price, is_required, suggested_by_admin,
		      status, selected_by_client, admin_notes, client_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, FALSE, $7, '', NOW(), NOW())
		 RETURNING `+suggestionColumns,
		req.StageID, req.PartID, req.Quantity, req.UnitPrice, req.IsRequired,
		models.SuggestionStatusPending, req.AdminNotes))
	if err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}
	return s, nil
}

func GetSuggestion(ctx context.Context, q database.DBTX, id int64) (*models.InventorySuggestion, error) {
	s, err := scanSuggestion(q.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+`
		 FROM order_stage_inventory
		 WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return s, nil
}

func LockSuggestion(ctx context.Context, tx *sql.Tx, id int64) (*models.InventorySuggestion, error) {
	s, err := scanSuggestion(tx.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+`
		 FROM order_stage_inventory
		 WHERE id = $1
		 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("lock suggestion: %w", err)
	}
	return s, nil
}

// SaveSuggestion persists the mutable fields. unit_price is never rewritten.
// selected_by_client is derived from status here so the two cannot drift.
func SaveSuggestion(ctx context.Context, q database.DBTX, s *models.InventorySuggestion) (*models.InventorySuggestion, error) {
	saved, err := scanSuggestion(q.QueryRowContext(ctx,
		`UPDATE order_stage_inventory
		 SET quantity = $1,
		     is_required = $2,
		     status = $3::text,
		     selected_by_client = ($3::text = 'approved'),
		     admin_notes = $4,
		     client_notes = $5,
		     updated_at = NOW()
		 WHERE id = $6
		 RETURNING `+suggestionColumns,
		s.Quantity, s.IsRequired, s.Status, s.AdminNotes, s.ClientNotes, s.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("save suggestion: %w", err)
	}
	return saved, nil
}

func DeleteSuggestion(ctx context.Context, q database.DBTX, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM order_stage_inventory WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrSuggestionNotFound
	}

	return nil
}

func ListSuggestions(ctx context.Context, q database.DBTX, stageID int64) ([]models.InventorySuggestion, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+suggestionColumns+`
		 FROM order_stage_inventory
		 WHERE stage_id = $1
		 ORDER BY created_at, id`, stageID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := []models.InventorySuggestion{}
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return suggestions, nil
}

// OrderCustomerForStage returns the order and its customer for a stage.
func OrderCustomerForStage(ctx context.Context, q database.DBTX, stageID int64) (orderID, customerID int64, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT o.id, o.customer_id
		 FROM order_stages s
		 JOIN orders o ON o.id = s.order_id
		 WHERE s.id = $1`, stageID).Scan(&orderID, &customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, database.ErrStageNotFound
		}
		return 0, 0, fmt.Errorf("get stage order: %w", err)
	}
	return orderID, customerID, nil
}
