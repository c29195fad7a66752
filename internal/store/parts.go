package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/shopspring/decimal"
)

type CreatePartRequest struct {
	SKU         string
	Name        string
	Unit        string
	Price       decimal.Decimal
	Stock       int
	IsUniversal bool
}

const partColumns = `id, sku, name, unit, price, stock_quantity, is_active, is_universal, created_at, updated_at`

func scanPart(row rowScanner) (*models.Part, error) {
	part := &models.Part{}
	err := row.Scan(
		&part.ID,
		&part.SKU,
		&part.Name,
		&part.Unit,
		&part.Price,
		&part.StockQuantity,
		&part.IsActive,
		&part.IsUniversal,
		&part.CreatedAt,
		&part.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return part, nil
}

func CreatePart(ctx context.Context, q database.DBTX, req CreatePartRequest) (*models.Part, error) {
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	part, err := scanPart(q.QueryRowContext(ctx,
		`INSERT INTO parts (sku, name, unit, price, stock_quantity, is_active, is_universal, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW(), NOW())
		 RETURNING `+partColumns,
		req.SKU, req.Name, unit, req.Price, req.Stock, req.IsUniversal))
	if err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}

	return part, nil
}

func GetPart(ctx context.Context, q database.DBTX, id int64) (*models.Part, error) {
	part, err := scanPart(q.QueryRowContext(ctx,
		`SELECT `+partColumns+`
		 FROM parts
		 WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPartNotFound
		}
		return nil, fmt.Errorf("get part: %w", err)
	}

	return part, nil
}

// UpdatePartPrice changes the catalog price. Suggestions already made keep
// their own unit_price.
func UpdatePartPrice(ctx context.Context, q database.DBTX, id int64, price decimal.Decimal) error {
	result, err := q.ExecContext(ctx,
		`UPDATE parts
		 SET price = $1, updated_at = NOW()
		 WHERE id = $2`,
		price, id)
	if err != nil {
		return fmt.Errorf("update part price: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPartNotFound
	}

	return nil
}

func SetPartActive(ctx context.Context, q database.DBTX, id int64, active bool) error {
	result, err := q.ExecContext(ctx,
		`UPDATE parts SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id)
	if err != nil {
		return fmt.Errorf("set part active: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPartNotFound
	}

	return nil
}

func AddPartCompatibility(ctx context.Context, q database.DBTX, c models.PartCompatibility) (*models.PartCompatibility, error) {
	err := q.QueryRowContext(ctx,
		`INSERT INTO part_compatibility (part_id, brand_id, model_id, generation_id, year_from, year_to)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		c.PartID, c.BrandID, c.ModelID, c.GenerationID, c.YearFrom, c.YearTo).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("add part compatibility: %w", err)
	}

	return &c, nil
}

// ListPartCandidates returns active parts that are universal or carry at
// least one compatibility row for the brand, plus those rows. Tier matching
// happens in catalog.Eligible.
func ListPartCandidates(ctx context.Context, q database.DBTX, brandID int64) ([]models.Part, []models.PartCompatibility, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+partColumns+`
		 FROM parts p
		 WHERE p.is_active
		   AND (p.is_universal OR EXISTS (
		         SELECT 1 FROM part_compatibility c
		         WHERE c.part_id = p.id AND c.brand_id = $1))
		 ORDER BY p.name, p.id`, brandID)
	if err != nil {
		return nil, nil, fmt.Errorf("list part candidates: %w", err)
	}
	defer rows.Close()

	var parts []models.Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, *part)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}

	compatRows, err := q.QueryContext(ctx,
		`SELECT id, part_id, brand_id, model_id, generation_id, year_from, year_to
		 FROM part_compatibility
		 WHERE brand_id = $1`, brandID)
	if err != nil {
		return nil, nil, fmt.Errorf("list part compatibility: %w", err)
	}
	defer compatRows.Close()

	var compat []models.PartCompatibility
	for compatRows.Next() {
		var c models.PartCompatibility
		var modelID, generationID sql.NullInt64
		var yearFrom, yearTo sql.NullInt32
		if err := compatRows.Scan(&c.ID, &c.PartID, &c.BrandID, &modelID, &generationID, &yearFrom, &yearTo); err != nil {
			return nil, nil, fmt.Errorf("scan part compatibility: %w", err)
		}
		c.ModelID = int64Ptr(modelID)
		c.GenerationID = int64Ptr(generationID)
		c.YearFrom = intPtr(yearFrom)
		c.YearTo = intPtr(yearTo)
		compat = append(compat, c)
	}
	if err := compatRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows error: %w", err)
	}

	return parts, compat, nil
}
