package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
)

func CreateBrand(ctx context.Context, q database.DBTX, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO vehicle_brands (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create brand: %w", err)
	}
	return id, nil
}

func CreateModel(ctx context.Context, q database.DBTX, brandID int64, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO vehicle_models (brand_id, name) VALUES ($1, $2) RETURNING id`,
		brandID, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create model: %w", err)
	}
	return id, nil
}

func CreateGeneration(ctx context.Context, q database.DBTX, modelID int64, name string, yearFrom, yearTo *int) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO vehicle_generations (model_id, name, year_from, year_to)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		modelID, name, yearFrom, yearTo).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create generation: %w", err)
	}
	return id, nil
}

// GetVehicle resolves a generation id to its brand, model and generation.
func GetVehicle(ctx context.Context, q database.DBTX, generationID int64) (*models.Vehicle, error) {
	v := &models.Vehicle{}

	query := `
		SELECT b.id, b.name, m.id, m.name, g.id, g.name
		FROM vehicle_generations g
		JOIN vehicle_models m ON m.id = g.model_id
		JOIN vehicle_brands b ON b.id = m.brand_id
		WHERE g.id = $1`

	err := q.QueryRowContext(ctx, query, generationID).Scan(
		&v.BrandID,
		&v.BrandName,
		&v.ModelID,
		&v.ModelName,
		&v.GenerationID,
		&v.GenerationName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}

	return v, nil
}
