package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/ledger"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
	"github.com/shopspring/decimal"
)

type SuggestInput struct {
	PartID     int64
	Quantity   int
	IsRequired bool
	AdminNotes string
}

type ResponseInput struct {
	SelectedByClient bool
	ClientNotes      *string
}

// Suggest attaches a part to a stage at the part's current price. Later
// catalog price changes do not touch the stored unit price.
func (s *Service) Suggest(ctx context.Context, stageID int64, in SuggestInput) (*models.InventorySuggestion, error) {
	if in.Quantity < 1 {
		return nil, database.Validationf("quantity must be at least 1, got %d", in.Quantity)
	}

	var created *models.InventorySuggestion
	err := s.mutate(ctx, func(tx *sql.Tx, outbox *[]models.Notification) error {
		orderID, customerID, err := store.OrderCustomerForStage(ctx, tx, stageID)
		if err != nil {
			return err
		}

		part, err := store.GetPart(ctx, tx, in.PartID)
		if err != nil {
			return err
		}
		if !part.IsActive {
			return fmt.Errorf("part %d: %w", part.ID, database.ErrPartInactive)
		}
		if part.StockQuantity < in.Quantity {
			return fmt.Errorf("part %d has %d in stock, %d requested: %w",
				part.ID, part.StockQuantity, in.Quantity, database.ErrInsufficientStock)
		}

		created, err = store.CreateSuggestion(ctx, tx, store.CreateSuggestionRequest{
			StageID:    stageID,
			PartID:     part.ID,
			Quantity:   in.Quantity,
			UnitPrice:  part.Price,
			IsRequired: in.IsRequired,
			AdminNotes: in.AdminNotes,
		})
		if err != nil {
			return err
		}

		*outbox = append(*outbox, notify.InventorySuggested(customerID, orderID, part, created))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("suggestion_id", created.ID).
		Int64("stage_id", stageID).
		Int64("part_id", created.PartID).
		Str("unit_price", created.UnitPrice.String()).
		Msg("Part suggested")

	return created, nil
}

// Respond records the order customer's answer on a suggestion.
func (s *Service) Respond(ctx context.Context, suggestionID, customerID int64, in ResponseInput) (*models.InventorySuggestion, error) {
	var saved *models.InventorySuggestion
	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		sug, err := store.LockSuggestion(ctx, tx, suggestionID)
		if err != nil {
			return err
		}

		_, owner, err := store.OrderCustomerForStage(ctx, tx, sug.StageID)
		if err != nil {
			return err
		}
		if owner != customerID {
			return database.ErrNotOrderCustomer
		}

		if err := ledger.ApplyResponse(sug, in.SelectedByClient, in.ClientNotes); err != nil {
			return err
		}

		saved, err = store.SaveSuggestion(ctx, tx, sug)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("suggestion_id", saved.ID).
		Str("status", saved.Status).
		Msg("Suggestion answered")

	return saved, nil
}

func (s *Service) UpdateSuggestion(ctx context.Context, suggestionID int64, edit ledger.Edit) (*models.InventorySuggestion, error) {
	var saved *models.InventorySuggestion
	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		sug, err := store.LockSuggestion(ctx, tx, suggestionID)
		if err != nil {
			return err
		}
		if err := ledger.ApplyEdit(sug, edit); err != nil {
			return err
		}
		saved, err = store.SaveSuggestion(ctx, tx, sug)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) RemoveSuggestion(ctx context.Context, suggestionID int64) error {
	return store.DeleteSuggestion(ctx, s.db, suggestionID)
}

func (s *Service) ListSuggestions(ctx context.Context, stageID int64) ([]models.InventorySuggestion, error) {
	var list []models.InventorySuggestion
	err := s.read(ctx, func(tx *sql.Tx) error {
		if _, err := store.GetStage(ctx, tx, stageID); err != nil {
			return err
		}
		var err error
		list, err = store.ListSuggestions(ctx, tx, stageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// TotalCost is the stage estimate: required items plus approved optional
// ones, each at its snapshotted unit price.
func (s *Service) TotalCost(ctx context.Context, stageID int64) (decimal.Decimal, error) {
	suggestions, err := s.ListSuggestions(ctx, stageID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.TotalCost(suggestions), nil
}
