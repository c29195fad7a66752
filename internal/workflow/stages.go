package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/ledger"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
	"github.com/shopspring/decimal"
)

// StagePatch is an admin edit. Nil fields are left alone; SetAssignee must
// be true for AssignedTo to apply, with a nil AssignedTo meaning unassign.
type StagePatch struct {
	Name        *string
	Description *string
	OrderIndex  *int
	Status      *string
	SetAssignee bool
	AssignedTo  *int64
}

type StatusUpdate struct {
	Status  string
	Comment string
}

// StageDetail is a stage with its notes, suggestions and current estimate.
type StageDetail struct {
	Stage       *models.Stage                `json:"stage"`
	Notes       []models.StageNote           `json:"notes"`
	Suggestions []models.InventorySuggestion `json:"suggestions"`
	TotalCost   decimal.Decimal              `json:"total_cost"`
}

// applyPatch edits stage in place and reports whether the assignee changed.
// A changed assignee clears last_viewed_at so the new mechanic sees the
// stage as unviewed.
func applyPatch(stage *models.Stage, p StagePatch) (bool, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return false, database.Validationf("stage name is required")
		}
		stage.Name = name
	}
	if p.Description != nil {
		stage.Description = *p.Description
	}
	if p.OrderIndex != nil {
		if *p.OrderIndex < 0 {
			return false, database.Validationf("order index must not be negative, got %d", *p.OrderIndex)
		}
		stage.OrderIndex = *p.OrderIndex
	}
	if p.Status != nil {
		if !models.ValidStageStatus(*p.Status) {
			return false, database.Validationf("unknown stage status %q", *p.Status)
		}
		stage.Status = *p.Status
	}

	if !p.SetAssignee || sameAssignee(stage.AssignedTo, p.AssignedTo) {
		return false, nil
	}
	stage.AssignedTo = p.AssignedTo
	stage.LastViewedAt = nil
	return true, nil
}

func sameAssignee(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// checkAssignee requires a stage assignee to be an existing mechanic.
func checkAssignee(ctx context.Context, q database.DBTX, assignee *int64) error {
	if assignee == nil {
		return nil
	}
	user, err := store.GetUser(ctx, q, *assignee)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return fmt.Errorf("assignee %d: %w", *assignee, err)
		}
		return err
	}
	if user.Role != models.RoleMechanic {
		return database.Validationf("assignee %d is a %s, not a mechanic", user.ID, user.Role)
	}
	return nil
}

func enteredDone(prev, next string) bool {
	return prev != models.StageStatusDone && next == models.StageStatusDone
}

// CreateStage appends a stage to an existing order. An assignee, if given,
// is notified.
func (s *Service) CreateStage(ctx context.Context, orderID int64, req store.CreateStageRequest) (*models.Stage, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, database.Validationf("stage name is required")
	}
	if req.OrderIndex != nil && *req.OrderIndex < 0 {
		return nil, database.Validationf("order index must not be negative, got %d", *req.OrderIndex)
	}

	var stage *models.Stage
	err := s.mutate(ctx, func(tx *sql.Tx, outbox *[]models.Notification) error {
		if err := checkAssignee(ctx, tx, req.AssignedTo); err != nil {
			return err
		}

		var err error
		stage, err = store.CreateStage(ctx, tx, orderID, req)
		if err != nil {
			return err
		}
		if stage.AssignedTo != nil {
			*outbox = append(*outbox, notify.StageAssigned(*stage.AssignedTo, stage))
		}
		// A pending stage reopens a completed order.
		_, err = s.recomputeOrderStatus(ctx, tx, orderID, outbox)
		return err
	})
	if err != nil {
		return nil, err
	}

	return stage, nil
}

// UpdateStage applies an admin edit. A status change is subject to the same
// timestamp rules as a mechanic update and triggers order recomputation.
func (s *Service) UpdateStage(ctx context.Context, stageID int64, patch StagePatch) (*models.Stage, error) {
	var saved *models.Stage
	err := s.mutate(ctx, func(tx *sql.Tx, outbox *[]models.Notification) error {
		stage, err := store.LockStage(ctx, tx, stageID)
		if err != nil {
			return err
		}
		prevStatus := stage.Status

		reassigned, err := applyPatch(stage, patch)
		if err != nil {
			return err
		}
		if reassigned {
			if err := checkAssignee(ctx, tx, stage.AssignedTo); err != nil {
				return err
			}
		}

		saved, err = store.SaveStage(ctx, tx, stage, s.clock())
		if err != nil {
			return err
		}

		if reassigned && saved.AssignedTo != nil {
			*outbox = append(*outbox, notify.StageAssigned(*saved.AssignedTo, saved))
		}

		if patch.Status == nil {
			return nil
		}
		return s.afterStatusChange(ctx, tx, saved, prevStatus, outbox)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("stage_id", saved.ID).
		Str("status", saved.Status).
		Msg("Stage updated")

	return saved, nil
}

// UpdateStageStatus is the mechanic path. A stage assigned to someone else is
// refused with ErrStageClaimed; an unassigned stage is claimed by the caller.
func (s *Service) UpdateStageStatus(ctx context.Context, stageID, mechanicID int64, in StatusUpdate) (*models.Stage, error) {
	if !models.ValidStageStatus(in.Status) {
		return nil, database.Validationf("unknown stage status %q", in.Status)
	}

	var saved *models.Stage
	err := s.mutate(ctx, func(tx *sql.Tx, outbox *[]models.Notification) error {
		prev, err := store.LockStage(ctx, tx, stageID)
		if err != nil {
			return err
		}

		saved, err = store.ClaimStageStatus(ctx, tx, stageID, mechanicID, in.Status, s.clock())
		if err != nil {
			return err
		}

		if comment := strings.TrimSpace(in.Comment); comment != "" {
			if _, err := store.AddStageNote(ctx, tx, stageID, mechanicID, comment); err != nil {
				return err
			}
		}

		return s.afterStatusChange(ctx, tx, saved, prev.Status, outbox)
	})
	if err != nil {
		s.log.Debug().Err(err).
			Int64("stage_id", stageID).
			Int64("mechanic_id", mechanicID).
			Msg("Stage status update refused")
		return nil, err
	}

	s.log.Info().
		Int64("stage_id", saved.ID).
		Int64("mechanic_id", mechanicID).
		Str("status", saved.Status).
		Msg("Stage status updated")

	return saved, nil
}

func (s *Service) afterStatusChange(ctx context.Context, tx *sql.Tx, stage *models.Stage, prevStatus string, outbox *[]models.Notification) error {
	order, err := s.recomputeOrderStatus(ctx, tx, stage.OrderID, outbox)
	if err != nil {
		return err
	}
	if enteredDone(prevStatus, stage.Status) {
		*outbox = append(*outbox, notify.StageDone(order.CustomerID, stage))
	}
	return nil
}

func (s *Service) MarkStageViewed(ctx context.Context, stageID, mechanicID int64) (*models.Stage, error) {
	return store.MarkStageViewed(ctx, s.db, stageID, mechanicID, s.clock())
}

// ReorderStages writes every position or none of them.
func (s *Service) ReorderStages(ctx context.Context, orderID int64, positions []store.StagePosition) error {
	seen := make(map[int64]struct{}, len(positions))
	for _, p := range positions {
		if p.OrderIndex < 0 {
			return database.Validationf("order index must not be negative, got %d", p.OrderIndex)
		}
		if _, dup := seen[p.StageID]; dup {
			return database.Validationf("stage %d listed more than once", p.StageID)
		}
		seen[p.StageID] = struct{}{}
	}

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		return store.ReorderStages(ctx, tx, orderID, positions)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("order_id", orderID).
		Int("stages", len(positions)).
		Msg("Stages reordered")
	return nil
}

func (s *Service) GetStageDetail(ctx context.Context, stageID int64) (*StageDetail, error) {
	detail := &StageDetail{}
	err := s.read(ctx, func(tx *sql.Tx) error {
		var err error
		detail.Stage, err = store.GetStage(ctx, tx, stageID)
		if err != nil {
			return err
		}

		detail.Notes, err = store.ListStageNotes(ctx, tx, stageID)
		if err != nil {
			return err
		}

		detail.Suggestions, err = store.ListSuggestions(ctx, tx, stageID)
		return err
	})
	if err != nil {
		return nil, err
	}

	detail.TotalCost = ledger.TotalCost(detail.Suggestions)
	return detail, nil
}

// StageCustomer returns the customer of the order a stage belongs to.
func (s *Service) StageCustomer(ctx context.Context, stageID int64) (int64, error) {
	_, customerID, err := store.OrderCustomerForStage(ctx, s.db, stageID)
	return customerID, err
}
