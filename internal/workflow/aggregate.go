package workflow

import (
	"context"
	"database/sql"

	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
)

// DeriveOrderStatus computes an order's status from its current status and
// the statuses of its stages.
//
//   - every stage done (and at least one stage): completed
//   - a completed order whose stages are no longer all done: in_progress
//   - a pending order with a stage in progress: in_progress
//   - otherwise unchanged; in particular in_progress never falls back to
//     pending, and cancelled is final
func DeriveOrderStatus(current string, stageStatuses []string) string {
	if current == models.OrderStatusCancelled {
		return current
	}

	allDone := len(stageStatuses) > 0
	anyInProgress := false
	for _, st := range stageStatuses {
		if st != models.StageStatusDone {
			allDone = false
		}
		if st == models.StageStatusInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allDone:
		return models.OrderStatusCompleted
	case current == models.OrderStatusCompleted:
		return models.OrderStatusInProgress
	case current == models.OrderStatusPending && anyInProgress:
		return models.OrderStatusInProgress
	}
	return current
}

// recomputeOrderStatus is the only writer of orders.status after creation.
// It locks the order row so concurrent stage updates on the same order are
// evaluated one after another, and queues order_completed only on the
// transition into completed.
func (s *Service) recomputeOrderStatus(ctx context.Context, tx *sql.Tx, orderID int64, outbox *[]models.Notification) (*models.Order, error) {
	order, err := store.LockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	stages, err := store.ListStages(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	statuses := make([]string, len(stages))
	for i, st := range stages {
		statuses[i] = st.Status
	}

	next := DeriveOrderStatus(order.Status, statuses)
	if next == order.Status {
		return order, nil
	}

	updated, err := store.SetOrderStatus(ctx, tx, orderID, next, s.clock())
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", orderID).
		Str("from", order.Status).
		Str("to", next).
		Msg("Order status changed")

	if next == models.OrderStatusCompleted {
		*outbox = append(*outbox, notify.OrderCompleted(updated))
	}

	return updated, nil
}
