package notify

import (
	"fmt"

	"github.com/safar/repair-orders/internal/models"
)

func StageDone(customerID int64, stage *models.Stage) models.Notification {
	return models.Notification{
		UserID:   customerID,
		OrderID:  &stage.OrderID,
		Type:     models.NotificationStageDone,
		Title:    "Stage completed",
		Message:  fmt.Sprintf("Work stage %q on your order is done.", stage.Name),
		Metadata: map[string]any{"stage_id": stage.ID},
	}
}

func StageAssigned(mechanicID int64, stage *models.Stage) models.Notification {
	return models.Notification{
		UserID:   mechanicID,
		OrderID:  &stage.OrderID,
		Type:     models.NotificationStageAssigned,
		Title:    "New stage assigned",
		Message:  fmt.Sprintf("You have been assigned to stage %q.", stage.Name),
		Metadata: map[string]any{"stage_id": stage.ID},
	}
}

func OrderCompleted(order *models.Order) models.Notification {
	return models.Notification{
		UserID:  order.CustomerID,
		OrderID: &order.ID,
		Type:    models.NotificationOrderCompleted,
		Title:   "Order completed",
		Message: fmt.Sprintf("All work on order #%d (%s) is finished.", order.ID, order.Title),
	}
}

func InventorySuggested(customerID, orderID int64, part *models.Part, s *models.InventorySuggestion) models.Notification {
	return models.Notification{
		UserID:  customerID,
		OrderID: &orderID,
		Type:    models.NotificationInventorySuggested,
		Title:   "Parts suggested",
		Message: fmt.Sprintf("%d x %s suggested for your order at %s each.", s.Quantity, part.Name, s.UnitPrice.StringFixed(2)),
		Metadata: map[string]any{
			"stage_id":      s.StageID,
			"suggestion_id": s.ID,
			"is_required":   s.IsRequired,
		},
	}
}

func NewOrder(adminID int64, order *models.Order) models.Notification {
	return models.Notification{
		UserID:  adminID,
		OrderID: &order.ID,
		Type:    models.NotificationNewOrder,
		Title:   "New order",
		Message: fmt.Sprintf("Order #%d created: %s", order.ID, order.Title),
	}
}
