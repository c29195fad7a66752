// Package ledger holds the cost and response rules for parts suggested on a
// stage.
package ledger

import (
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/shopspring/decimal"
)

// Counted reports whether a suggestion contributes to the stage estimate:
// required items always do, optional ones only once approved.
func Counted(s models.InventorySuggestion) bool {
	return s.IsRequired || s.Status == models.SuggestionStatusApproved
}

func LineTotal(s models.InventorySuggestion) decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// TotalCost sums unit price times quantity over the counted suggestions.
func TotalCost(suggestions []models.InventorySuggestion) decimal.Decimal {
	total := decimal.Zero
	for _, s := range suggestions {
		if Counted(s) {
			total = total.Add(LineTotal(s))
		}
	}
	return total
}

// ApplyResponse records a customer's answer on s. Declining a required
// suggestion is refused.
func ApplyResponse(s *models.InventorySuggestion, selected bool, clientNotes *string) error {
	if !selected && s.IsRequired {
		return database.ErrRequiredNotRejectable
	}

	if selected {
		s.Status = models.SuggestionStatusApproved
	} else {
		s.Status = models.SuggestionStatusRejected
	}
	s.SelectedByClient = selected
	if clientNotes != nil {
		s.ClientNotes = *clientNotes
	}
	return nil
}

type Edit struct {
	Quantity   *int
	IsRequired *bool
	AdminNotes *string
	Status     *string
}

// ApplyEdit applies an admin edit. The unit price snapshot is left alone.
func ApplyEdit(s *models.InventorySuggestion, e Edit) error {
	if e.Quantity != nil {
		if *e.Quantity < 1 {
			return database.Validationf("quantity must be at least 1, got %d", *e.Quantity)
		}
		s.Quantity = *e.Quantity
	}
	if e.Status != nil {
		if !models.ValidSuggestionStatus(*e.Status) {
			return database.Validationf("unknown suggestion status %q", *e.Status)
		}
		s.Status = *e.Status
		s.SelectedByClient = *e.Status == models.SuggestionStatusApproved
	}
	if e.IsRequired != nil {
		s.IsRequired = *e.IsRequired
	}
	if e.AdminNotes != nil {
		s.AdminNotes = *e.AdminNotes
	}
	return nil
}
