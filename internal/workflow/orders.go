package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safar/repair-orders/internal/catalog"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
	"github.com/safar/repair-orders/internal/template"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CreateOrderInput struct {
	CustomerID int64
	// Title is synthesized from the vehicle and template when empty.
	Title               string
	TemplateID          string
	VehicleGenerationID *int64
	VehicleYear         *int
	Stages              []store.NewStage
}

// CreateOrder opens an order in status pending. Stages come from the named
// service template followed by any explicit stages. Every admin is told
// about the new order.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.VehicleYear != nil && *in.VehicleYear <= 0 {
		return nil, database.Validationf("vehicle year must be positive, got %d", *in.VehicleYear)
	}

	var stages []store.NewStage
	var templateName string
	if in.TemplateID != "" {
		tmpl, ok := s.templates.Lookup(in.TemplateID)
		if !ok {
			return nil, fmt.Errorf("template %q: %w", in.TemplateID, database.ErrTemplateNotFound)
		}
		templateName = tmpl.Name
		for _, st := range tmpl.Stages {
			stages = append(stages, store.NewStage{Name: st.Name, Description: st.Description})
		}
	}
	for _, st := range in.Stages {
		if strings.TrimSpace(st.Name) == "" {
			return nil, database.Validationf("stage name is required")
		}
		stages = append(stages, st)
	}

	var order *models.Order
	err := s.mutate(ctx, func(tx *sql.Tx, outbox *[]models.Notification) error {
		title := strings.TrimSpace(in.Title)
		if in.VehicleGenerationID != nil {
			v, err := store.GetVehicle(ctx, tx, *in.VehicleGenerationID)
			if err != nil {
				return err
			}
			if title == "" {
				title = orderTitle(v, in.VehicleYear, templateName)
			}
		}
		if title == "" {
			title = templateName
		}
		if title == "" {
			return database.Validationf("title is required when no vehicle or template is given")
		}

		var err error
		order, err = store.CreateOrder(ctx, tx, store.CreateOrderRequest{
			CustomerID:          in.CustomerID,
			Title:               title,
			VehicleGenerationID: in.VehicleGenerationID,
			VehicleYear:         in.VehicleYear,
			Stages:              stages,
		})
		if err != nil {
			return err
		}

		admins, err := store.ListUserIDsByRole(ctx, tx, models.RoleAdmin)
		if err != nil {
			return err
		}
		for _, id := range admins {
			*outbox = append(*outbox, notify.NewOrder(id, order))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Int64("customer_id", order.CustomerID).
		Int("stages", len(order.Stages)).
		Msg("Order created")

	return order, nil
}

// orderTitle renders "Brand Model Generation Year - Template".
func orderTitle(v *models.Vehicle, year *int, templateName string) string {
	parts := []string{v.BrandName, v.ModelName, v.GenerationName}
	if year != nil {
		parts = append(parts, fmt.Sprint(*year))
	}
	title := strings.Join(parts, " ")
	if templateName != "" {
		title += " - " + templateName
	}
	return title
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return store.GetOrder(ctx, s.db, id)
}

func (s *Service) ListOrders(ctx context.Context, customerID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return store.ListOrdersCursor(ctx, s.db, customerID, cursor, limit)
}

// CompatibleParts lists the active parts that fit the order's vehicle.
func (s *Service) CompatibleParts(ctx context.Context, orderID int64) ([]models.Part, error) {
	order, err := store.GetOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.VehicleGenerationID == nil {
		return nil, fmt.Errorf("order %d: %w", orderID, database.ErrVehicleUnknown)
	}

	v, err := store.GetVehicle(ctx, s.db, *order.VehicleGenerationID)
	if err != nil {
		return nil, err
	}
	v.Year = order.VehicleYear

	parts, compat, err := store.ListPartCandidates(ctx, s.db, v.BrandID)
	if err != nil {
		return nil, err
	}

	return catalog.Eligible(*v, parts, compat), nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return store.GetUser(ctx, s.db, id)
}

func (s *Service) Templates() []template.ServiceTemplate {
	return s.templates.All()
}
