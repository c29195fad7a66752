package api

import (
	"net/http"
	"strconv"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/store"
	"github.com/safar/repair-orders/internal/workflow"
)

type createOrderRequest struct {
	// CustomerID is honored for admins only; customers always order for
	// themselves.
	CustomerID          int64            `json:"customer_id"`
	Title               string           `json:"title"`
	TemplateID          string           `json:"template_id"`
	VehicleGenerationID *int64           `json:"vehicle_generation_id"`
	VehicleYear         *int             `json:"vehicle_year"`
	Stages              []stageInputJSON `json:"stages"`
}

type stageInputJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request, _ *models.User) {
	respondJSON(w, r, http.StatusOK, s.wf.Templates())
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request, actor *models.User) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	customerID := actor.ID
	switch actor.Role {
	case models.RoleAdmin:
		if req.CustomerID != 0 {
			customerID = req.CustomerID
		}
	case models.RoleCustomer:
	default:
		respondErr(w, r, database.ErrForbidden)
		return
	}

	in := workflow.CreateOrderInput{
		CustomerID:          customerID,
		Title:               req.Title,
		TemplateID:          req.TemplateID,
		VehicleGenerationID: req.VehicleGenerationID,
		VehicleYear:         req.VehicleYear,
	}
	for _, st := range req.Stages {
		in.Stages = append(in.Stages, store.NewStage{Name: st.Name, Description: st.Description})
	}

	order, err := s.wf.CreateOrder(r.Context(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request, actor *models.User) {
	customerID := actor.ID
	if actor.Role != models.RoleCustomer {
		id, err := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
		if err != nil {
			respondErr(w, r, database.Validationf("customer_id query parameter is required"))
			return
		}
		customerID = id
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := s.wf.ListOrders(r.Context(), customerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, actor *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	order, err := s.wf.GetOrder(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if actor.Role == models.RoleCustomer && order.CustomerID != actor.ID {
		respondErr(w, r, database.ErrOrderNotFound)
		return
	}

	respondJSON(w, r, http.StatusOK, order)
}

func (s *Server) handleCompatibleParts(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	parts, err := s.wf.CompatibleParts(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, parts)
}
