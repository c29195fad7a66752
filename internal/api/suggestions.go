package api

import (
	"net/http"

	"github.com/safar/repair-orders/internal/ledger"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/workflow"
)

type suggestRequest struct {
	PartID     int64  `json:"part_id"`
	Quantity   int    `json:"quantity"`
	IsRequired bool   `json:"is_required"`
	AdminNotes string `json:"admin_notes"`
}

type respondRequest struct {
	SelectedByClient bool    `json:"selected_by_client"`
	ClientNotes      *string `json:"client_notes"`
}

type updateSuggestionRequest struct {
	Quantity   *int    `json:"quantity"`
	IsRequired *bool   `json:"is_required"`
	AdminNotes *string `json:"admin_notes"`
	Status     *string `json:"status"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request, _ *models.User) {
	stageID, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	sug, err := s.wf.Suggest(r.Context(), stageID, workflow.SuggestInput{
		PartID:     req.PartID,
		Quantity:   req.Quantity,
		IsRequired: req.IsRequired,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, sug)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request, actor *models.User) {
	stageID, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if err := s.canSeeStage(r, actor, stageID); err != nil {
		respondErr(w, r, err)
		return
	}

	list, err := s.wf.ListSuggestions(r.Context(), stageID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleTotalCost(w http.ResponseWriter, r *http.Request, actor *models.User) {
	stageID, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if err := s.canSeeStage(r, actor, stageID); err != nil {
		respondErr(w, r, err)
		return
	}

	total, err := s.wf.TotalCost(r.Context(), stageID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"stage_id":   stageID,
		"total_cost": total.StringFixed(2),
	})
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request, actor *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	sug, err := s.wf.Respond(r.Context(), id, actor.ID, workflow.ResponseInput{
		SelectedByClient: req.SelectedByClient,
		ClientNotes:      req.ClientNotes,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, sug)
}

func (s *Server) handleUpdateSuggestion(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req updateSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	sug, err := s.wf.UpdateSuggestion(r.Context(), id, ledger.Edit{
		Quantity:   req.Quantity,
		IsRequired: req.IsRequired,
		AdminNotes: req.AdminNotes,
		Status:     req.Status,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, sug)
}

func (s *Server) handleRemoveSuggestion(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if err := s.wf.RemoveSuggestion(r.Context(), id); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
