package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/store"
	"github.com/safar/repair-orders/internal/workflow"
)

type createStageRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OrderIndex  *int   `json:"order_index"`
	AssignedTo  *int64 `json:"assigned_to"`
}

type updateStageRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index"`
	Status      *string `json:"status"`
	// AssignedTo is raw so an explicit null (unassign) can be told apart
	// from an absent field.
	AssignedTo json.RawMessage `json:"assigned_to"`
}

type statusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type reorderRequest struct {
	Positions []store.StagePosition `json:"positions"`
}

func (req updateStageRequest) patch() (workflow.StagePatch, error) {
	p := workflow.StagePatch{
		Name:        req.Name,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
		Status:      req.Status,
	}
	if len(req.AssignedTo) == 0 {
		return p, nil
	}

	p.SetAssignee = true
	if bytes.Equal(bytes.TrimSpace(req.AssignedTo), []byte("null")) {
		return p, nil
	}
	var id int64
	if err := json.Unmarshal(req.AssignedTo, &id); err != nil {
		return p, database.Validationf("assigned_to must be a user id or null")
	}
	p.AssignedTo = &id
	return p, nil
}

func (s *Server) handleCreateStage(w http.ResponseWriter, r *http.Request, _ *models.User) {
	orderID, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req createStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	stage, err := s.wf.CreateStage(r.Context(), orderID, store.CreateStageRequest{
		Name:        req.Name,
		Description: req.Description,
		OrderIndex:  req.OrderIndex,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, stage)
}

func (s *Server) handleReorderStages(w http.ResponseWriter, r *http.Request, _ *models.User) {
	orderID, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	if err := s.wf.ReorderStages(r.Context(), orderID, req.Positions); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStage(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	detail, err := s.wf.GetStageDetail(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, detail)
}

func (s *Server) handleUpdateStage(w http.ResponseWriter, r *http.Request, _ *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req updateStageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		respondErr(w, r, err)
		return
	}

	stage, err := s.wf.UpdateStage(r.Context(), id, patch)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, stage)
}

func (s *Server) handleStageStatus(w http.ResponseWriter, r *http.Request, actor *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	stage, err := s.wf.UpdateStageStatus(r.Context(), id, actor.ID, workflow.StatusUpdate{
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, stage)
}

func (s *Server) handleStageViewed(w http.ResponseWriter, r *http.Request, actor *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	stage, err := s.wf.MarkStageViewed(r.Context(), id, actor.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, stage)
}
