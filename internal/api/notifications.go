package api

import (
	"net/http"
	"strconv"

	"github.com/safar/repair-orders/internal/models"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, actor *models.User) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.wf.ListNotifications(r.Context(), actor.ID, limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, actor *models.User) {
	id, err := pathID(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	if err := s.wf.MarkNotificationRead(r.Context(), actor.ID, id); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, actor *models.User) {
	n, err := s.wf.MarkAllNotificationsRead(r.Context(), actor.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]int64{"updated": n})
}
