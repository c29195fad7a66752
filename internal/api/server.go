// Package api exposes the repair order workflow over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/ledger"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/store"
	"github.com/safar/repair-orders/internal/template"
	"github.com/safar/repair-orders/internal/workflow"
	"github.com/shopspring/decimal"
)

// Workflow is the set of operations the handlers call. *workflow.Service
// implements it.
type Workflow interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	Templates() []template.ServiceTemplate

	CreateOrder(ctx context.Context, in workflow.CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, customerID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
	CompatibleParts(ctx context.Context, orderID int64) ([]models.Part, error)

	CreateStage(ctx context.Context, orderID int64, req store.CreateStageRequest) (*models.Stage, error)
	UpdateStage(ctx context.Context, stageID int64, patch workflow.StagePatch) (*models.Stage, error)
	UpdateStageStatus(ctx context.Context, stageID, mechanicID int64, in workflow.StatusUpdate) (*models.Stage, error)
	MarkStageViewed(ctx context.Context, stageID, mechanicID int64) (*models.Stage, error)
	ReorderStages(ctx context.Context, orderID int64, positions []store.StagePosition) error
	GetStageDetail(ctx context.Context, stageID int64) (*workflow.StageDetail, error)
	StageCustomer(ctx context.Context, stageID int64) (int64, error)

	Suggest(ctx context.Context, stageID int64, in workflow.SuggestInput) (*models.InventorySuggestion, error)
	Respond(ctx context.Context, suggestionID, customerID int64, in workflow.ResponseInput) (*models.InventorySuggestion, error)
	UpdateSuggestion(ctx context.Context, suggestionID int64, edit ledger.Edit) (*models.InventorySuggestion, error)
	RemoveSuggestion(ctx context.Context, suggestionID int64) error
	ListSuggestions(ctx context.Context, stageID int64) ([]models.InventorySuggestion, error)
	TotalCost(ctx context.Context, stageID int64) (decimal.Decimal, error)

	ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error)
}

type Server struct {
	wf  Workflow
	log zerolog.Logger
	mux *http.ServeMux
}

func NewServer(wf Workflow, log zerolog.Logger) *Server {
	s := &Server{wf: wf, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.requestLogger(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.Handle("GET /templates", s.authed(s.handleListTemplates))

	s.mux.Handle("POST /orders", s.authed(s.handleCreateOrder))
	s.mux.Handle("GET /orders", s.authed(s.handleListOrders))
	s.mux.Handle("GET /orders/{id}", s.authed(s.handleGetOrder))
	s.mux.Handle("GET /orders/{id}/parts", s.authed(s.handleCompatibleParts, models.RoleAdmin))
	s.mux.Handle("POST /orders/{id}/stages", s.authed(s.handleCreateStage, models.RoleAdmin))
	s.mux.Handle("PUT /orders/{id}/stages/order", s.authed(s.handleReorderStages, models.RoleAdmin))

	s.mux.Handle("GET /stages/{id}", s.authed(s.handleGetStage, models.RoleAdmin, models.RoleMechanic))
	s.mux.Handle("PATCH /stages/{id}", s.authed(s.handleUpdateStage, models.RoleAdmin))
	s.mux.Handle("POST /stages/{id}/status", s.authed(s.handleStageStatus, models.RoleMechanic))
	s.mux.Handle("POST /stages/{id}/viewed", s.authed(s.handleStageViewed, models.RoleMechanic))
	s.mux.Handle("GET /stages/{id}/suggestions", s.authed(s.handleListSuggestions))
	s.mux.Handle("POST /stages/{id}/suggestions", s.authed(s.handleSuggest, models.RoleAdmin))
	s.mux.Handle("GET /stages/{id}/cost", s.authed(s.handleTotalCost))

	s.mux.Handle("PATCH /suggestions/{id}", s.authed(s.handleUpdateSuggestion, models.RoleAdmin))
	s.mux.Handle("DELETE /suggestions/{id}", s.authed(s.handleRemoveSuggestion, models.RoleAdmin))
	s.mux.Handle("POST /suggestions/{id}/respond", s.authed(s.handleRespond, models.RoleCustomer))

	s.mux.Handle("GET /notifications", s.authed(s.handleListNotifications))
	s.mux.Handle("POST /notifications/{id}/read", s.authed(s.handleMarkRead))
	s.mux.Handle("POST /notifications/read-all", s.authed(s.handleMarkAllRead))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger tags every request with an id and attaches a logger carrying
// it to the request context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := s.log.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// actorHandler receives the authenticated user resolved from X-User-ID.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor *models.User)

// authed resolves the caller and, when roles are given, requires one of
// them.
func (s *Server) authed(h actorHandler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid X-User-ID header")
			return
		}

		actor, err := s.wf.GetUser(r.Context(), id)
		if err != nil {
			if status, _ := errorStatus(err); status == http.StatusNotFound {
				respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown user")
				return
			}
			respondErr(w, r, err)
			return
		}

		if len(roles) > 0 && !hasRole(actor, roles) {
			respondError(w, r, http.StatusForbidden, "FORBIDDEN", "role "+actor.Role+" may not perform this action")
			return
		}

		h(w, r, actor)
	})
}

func hasRole(u *models.User, roles []string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// canSeeStage hides stages of other customers' orders behind
// ErrStageNotFound, like handleGetOrder does for orders. Staff see all stages.
func (s *Server) canSeeStage(r *http.Request, actor *models.User, stageID int64) error {
	if actor.Role != models.RoleCustomer {
		return nil
	}
	owner, err := s.wf.StageCustomer(r.Context(), stageID)
	if err != nil {
		return err
	}
	if owner != actor.ID {
		return database.ErrStageNotFound
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, database.Validationf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
