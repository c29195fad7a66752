package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	RoleCustomer = "customer"
	RoleMechanic = "mechanic"
	RoleAdmin    = "admin"
)

type Order struct {
	ID                  int64      `json:"id"`
	CustomerID          int64      `json:"customer_id"`
	Title               string     `json:"title"`
	Status              string     `json:"status"`
	VehicleGenerationID *int64     `json:"vehicle_generation_id,omitempty"`
	VehicleYear         *int       `json:"vehicle_year,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Stages              []Stage    `json:"stages,omitempty"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

type Stage struct {
	ID           int64      `json:"id"`
	OrderID      int64      `json:"order_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	OrderIndex   int        `json:"order_index"`
	AssignedTo   *int64     `json:"assigned_to,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const (
	StageStatusPending    = "pending"
	StageStatusInProgress = "in_progress"
	StageStatusDone       = "done"
	StageStatusBlocked    = "blocked"
)

func ValidStageStatus(status string) bool {
	switch status {
	case StageStatusPending, StageStatusInProgress, StageStatusDone, StageStatusBlocked:
		return true
	}
	return false
}

// StageNote is a free-text comment left on a stage, usually alongside a
// status update.
type StageNote struct {
	ID        int64     `json:"id"`
	StageID   int64     `json:"stage_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Part struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	IsUniversal   bool            `json:"is_universal"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PartCompatibility restricts a part to a brand, optionally narrowed to a
// model and then a generation. Year bounds only apply to generation rows;
// a nil bound is open.
type PartCompatibility struct {
	ID           int64  `json:"id"`
	PartID       int64  `json:"part_id"`
	BrandID      int64  `json:"brand_id"`
	ModelID      *int64 `json:"model_id,omitempty"`
	GenerationID *int64 `json:"generation_id,omitempty"`
	YearFrom     *int   `json:"year_from,omitempty"`
	YearTo       *int   `json:"year_to,omitempty"`
}

type Vehicle struct {
	BrandID        int64  `json:"brand_id"`
	BrandName      string `json:"brand_name"`
	ModelID        int64  `json:"model_id"`
	ModelName      string `json:"model_name"`
	GenerationID   int64  `json:"generation_id"`
	GenerationName string `json:"generation_name"`
	Year           *int   `json:"year,omitempty"`
}

type InventorySuggestion struct {
	ID               int64           `json:"id"`
	StageID          int64           `json:"stage_id"`
	PartID           int64           `json:"part_id"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	IsRequired       bool            `json:"is_required"`
	SuggestedByAdmin bool            `json:"suggested_by_admin"`
	Status           string          `json:"status"`
	SelectedByClient bool            `json:"selected_by_client"`
	AdminNotes       string          `json:"admin_notes,omitempty"`
	ClientNotes      string          `json:"client_notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

const (
	SuggestionStatusPending  = "pending"
	SuggestionStatusApproved = "approved"
	SuggestionStatusRejected = "rejected"
)

func ValidSuggestionStatus(status string) bool {
	switch status {
	case SuggestionStatusPending, SuggestionStatusApproved, SuggestionStatusRejected:
		return true
	}
	return false
}

type Notification struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	OrderID   *int64         `json:"order_id,omitempty"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

const (
	NotificationStageDone          = "stage_done"
	NotificationOrderCompleted     = "order_completed"
	NotificationInventorySuggested = "inventory_suggested"
	NotificationStageAssigned      = "stage_assigned"
	NotificationNewOrder           = "new_order"
)
