package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/ledger"
	"github.com/safar/repair-orders/internal/models"
	"github.com/safar/repair-orders/internal/notify"
	"github.com/safar/repair-orders/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)

	order := f.newOrder(t)
	require.Len(t, order.Stages, 3)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "Three step service", order.Title)
	assert.Equal(t, 1, f.countNotifications(t, f.admin.ID, models.NotificationNewOrder))

	startTime := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	doneTime := startTime.Add(2 * time.Hour)
	laterTime := doneTime.Add(24 * time.Hour)

	first := order.Stages[0]
	f.clock.Set(startTime)
	started, err := f.svc.UpdateStageStatus(ctx, first.ID, f.mechanicA.ID, StatusUpdate{
		Status:  models.StageStatusInProgress,
		Comment: "car on the lift",
	})
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	assert.True(t, startTime.Equal(*started.StartedAt), "started_at %s", started.StartedAt)
	assert.Nil(t, started.CompletedAt)
	assert.Equal(t, f.mechanicA.ID, *started.AssignedTo)

	got, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, got.Status)

	f.clock.Set(doneTime)
	for _, st := range order.Stages {
		_, err := f.svc.UpdateStageStatus(ctx, st.ID, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusDone})
		require.NoError(t, err)
	}

	got, err = f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, doneTime.Equal(*got.CompletedAt), "order completed_at %s", got.CompletedAt)
	for _, st := range got.Stages {
		require.NotNil(t, st.CompletedAt)
		assert.True(t, doneTime.Equal(*st.CompletedAt), "stage %d completed_at %s", st.ID, st.CompletedAt)
	}
	require.NotNil(t, got.Stages[0].StartedAt)
	assert.True(t, startTime.Equal(*got.Stages[0].StartedAt), "started_at is only stamped once")
	assert.Equal(t, 1, f.countNotifications(t, f.customer.ID, models.NotificationOrderCompleted))
	assert.Equal(t, 3, f.countNotifications(t, f.customer.ID, models.NotificationStageDone))

	f.clock.Set(laterTime)
	last := got.Stages[2]
	again, err := f.svc.UpdateStageStatus(ctx, last.ID, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusDone})
	require.NoError(t, err)
	assert.True(t, doneTime.Equal(*again.CompletedAt), "done->done must keep completed_at")
	assert.Equal(t, 1, f.countNotifications(t, f.customer.ID, models.NotificationOrderCompleted))
	assert.Equal(t, 3, f.countNotifications(t, f.customer.ID, models.NotificationStageDone))

	detail, err := f.svc.GetStageDetail(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, detail.Notes, 1)
	assert.Equal(t, "car on the lift", detail.Notes[0].Body)
}

func TestCompletedOrderReopensOnNewStage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	order := f.newOrder(t)

	for _, st := range order.Stages {
		_, err := f.svc.UpdateStageStatus(ctx, st.ID, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusDone})
		require.NoError(t, err)
	}

	_, err := f.svc.CreateStage(ctx, order.ID, store.CreateStageRequest{Name: "Extra check", AssignedTo: &f.mechanicB.ID})
	require.NoError(t, err)

	got, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 3, got.Stages[3].OrderIndex)
	assert.Equal(t, 1, f.countNotifications(t, f.mechanicB.ID, models.NotificationStageAssigned))
}

func TestClaimedStageIsForbidden(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]

	_, err := f.svc.UpdateStageStatus(ctx, stage.ID, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusInProgress})
	require.NoError(t, err)

	_, err = f.svc.UpdateStageStatus(ctx, stage.ID, f.mechanicB.ID, StatusUpdate{Status: models.StageStatusDone})
	assert.ErrorIs(t, err, database.ErrForbidden)

	got, err := store.GetStage(ctx, db, stage.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusInProgress, got.Status)
	assert.Equal(t, f.mechanicA.ID, *got.AssignedTo)

	_, err = f.svc.UpdateStageStatus(ctx, 999999, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusDone})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.MarkStageViewed(ctx, stage.ID, f.mechanicB.ID)
	assert.ErrorIs(t, err, database.ErrForbidden)
}

func TestConcurrentClaims(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]

	var mechanics []int64
	for i := 0; i < 8; i++ {
		u, err := store.CreateUser(ctx, db, fmt.Sprintf("mech%d@example.com", i), "Mechanic", models.RoleMechanic)
		if err != nil {
			t.Fatalf("Create mechanic: %v", err)
		}
		mechanics = append(mechanics, u.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, len(mechanics))

	for _, id := range mechanics {
		wg.Add(1)
		go func(mechanicID int64) {
			defer wg.Done()
			_, err := f.svc.UpdateStageStatus(ctx, stage.ID, mechanicID, StatusUpdate{Status: models.StageStatusInProgress})
			results <- err
		}(id)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrStageClaimed):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount)
}

func TestReassignResetsLastViewed(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]

	_, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicA.ID})
	require.NoError(t, err)

	viewed, err := f.svc.MarkStageViewed(ctx, stage.ID, f.mechanicA.ID)
	require.NoError(t, err)
	require.NotNil(t, viewed.LastViewedAt)

	renamed, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{Name: ptr("Inspection")})
	require.NoError(t, err)
	assert.NotNil(t, renamed.LastViewedAt)

	moved, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicB.ID})
	require.NoError(t, err)
	assert.Equal(t, f.mechanicB.ID, *moved.AssignedTo)
	assert.Nil(t, moved.LastViewedAt)

	assert.Equal(t, 1, f.countNotifications(t, f.mechanicA.ID, models.NotificationStageAssigned))
	assert.Equal(t, 1, f.countNotifications(t, f.mechanicB.ID, models.NotificationStageAssigned))
}

func TestReassignBackToEarlierMechanicResetsLastViewed(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]

	_, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicA.ID})
	require.NoError(t, err)

	viewed, err := f.svc.MarkStageViewed(ctx, stage.ID, f.mechanicA.ID)
	require.NoError(t, err)
	require.NotNil(t, viewed.LastViewedAt)
	assert.True(t, f.clock.Now().Equal(*viewed.LastViewedAt))

	unassigned, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)
	assert.Nil(t, unassigned.LastViewedAt)

	back, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicA.ID})
	require.NoError(t, err)
	assert.Equal(t, f.mechanicA.ID, *back.AssignedTo)
	assert.Nil(t, back.LastViewedAt)

	_, err = f.svc.MarkStageViewed(ctx, stage.ID, f.mechanicA.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicB.ID})
	require.NoError(t, err)
	again, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.mechanicA.ID})
	require.NoError(t, err)
	assert.Nil(t, again.LastViewedAt)

	assert.Equal(t, 3, f.countNotifications(t, f.mechanicA.ID, models.NotificationStageAssigned))
}

func TestStageAssigneeMustBeMechanic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	order := f.newOrder(t)
	stage := order.Stages[0]

	unknown := int64(999999)

	_, err := f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &unknown})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.customer.ID})
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = f.svc.UpdateStage(ctx, stage.ID, StagePatch{SetAssignee: true, AssignedTo: &f.admin.ID})
	assert.ErrorIs(t, err, database.ErrValidation)

	got, err := store.GetStage(ctx, db, stage.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)

	_, err = f.svc.CreateStage(ctx, order.ID, store.CreateStageRequest{Name: "Alignment", AssignedTo: &unknown})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.CreateStage(ctx, order.ID, store.CreateStageRequest{Name: "Alignment", AssignedTo: &f.customer.ID})
	assert.ErrorIs(t, err, database.ErrValidation)

	reloaded, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Stages, 3)
	assert.Equal(t, 0, f.countNotifications(t, f.customer.ID, models.NotificationStageAssigned))
}

type failingSink struct {
	panics bool
}

func (s failingSink) Create(ctx context.Context, n *models.Notification) error {
	if s.panics {
		panic("notification store down")
	}
	return errors.New("notification store down")
}

func TestSinkFailureKeepsStageUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	order := f.newOrder(t)

	for i, sink := range []failingSink{{}, {panics: true}} {
		svc := NewService(db, notify.NewEmitter(sink, zerolog.Nop()), zerolog.Nop(), WithClock(f.clock.Now))

		stage := order.Stages[i]
		updated, err := svc.UpdateStageStatus(ctx, stage.ID, f.mechanicA.ID, StatusUpdate{Status: models.StageStatusDone})
		require.NoError(t, err, "sink panics=%v", sink.panics)
		assert.Equal(t, models.StageStatusDone, updated.Status)

		persisted, err := store.GetStage(ctx, db, stage.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StageStatusDone, persisted.Status)
		assert.Equal(t, f.mechanicA.ID, *persisted.AssignedTo)
		require.NotNil(t, persisted.CompletedAt)
	}

	assert.Equal(t, 0, f.countNotifications(t, f.customer.ID, models.NotificationStageDone))
}

func TestAdminStatusEditRecomputesOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	order := f.newOrder(t)

	for _, st := range order.Stages {
		_, err := f.svc.UpdateStage(ctx, st.ID, StagePatch{Status: ptr(models.StageStatusDone)})
		require.NoError(t, err)
	}

	got, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	for _, st := range got.Stages {
		assert.NotNil(t, st.CompletedAt)
		assert.Nil(t, st.StartedAt)
	}
	assert.Equal(t, 1, f.countNotifications(t, f.customer.ID, models.NotificationOrderCompleted))
}

func TestReorderStagesIsAtomic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	order := f.newOrder(t)
	other := f.newOrder(t)

	err := f.svc.ReorderStages(ctx, order.ID, []store.StagePosition{
		{StageID: order.Stages[0].ID, OrderIndex: 5},
		{StageID: other.Stages[0].ID, OrderIndex: 0},
	})
	assert.ErrorIs(t, err, database.ErrInvalidState)

	got, err := store.GetStage(ctx, db, order.Stages[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.OrderIndex)

	err = f.svc.ReorderStages(ctx, order.ID, []store.StagePosition{
		{StageID: order.Stages[0].ID, OrderIndex: 2},
		{StageID: order.Stages[2].ID, OrderIndex: 0},
	})
	require.NoError(t, err)

	reordered, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Stages[2].ID, reordered.Stages[0].ID)
	assert.Equal(t, order.Stages[0].ID, reordered.Stages[2].ID)

	err = f.svc.ReorderStages(ctx, order.ID, []store.StagePosition{
		{StageID: order.Stages[0].ID, OrderIndex: 1},
		{StageID: order.Stages[0].ID, OrderIndex: 2},
	})
	assert.ErrorIs(t, err, database.ErrValidation)
}

func newPart(t *testing.T, db *sql.DB, sku string, price int64, stock int) *models.Part {
	part, err := store.CreatePart(context.Background(), db, store.CreatePartRequest{
		SKU:         sku,
		Name:        "Part " + sku,
		Unit:        "pcs",
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		IsUniversal: true,
	})
	if err != nil {
		t.Fatalf("Create part: %v", err)
	}
	return part
}

func TestSuggestionCost(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]
	part := newPart(t, db, "PAD-1", 100, 10)

	optional, err := f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusPending, optional.Status)
	assert.Equal(t, 1, f.countNotifications(t, f.customer.ID, models.NotificationInventorySuggested))

	cost, err := f.svc.TotalCost(ctx, stage.ID)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "pending optional item must not count, got %s", cost)

	approved, err := f.svc.Respond(ctx, optional.ID, f.customer.ID, ResponseInput{SelectedByClient: true})
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusApproved, approved.Status)
	assert.True(t, approved.SelectedByClient)

	cost, err = f.svc.TotalCost(ctx, stage.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(cost), "got %s", cost)

	notes := "too expensive"
	rejected, err := f.svc.Respond(ctx, optional.ID, f.customer.ID, ResponseInput{ClientNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusRejected, rejected.Status)
	assert.False(t, rejected.SelectedByClient)
	assert.Equal(t, notes, rejected.ClientNotes)

	cost, err = f.svc.TotalCost(ctx, stage.ID)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "got %s", cost)

	_, err = f.svc.Respond(ctx, optional.ID, f.mechanicA.ID, ResponseInput{SelectedByClient: true})
	assert.ErrorIs(t, err, database.ErrForbidden)
}

func TestRequiredSuggestion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]
	part := newPart(t, db, "FLT-1", 100, 10)

	required, err := f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 1, IsRequired: true})
	require.NoError(t, err)

	cost, err := f.svc.TotalCost(ctx, stage.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(cost), "required item counts while pending, got %s", cost)

	_, err = f.svc.Respond(ctx, required.ID, f.customer.ID, ResponseInput{SelectedByClient: false})
	assert.ErrorIs(t, err, database.ErrInvalidState)

	got, err := store.GetSuggestion(ctx, db, required.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusPending, got.Status)
}

func TestSuggestionPriceSnapshot(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]
	part := newPart(t, db, "OIL-1", 100, 10)

	sug, err := f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 1, IsRequired: true})
	require.NoError(t, err)

	require.NoError(t, store.UpdatePartPrice(ctx, db, part.ID, decimal.NewFromInt(150)))

	edited, err := f.svc.UpdateSuggestion(ctx, sug.ID, ledger.Edit{Quantity: ptr(3)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(edited.UnitPrice), "got %s", edited.UnitPrice)

	cost, err := f.svc.TotalCost(ctx, stage.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(cost), "got %s", cost)
}

func TestSuggestChecksPart(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]
	part := newPart(t, db, "BELT-1", 40, 2)

	_, err := f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 3})
	assert.ErrorIs(t, err, database.ErrInsufficientStock)

	_, err = f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 0})
	assert.ErrorIs(t, err, database.ErrValidation)

	require.NoError(t, store.SetPartActive(ctx, db, part.ID, false))
	_, err = f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 1})
	assert.ErrorIs(t, err, database.ErrPartInactive)

	_, err = f.svc.Suggest(ctx, 999999, SuggestInput{PartID: part.ID, Quantity: 1})
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Equal(t, 0, f.countNotifications(t, f.customer.ID, models.NotificationInventorySuggested))
}

func TestRemoveSuggestion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	stage := f.newOrder(t).Stages[0]
	part := newPart(t, db, "BULB-1", 5, 10)

	sug, err := f.svc.Suggest(ctx, stage.ID, SuggestInput{PartID: part.ID, Quantity: 2, IsRequired: true})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveSuggestion(ctx, sug.ID))
	assert.ErrorIs(t, f.svc.RemoveSuggestion(ctx, sug.ID), database.ErrNotFound)

	list, err := f.svc.ListSuggestions(ctx, stage.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCompatibleParts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)

	brand, err := store.CreateBrand(ctx, db, "Toyota")
	require.NoError(t, err)
	model, err := store.CreateModel(ctx, db, brand, "Corolla")
	require.NoError(t, err)
	gen, err := store.CreateGeneration(ctx, db, model, "E210", ptr(2018), nil)
	require.NoError(t, err)
	oldGen, err := store.CreateGeneration(ctx, db, model, "E170", ptr(2012), ptr(2018))
	require.NoError(t, err)

	universal := newPart(t, db, "WIPER-1", 10, 5)
	brandOnly := newBrandPart(t, db, "TOY-1")
	genFit := newBrandPart(t, db, "E210-1")
	oldFit := newBrandPart(t, db, "E170-1")

	_, err = store.AddPartCompatibility(ctx, db, models.PartCompatibility{PartID: brandOnly.ID, BrandID: brand})
	require.NoError(t, err)
	_, err = store.AddPartCompatibility(ctx, db, models.PartCompatibility{
		PartID: genFit.ID, BrandID: brand, ModelID: &model, GenerationID: &gen, YearFrom: ptr(2019),
	})
	require.NoError(t, err)
	_, err = store.AddPartCompatibility(ctx, db, models.PartCompatibility{
		PartID: oldFit.ID, BrandID: brand, ModelID: &model, GenerationID: &oldGen,
	})
	require.NoError(t, err)

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID:          f.customer.ID,
		TemplateID:          "three-step",
		VehicleGenerationID: &gen,
		VehicleYear:         ptr(2020),
	})
	require.NoError(t, err)
	assert.Equal(t, "Toyota Corolla E210 2020 - Three step service", order.Title)

	parts, err := f.svc.CompatibleParts(ctx, order.ID)
	require.NoError(t, err)

	var ids []int64
	for _, p := range parts {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []int64{universal.ID, brandOnly.ID, genFit.ID}, ids)

	bare := f.newOrder(t)
	_, err = f.svc.CompatibleParts(ctx, bare.ID)
	assert.ErrorIs(t, err, database.ErrInvalidState)
}

func newBrandPart(t *testing.T, db *sql.DB, sku string) *models.Part {
	part, err := store.CreatePart(context.Background(), db, store.CreatePartRequest{
		SKU:   sku,
		Name:  "Part " + sku,
		Unit:  "pcs",
		Price: decimal.NewFromInt(20),
		Stock: 5,
	})
	if err != nil {
		t.Fatalf("Create part: %v", err)
	}
	return part
}

func TestNotificationReadState(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)
	f.newOrder(t)
	f.newOrder(t)

	list, err := f.svc.ListNotifications(ctx, f.admin.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt) || list[0].ID > list[1].ID)

	require.NoError(t, f.svc.MarkNotificationRead(ctx, f.admin.ID, list[0].ID))
	assert.ErrorIs(t, f.svc.MarkNotificationRead(ctx, f.customer.ID, list[1].ID), database.ErrNotFound)

	n, err := f.svc.MarkAllNotificationsRead(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = f.svc.ListNotifications(ctx, f.admin.ID, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}

func TestListOrdersCursor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	f := newFixture(t, db)

	for i := 0; i < 15; i++ {
		f.newOrder(t)
	}

	page1, err := f.svc.ListOrders(ctx, f.customer.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := f.svc.ListOrders(ctx, f.customer.ID, page1.NextCursor, 10)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 5)
	assert.False(t, page2.HasMore)

	seen := map[int64]bool{}
	for _, o := range append(page1.Items, page2.Items...) {
		assert.False(t, seen[o.ID], "order %d listed twice", o.ID)
		seen[o.ID] = true
	}

	_, err = f.svc.ListOrders(ctx, f.customer.ID, "garbage", 10)
	assert.ErrorIs(t, err, database.ErrValidation)
}
