package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/repair-orders/internal/database"
	"github.com/safar/repair-orders/internal/models"
)

type CreateStageRequest struct {
	Name        string
	Description string
	// OrderIndex defaults to one past the current maximum.
	OrderIndex *int
	AssignedTo *int64
}

type StagePosition struct {
	StageID    int64 `json:"stage_id"`
	OrderIndex int   `json:"order_index"`
}

const stageColumns = `id, order_id, name, description, status, order_index, assigned_to,
		       started_at, completed_at, last_viewed_at, created_at, updated_at`

// statusAssignments moves a stage to a new status. started_at is stamped on
// the first entry into in_progress; completed_at whenever the stage enters
// done from another status, so done->done keeps the original stamp. In an
// UPDATE the bare column names refer to the pre-update row.
func statusAssignments(statusArg, nowArg string) string {
	return fmt.Sprintf(`status = %[1]s::text,
		     started_at = CASE WHEN %[1]s::text = 'in_progress' AND started_at IS NULL THEN %[2]s::timestamptz ELSE started_at END,
		     completed_at = CASE WHEN %[1]s::text = 'done' AND status <> 'done' THEN %[2]s::timestamptz ELSE completed_at END`,
		statusArg, nowArg)
}

func scanStage(row rowScanner) (*models.Stage, error) {
	stage := &models.Stage{}
	var assignedTo sql.NullInt64
	var startedAt, completedAt, lastViewedAt sql.NullTime

	err := row.Scan(
		&stage.ID,
		&stage.OrderID,
		&stage.Name,
		&stage.Description,
		&stage.Status,
		&stage.OrderIndex,
		&assignedTo,
		&startedAt,
		&completedAt,
		&lastViewedAt,
		&stage.CreatedAt,
		&stage.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stage.AssignedTo = int64Ptr(assignedTo)
	stage.StartedAt = timePtr(startedAt)
	stage.CompletedAt = timePtr(completedAt)
	stage.LastViewedAt = timePtr(lastViewedAt)
	return stage, nil
}

func insertStage(ctx context.Context, q database.DBTX, orderID int64, name, description string, orderIndex int, assignedTo *int64) (*models.Stage, error) {
	stage, err := scanStage(q.QueryRowContext(ctx,
		`INSERT INTO order_stages (order_id, name, description, status, order_index, assigned_to, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING `+stageColumns,
		orderID, name, description, models.StageStatusPending, orderIndex, assignedTo))
	if err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return stage, nil
}

func CreateStage(ctx context.Context, tx *sql.Tx, orderID int64, req CreateStageRequest) (*models.Stage, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)",
		orderID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, database.ErrOrderNotFound
	}

	var orderIndex int
	if req.OrderIndex != nil {
		orderIndex = *req.OrderIndex
	} else {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(order_index) + 1, 0) FROM order_stages WHERE order_id = $1`,
			orderID).Scan(&orderIndex)
		if err != nil {
			return nil, fmt.Errorf("next stage index: %w", err)
		}
	}

	return insertStage(ctx, tx, orderID, req.Name, req.Description, orderIndex, req.AssignedTo)
}

func GetStage(ctx context.Context, q database.DBTX, id int64) (*models.Stage, error) {
	stage, err := scanStage(q.QueryRowContext(ctx,
		`SELECT `+stageColumns+`
		 FROM order_stages
		 WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStageNotFound
		}
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return stage, nil
}

func LockStage(ctx context.Context, tx *sql.Tx, id int64) (*models.Stage, error) {
	stage, err := scanStage(tx.QueryRowContext(ctx,
		`SELECT `+stageColumns+`
		 FROM order_stages
		 WHERE id = $1
		 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStageNotFound
		}
		return nil, fmt.Errorf("lock stage: %w", err)
	}
	return stage, nil
}

func ListStages(ctx context.Context, q database.DBTX, orderID int64) ([]models.Stage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+stageColumns+`
		 FROM order_stages
		 WHERE order_id = $1
		 ORDER BY order_index, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := []models.Stage{}
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, *stage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stages, nil
}

// SaveStage writes the admin-editable fields of a locked stage and moves it
// to stage.Status under the shared timestamp rules.
func SaveStage(ctx context.Context, tx *sql.Tx, stage *models.Stage, now time.Time) (*models.Stage, error) {
	saved, err := scanStage(tx.QueryRowContext(ctx,
		`UPDATE order_stages
		 SET name = $1,
		     description = $2,
		     order_index = $3,
		     assigned_to = $4,
		     last_viewed_at = $5,
		     `+statusAssignments("$6", "$7")+`,
		     updated_at = $7::timestamptz
		 WHERE id = $8
		 RETURNING `+stageColumns,
		stage.Name, stage.Description, stage.OrderIndex, stage.AssignedTo, stage.LastViewedAt,
		stage.Status, now, stage.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrStageNotFound
		}
		return nil, fmt.Errorf("save stage: %w", err)
	}
	return saved, nil
}

// ClaimStageStatus sets the status on behalf of a mechanic. The write only
// lands when the stage is unassigned or already theirs; an unassigned stage
// becomes theirs. Zero affected rows means somebody else holds the stage.
func ClaimStageStatus(ctx context.Context, tx *sql.Tx, stageID, mechanicID int64, status string, now time.Time) (*models.Stage, error) {
	stage, err := scanStage(tx.QueryRowContext(ctx,
		`UPDATE order_stages
		 SET `+statusAssignments("$1", "$3")+`,
		     last_viewed_at = CASE WHEN assigned_to IS NULL THEN NULL ELSE last_viewed_at END,
		     assigned_to = COALESCE(assigned_to, $2),
		     updated_at = $3::timestamptz
		 WHERE id = $4
		   AND (assigned_to IS NULL OR assigned_to = $2)
		 RETURNING `+stageColumns,
		status, mechanicID, now, stageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundOrClaimed(ctx, tx, stageID)
		}
		return nil, fmt.Errorf("update stage status: %w", err)
	}
	return stage, nil
}

func MarkStageViewed(ctx context.Context, q database.DBTX, stageID, mechanicID int64, now time.Time) (*models.Stage, error) {
	stage, err := scanStage(q.QueryRowContext(ctx,
		`UPDATE order_stages
		 SET last_viewed_at = $1
		 WHERE id = $2
		   AND (assigned_to IS NULL OR assigned_to = $3)
		 RETURNING `+stageColumns,
		now, stageID, mechanicID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundOrClaimed(ctx, q, stageID)
		}
		return nil, fmt.Errorf("mark stage viewed: %w", err)
	}
	return stage, nil
}

func notFoundOrClaimed(ctx context.Context, q database.DBTX, stageID int64) error {
	var exists bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM order_stages WHERE id = $1)",
		stageID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check stage exists: %w", err)
	}
	if !exists {
		return database.ErrStageNotFound
	}
	return database.ErrStageClaimed
}

// ReorderStages applies every position in the caller's transaction. A stage
// outside the order aborts with ErrStageNotInOrder; the caller's rollback
// then discards the positions already written.
func ReorderStages(ctx context.Context, tx *sql.Tx, orderID int64, positions []StagePosition) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)",
		orderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return database.ErrOrderNotFound
	}

	for _, p := range positions {
		result, err := tx.ExecContext(ctx,
			`UPDATE order_stages
			 SET order_index = $1,
			     updated_at = NOW()
			 WHERE id = $2
			   AND order_id = $3`,
			p.OrderIndex, p.StageID, orderID)
		if err != nil {
			return fmt.Errorf("reorder stage %d: %w", p.StageID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		if rowsAffected == 0 {
			return fmt.Errorf("stage %d: %w", p.StageID, database.ErrStageNotInOrder)
		}
	}

	return nil
}

func AddStageNote(ctx context.Context, q database.DBTX, stageID, authorID int64, body string) (*models.StageNote, error) {
	note := &models.StageNote{}

	err := q.QueryRowContext(ctx,
		`INSERT INTO stage_notes (stage_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, stage_id, author_id, body, created_at`,
		stageID, authorID, body).Scan(
		&note.ID,
		&note.StageID,
		&note.AuthorID,
		&note.Body,
		&note.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add stage note: %w", err)
	}

	return note, nil
}

func ListStageNotes(ctx context.Context, q database.DBTX, stageID int64) ([]models.StageNote, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, stage_id, author_id, body, created_at
		 FROM stage_notes
		 WHERE stage_id = $1
		 ORDER BY created_at, id`, stageID)
	if err != nil {
		return nil, fmt.Errorf("list stage notes: %w", err)
	}
	defer rows.Close()

	notes := []models.StageNote{}
	for rows.Next() {
		var note models.StageNote
		if err := rows.Scan(&note.ID, &note.StageID, &note.AuthorID, &note.Body, &note.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage note: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return notes, nil
}
