package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/task"
)

type TaskService struct {
	db *pgxpool.Pool
}

func NewTaskService(db *pgxpool.Pool) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = `id, user_id, activity, distance, duration, created_at, completed, start_date, end_date, skipped_reason, points`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.Activity, &t.Distance, &t.Duration,
		&t.CreatedAt, &t.Completed, &t.StartDate, &t.EndDate, &t.SkippedReason, &t.Points,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create persists a task and links it into the owner's membership list.
func (s *TaskService) Create(ctx context.Context, req *task.CreateTaskRequest) (*task.Task, error) {
	if req.UserID == "" || req.Activity == "" {
		return nil, apperr.InvalidArgument("userId and activity are required")
	}
	if req.Distance <= 0 {
		return nil, apperr.InvalidArgument("distance must be positive")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, apperr.InvalidArgument("endDate must not be before startDate")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t := &task.Task{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Activity:  req.Activity,
		Distance:  req.Distance,
		Duration:  req.Duration,
		CreatedAt: time.Now().UTC(),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Points:    req.Points,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tasks (id, user_id, activity, distance, duration, created_at, start_date, end_date, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.UserID, t.Activity, t.Distance, t.Duration, t.CreatedAt, t.StartDate, t.EndDate, t.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users SET tasks = array_append(tasks, $2) WHERE user_id = $1
	`, t.UserID, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to link task to user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("User not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return t, nil
}

func (s *TaskService) GetByID(ctx context.Context, taskID uuid.UUID) (*task.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *TaskService) ListByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetCompleted flips the completion flag.
func (s *TaskService) SetCompleted(ctx context.Context, taskID uuid.UUID, completed bool) (*task.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `
		UPDATE tasks SET completed = $2 WHERE id = $1
		RETURNING `+taskColumns, taskID, completed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}
