package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/db"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/duration"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/challenge"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/notification"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/task"
)

// ChallengeService is the challenge lifecycle engine. Every mutating
// operation runs in a single transaction with the challenge row locked
// (SELECT ... FOR UPDATE), so concurrent responds/progress writes against
// the same challenge serialize instead of racing on read-modify-write.
type ChallengeService struct {
	db           *pgxpool.Pool
	userService  *UserService
	notifService *NotificationService
}

func NewChallengeService(db *pgxpool.Pool, userService *UserService, notifService *NotificationService) *ChallengeService {
	return &ChallengeService{
		db:           db,
		userService:  userService,
		notifService: notifService,
	}
}

const challengeColumns = `id, creator_id, assignee_ids, task_id, title, rules, exceptions, reward, status,
	created_at, start_date, end_date, duration, participations, COALESCE(winner_id, ''), completed_at`

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	var participations []byte
	err := row.Scan(
		&c.ID,
		&c.CreatorID,
		&c.AssigneeIDs,
		&c.TaskID,
		&c.Title,
		&c.Rules,
		&c.Exceptions,
		&c.Reward,
		&c.Status,
		&c.CreatedAt,
		&c.StartDate,
		&c.EndDate,
		&c.Duration,
		&participations,
		&c.WinnerID,
		&c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(participations, &c.Participations); err != nil {
		return nil, fmt.Errorf("failed to decode participations: %w", err)
	}
	return c, nil
}

func collectChallenges(rows pgx.Rows) ([]*challenge.Challenge, error) {
	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// lockChallenge loads the aggregate with a row lock held for the rest of the
// transaction.
func (s *ChallengeService) lockChallenge(ctx context.Context, q db.Querier, challengeID uuid.UUID) (*challenge.Challenge, error) {
	c, err := scanChallenge(q.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1 FOR UPDATE`, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Challenge not found")
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeService) saveParticipations(ctx context.Context, q db.Querier, c *challenge.Challenge) error {
	raw, err := json.Marshal(c.Participations)
	if err != nil {
		return fmt.Errorf("failed to encode participations: %w", err)
	}
	if _, err := q.Exec(ctx, `UPDATE challenges SET participations = $2 WHERE id = $1`, c.ID, raw); err != nil {
		return fmt.Errorf("failed to save participations: %w", err)
	}
	return nil
}

func (s *ChallengeService) taskByID(ctx context.Context, q db.Querier, taskID uuid.UUID) (*task.Task, error) {
	t := &task.Task{}
	err := q.QueryRow(ctx, `
		SELECT id, user_id, activity, distance, duration, created_at, completed, start_date, end_date, skipped_reason, points
		FROM tasks WHERE id = $1
	`, taskID).Scan(
		&t.ID, &t.UserID, &t.Activity, &t.Distance, &t.Duration,
		&t.CreatedAt, &t.Completed, &t.StartDate, &t.EndDate, &t.SkippedReason, &t.Points,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Task not found")
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

// CreateChallenge validates the duration, derives the end date and persists
// the challenge with an empty participation list, linking it into the
// creator's membership list in the same transaction.
func (s *ChallengeService) CreateChallenge(ctx context.Context, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	endDate, err := duration.ResolveEnd(req.StartDate, req.Duration)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var creatorExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, req.CreatorID).Scan(&creatorExists); err != nil {
		return nil, fmt.Errorf("failed to check creator: %w", err)
	}
	if !creatorExists {
		return nil, apperr.NotFound("Creator not found")
	}

	now := time.Now().UTC()
	c := &challenge.Challenge{
		ID:             uuid.New(),
		CreatorID:      req.CreatorID,
		AssigneeIDs:    challenge.DedupeIDs(req.AssigneeIDs),
		TaskID:         req.TaskID,
		Title:          req.Title,
		Rules:          req.Rules,
		Exceptions:     req.Exceptions,
		Reward:         req.Reward,
		Status:         challenge.StatusActive,
		CreatedAt:      now,
		StartDate:      req.StartDate,
		EndDate:        endDate,
		Duration:       req.Duration,
		Participations: []challenge.Participation{},
	}
	if c.Rules == nil {
		c.Rules = []string{}
	}
	if c.Exceptions == nil {
		c.Exceptions = []string{}
	}

	raw, err := json.Marshal(c.Participations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode participations: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO challenges (id, creator_id, assignee_ids, task_id, title, rules, exceptions, reward,
			status, created_at, start_date, end_date, duration, participations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, c.CreatorID, c.AssigneeIDs, c.TaskID, c.Title, c.Rules, c.Exceptions, c.Reward,
		c.Status, c.CreatedAt, c.StartDate, c.EndDate, c.Duration, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	if err := s.userService.AddChallengeToUser(ctx, tx, c.CreatorID, c.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return c, nil
}

// AssignChallenge replaces the assignee list wholesale and notifies every
// listed assignee. Replacement is deliberate: assignees dropped from the list
// keep their participation records as history. Re-assigning the same user
// re-notifies; duplicate suppression is limited to in-list dedup.
func (s *ChallengeService) AssignChallenge(ctx context.Context, challengeID uuid.UUID, assigneeIDs []string) (*challenge.Challenge, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.lockChallenge(ctx, tx, challengeID)
	if err != nil {
		return nil, err
	}

	ids := challenge.DedupeIDs(assigneeIDs)
	if _, err := tx.Exec(ctx, `UPDATE challenges SET assignee_ids = $2 WHERE id = $1`, c.ID, ids); err != nil {
		return nil, fmt.Errorf("failed to update assignees: %w", err)
	}
	c.AssigneeIDs = ids

	message := fmt.Sprintf("You received a %q challenge!", c.Title)
	var notified []string
	for _, assigneeID := range ids {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, assigneeID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check assignee %s: %w", assigneeID, err)
		}
		if !exists {
			continue
		}
		if err := s.userService.AddChallengeToUser(ctx, tx, assigneeID, c.ID); err != nil {
			return nil, err
		}
		if _, err := s.notifService.Emit(ctx, tx, assigneeID, notification.TypeChallengeReceived, &c.ID, message); err != nil {
			return nil, err
		}
		notified = append(notified, assigneeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	for _, assigneeID := range notified {
		s.notifService.Push(ctx, assigneeID, "New challenge", message, map[string]string{"challengeId": c.ID.String()})
	}
	return c, nil
}

// GetChallenge returns the aggregate plus resolved participant views: one
// view per current assignee, defaulting to pending when the assignee has not
// responded, with "Unknown" for names the directory cannot resolve.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.Detail, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, challengeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Challenge not found")
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	t, err := s.taskByID(ctx, s.db, c.TaskID)
	if err != nil && !apperr.IsStatus(err, 404) {
		return nil, err
	}

	names, err := s.userService.DisplayNames(ctx, c.AssigneeIDs)
	if err != nil {
		return nil, err
	}

	participants := make([]challenge.ParticipantView, 0, len(c.AssigneeIDs))
	for _, assigneeID := range c.AssigneeIDs {
		view := challenge.ParticipantView{
			UserID:        assigneeID,
			Name:          "Unknown",
			Status:        challenge.ParticipationPending,
			DailyProgress: []challenge.DailyProgress{},
		}
		if name, ok := names[assigneeID]; ok {
			view.Name = name
		}
		if p := c.Participation(assigneeID); p != nil {
			view.Status = p.Status
			view.ResponseReason = p.ResponseReason
			if p.DailyProgress != nil {
				view.DailyProgress = p.DailyProgress
			}
		}
		participants = append(participants, view)
	}

	return &challenge.Detail{Challenge: *c, Task: t, Participants: participants}, nil
}

// RespondToChallenge records an assignee's agree/reject/skip. The
// participation record is replaced wholesale (progress history wiped), the
// assignee's membership list and pending notification are adjusted, and the
// creator is notified of the outcome.
func (s *ChallengeService) RespondToChallenge(ctx context.Context, challengeID uuid.UUID, req *challenge.RespondRequest) (*challenge.Challenge, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.lockChallenge(ctx, tx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.IsAssignee(req.UserID) {
		return nil, apperr.Forbidden("Not authorized")
	}

	now := time.Now().UTC()
	if _, err := c.Respond(req.UserID, req.Response, req.ResponseReason, now); err != nil {
		return nil, err
	}
	if err := s.saveParticipations(ctx, tx, c); err != nil {
		return nil, err
	}

	var assigneeName string
	err = tx.QueryRow(ctx, `SELECT name FROM users WHERE user_id = $1`, req.UserID).Scan(&assigneeName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to load assignee: %w", err)
	}

	var typ, verb string
	switch req.Response {
	case challenge.ResponseAgree:
		typ, verb = notification.TypeChallengeAccepted, "accepted"
		if err := s.userService.AddChallengeToUser(ctx, tx, req.UserID, c.ID); err != nil {
			return nil, err
		}
	case challenge.ResponseReject:
		typ, verb = notification.TypeChallengeRejected, "rejected"
	case challenge.ResponseSkip:
		typ, verb = notification.TypeChallengeSkipped, "skipped"
	}
	if req.Response != challenge.ResponseAgree {
		if err := s.userService.RemoveChallengeFromUser(ctx, tx, req.UserID, c.ID); err != nil {
			return nil, err
		}
		if err := s.notifService.DeleteReceived(ctx, tx, req.UserID, c.ID); err != nil {
			return nil, err
		}
	}

	message := fmt.Sprintf("%s %s your %q challenge", assigneeName, verb, c.Title)
	if req.ResponseReason != "" {
		message += ": " + req.ResponseReason
	}
	if _, err := s.notifService.Emit(ctx, tx, c.CreatorID, typ, &c.ID, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.notifService.Push(ctx, c.CreatorID, "Challenge response", message, map[string]string{"challengeId": c.ID.String()})
	return c, nil
}

// LogChallengeProgress upserts one day of progress for the caller and runs
// win detection in the same transaction. The first participant whose
// cumulative distance reaches the task target becomes the winner; the winner
// write is conditional on winner_id still being unset, and the reward/streak
// credit commits atomically with the status transition. Progress after a win
// still records, but cannot change the outcome.
func (s *ChallengeService) LogChallengeProgress(ctx context.Context, challengeID uuid.UUID, req *challenge.ProgressRequest) (*challenge.Challenge, error) {
	if req.Distance < 0 {
		return nil, apperr.InvalidArgument("distance must be non-negative")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.lockChallenge(ctx, tx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.CanLogProgress(req.UserID) {
		return nil, apperr.Forbidden("Not authorized")
	}

	now := time.Now().UTC()
	p := c.LogProgress(req.UserID, req.Date, req.Distance, req.URL, req.Image, now)

	t, err := s.taskByID(ctx, tx, c.TaskID)
	if err != nil {
		return nil, err
	}

	if p.TotalDistance() >= t.Distance && c.RecordWin(req.UserID, now) {
		raw, err := json.Marshal(c.Participations)
		if err != nil {
			return nil, fmt.Errorf("failed to encode participations: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE challenges
			SET participations = $2, status = $3, winner_id = $4, completed_at = $5
			WHERE id = $1 AND winner_id IS NULL
		`, c.ID, raw, c.Status, c.WinnerID, c.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to record winner: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperr.Conflict("challenge already has a winner")
		}
		if err := s.userService.CreditWin(ctx, tx, req.UserID, c.Reward); err != nil {
			return nil, err
		}
		logger.Sugar.Infow("challenge won", "challenge_id", c.ID, "winner_id", req.UserID, "reward", c.Reward)
	} else if err := s.saveParticipations(ctx, tx, c); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return c, nil
}

// EditChallenge applies a partial patch to the mutable fields. Only the
// creator may edit, and only within 24 hours of creation. When the start date
// or duration changes the end date is recomputed from the patched values.
func (s *ChallengeService) EditChallenge(ctx context.Context, challengeID uuid.UUID, req *challenge.EditRequest) (*challenge.Challenge, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.lockChallenge(ctx, tx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.CreatorID != req.UserID {
		return nil, apperr.Forbidden("Only the creator can edit this challenge")
	}
	if !c.EditWindowOpen(time.Now().UTC()) {
		return nil, apperr.Forbidden("Editing is only allowed within 24 hours of creation")
	}

	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Rules != nil {
		c.Rules = req.Rules
	}
	if req.Exceptions != nil {
		c.Exceptions = req.Exceptions
	}
	if req.Reward != nil {
		c.Reward = *req.Reward
	}
	if req.StartDate != nil {
		c.StartDate = *req.StartDate
	}
	if req.Duration != nil {
		c.Duration = *req.Duration
	}
	if req.StartDate != nil || req.Duration != nil {
		endDate, err := duration.ResolveEnd(c.StartDate, c.Duration)
		if err != nil {
			return nil, err
		}
		c.EndDate = endDate
	}

	_, err = tx.Exec(ctx, `
		UPDATE challenges
		SET title = $2, rules = $3, exceptions = $4, reward = $5, start_date = $6, end_date = $7, duration = $8
		WHERE id = $1
	`, c.ID, c.Title, c.Rules, c.Exceptions, c.Reward, c.StartDate, c.EndDate, c.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to edit challenge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return c, nil
}

// DeleteChallenge removes the challenge with its full cascade: every
// notification referencing it, and the challenge reference in every
// member's list. Creator only.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, challengeID uuid.UUID, userID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	c, err := s.lockChallenge(ctx, tx, challengeID)
	if err != nil {
		return err
	}
	if c.CreatorID != userID {
		return apperr.Forbidden("Only the creator can delete this challenge")
	}

	if err := s.notifService.DeleteByChallenge(ctx, tx, c.ID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET challenges = array_remove(challenges, $1) WHERE challenges @> ARRAY[$1]::uuid[]
	`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to remove membership references: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, c.ID); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}

	return tx.Commit(ctx)
}
