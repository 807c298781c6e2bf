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
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/db"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/notification"
)

// PushProvider delivers a notification to a user's registered devices.
// Implemented by internal/push.FCMService; nil means in-app only.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the optional push backend.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

const notificationColumns = `id, user_id, type, challenge_id, message, read, created_at`

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	n := &notification.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.ChallengeID, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Emit creates a notification for a user and appends it to the user's
// membership list. It accepts a Querier so the challenge engine can emit
// inside its own transaction.
func (s *NotificationService) Emit(ctx context.Context, q db.Querier, userID, typ string, challengeID *uuid.UUID, message string) (*notification.Notification, error) {
	n := &notification.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        typ,
		ChallengeID: challengeID,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := q.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, challenge_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, n.ID, n.UserID, n.Type, n.ChallengeID, n.Message, n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	_, err = q.Exec(ctx, `
		UPDATE users SET notifications = array_append(notifications, $2) WHERE user_id = $1
	`, userID, n.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to link notification to user %s: %w", userID, err)
	}

	return n, nil
}

// ListByUser returns a user's notifications, newest first.
func (s *NotificationService) ListByUser(ctx context.Context, userID string) ([]*notification.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1
		RETURNING `+notificationColumns, notificationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Notification not found")
		}
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return n, nil
}

// Delete removes one notification and its membership reference.
func (s *NotificationService) Delete(ctx context.Context, notificationID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `DELETE FROM notifications WHERE id = $1 RETURNING user_id`, notificationID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("Notification not found")
		}
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET notifications = array_remove(notifications, $2) WHERE user_id = $1
	`, userID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to unlink notification: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteReceived removes the pending "challenge_received" notification for a
// (user, challenge) pair, if one exists. Used when an assignee rejects or
// skips. At most one such notification is assumed.
func (s *NotificationService) DeleteReceived(ctx context.Context, q db.Querier, userID string, challengeID uuid.UUID) error {
	var notifID uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT id FROM notifications
		WHERE user_id = $1 AND challenge_id = $2 AND type = $3
		LIMIT 1
	`, userID, challengeID, notification.TypeChallengeReceived).Scan(&notifID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to look up received notification: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, notifID); err != nil {
		return fmt.Errorf("failed to delete received notification: %w", err)
	}
	_, err = q.Exec(ctx, `
		UPDATE users SET notifications = array_remove(notifications, $2) WHERE user_id = $1
	`, userID, notifID)
	if err != nil {
		return fmt.Errorf("failed to unlink received notification: %w", err)
	}
	return nil
}

// DeleteByChallenge removes every notification referencing the challenge and
// pulls each one out of its owner's membership list. Runs inside the delete
// cascade's transaction.
func (s *NotificationService) DeleteByChallenge(ctx context.Context, q db.Querier, challengeID uuid.UUID) error {
	rows, err := q.Query(ctx, `SELECT id, user_id FROM notifications WHERE challenge_id = $1`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to list challenge notifications: %w", err)
	}
	type ref struct {
		id     uuid.UUID
		userID string
	}
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.id, &r.userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan notification ref: %w", err)
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range refs {
		_, err = q.Exec(ctx, `
			UPDATE users SET notifications = array_remove(notifications, $2) WHERE user_id = $1
		`, r.userID, r.id)
		if err != nil {
			return fmt.Errorf("failed to unlink notification %s: %w", r.id, err)
		}
	}

	if _, err := q.Exec(ctx, `DELETE FROM notifications WHERE challenge_id = $1`, challengeID); err != nil {
		return fmt.Errorf("failed to delete challenge notifications: %w", err)
	}
	return nil
}

// RegisterDevice stores a device token for push delivery.
func (s *NotificationService) RegisterDevice(ctx context.Context, req *notification.RegisterDeviceRequest) error {
	if req.UserID == "" || req.Token == "" {
		return apperr.InvalidArgument("userId and token are required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform
	`, req.UserID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// Push fans a message out to the user's registered devices, best effort.
// Called after the owning transaction commits; failures are logged only.
func (s *NotificationService) Push(ctx context.Context, userID, title, body string, data map[string]string) {
	if s.pushProvider == nil {
		return
	}

	rows, err := s.db.Query(ctx, `SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		logger.Sugar.Warnw("failed to load device tokens", "user_id", userID, "error", err)
		return
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			logger.Sugar.Warnw("failed to scan device token", "user_id", userID, "error", err)
			return
		}
		tokens = append(tokens, token)
	}

	if err := s.pushProvider.SendPush(ctx, tokens, title, body, data); err != nil {
		logger.Sugar.Warnw("push delivery failed", "user_id", userID, "error", err)
	}
}
