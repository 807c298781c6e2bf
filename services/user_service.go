package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/db"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/challenge"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const userColumns = `user_id, email, name, auth_provider, image, streak, total_points, rewards, tasks, challenges, notifications, created_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.UserID,
		&u.Email,
		&u.Name,
		&u.AuthProvider,
		&u.Image,
		&u.Streak,
		&u.TotalPoints,
		&u.Rewards,
		&u.Tasks,
		&u.Challenges,
		&u.Notifications,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Signup creates an account with a freshly sampled 5-digit user id.
func (s *UserService) Signup(ctx context.Context, req *user.SignupRequest) (*user.User, error) {
	if req.Email == "" || req.Name == "" || req.AuthProvider == "" {
		return nil, apperr.InvalidArgument("email, name and authProvider are required")
	}

	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, req.Email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperr.InvalidArgument("Email already exists")
	}

	userID, err := s.GenerateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO users (user_id, email, name, auth_provider, image, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query, userID, req.Email, req.Name, req.AuthProvider, req.Image, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GenerateUniqueID samples 5-digit numeric ids until one is free.
func (s *UserService) GenerateUniqueID(ctx context.Context) (string, error) {
	for {
		candidate := fmt.Sprintf("%05d", 10000+rand.Intn(90000))
		var taken bool
		err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, candidate).Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("failed to check user id: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*user.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// Search matches the query against user ids and emails, case-insensitive.
func (s *UserService) Search(ctx context.Context, query string) ([]*user.Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, email, name
		FROM users
		WHERE user_id ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY user_id
	`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var results []*user.Summary
	for rows.Next() {
		sum := &user.Summary{}
		if err := rows.Scan(&sum.UserID, &sum.Email, &sum.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

// ProfileResponse is the public profile view: account basics plus every
// challenge the user created or was assigned to.
type ProfileResponse struct {
	Name       string                 `json:"name"`
	Email      string                 `json:"email"`
	UserID     string                 `json:"userId"`
	Streak     int                    `json:"streak"`
	Challenges []*challenge.Challenge `json:"challenges"`
}

func (s *UserService) Profile(ctx context.Context, userID string) (*ProfileResponse, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges
		WHERE creator_id = $1 OR $1 = ANY(assignee_ids)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile challenges: %w", err)
	}
	defer rows.Close()

	challenges, err := collectChallenges(rows)
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{
		Name:       u.Name,
		Email:      u.Email,
		UserID:     u.UserID,
		Streak:     u.Streak,
		Challenges: challenges,
	}, nil
}

// ListChallenges returns the challenges in the user's membership list.
func (s *UserService) ListChallenges(ctx context.Context, userID string) ([]*challenge.Challenge, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Challenges) == 0 {
		return []*challenge.Challenge{}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+challengeColumns+`
		FROM challenges
		WHERE id = ANY($1)
		ORDER BY created_at DESC
	`, u.Challenges)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user challenges: %w", err)
	}
	defer rows.Close()

	return collectChallenges(rows)
}

// AddChallengeToUser appends the challenge to the user's membership list if
// not already present. Missing users are silently skipped, matching the
// original assignment flow.
func (s *UserService) AddChallengeToUser(ctx context.Context, q db.Querier, userID string, challengeID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE users
		SET challenges = array_append(challenges, $2)
		WHERE user_id = $1 AND NOT (challenges @> ARRAY[$2]::uuid[])
	`, userID, challengeID)
	if err != nil {
		return fmt.Errorf("failed to add challenge to user %s: %w", userID, err)
	}
	return nil
}

func (s *UserService) RemoveChallengeFromUser(ctx context.Context, q db.Querier, userID string, challengeID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE users
		SET challenges = array_remove(challenges, $2)
		WHERE user_id = $1
	`, userID, challengeID)
	if err != nil {
		return fmt.Errorf("failed to remove challenge from user %s: %w", userID, err)
	}
	return nil
}

// CreditWin applies the challenge reward and streak increment for a win. It
// runs inside the caller's transaction so the credit commits atomically with
// the challenge's transition to finished. This and ResetStreak are the only
// writers of the rewards/streak counters.
func (s *UserService) CreditWin(ctx context.Context, q db.Querier, userID string, reward int) error {
	tag, err := q.Exec(ctx, `
		UPDATE users
		SET rewards = rewards + $2, streak = streak + 1
		WHERE user_id = $1
	`, userID, reward)
	if err != nil {
		return fmt.Errorf("failed to credit win for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

// ResetStreak zeroes the streak counter. The write is conditional so a sweep
// re-run is a no-op; last-writer-wins on this single scalar is acceptable.
func (s *UserService) ResetStreak(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET streak = 0 WHERE user_id = $1 AND streak <> 0`, userID)
	if err != nil {
		return fmt.Errorf("failed to reset streak for user %s: %w", userID, err)
	}
	return nil
}

// DisplayNames resolves user ids to display names in one query.
func (s *UserService) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT user_id, name FROM users WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(userIDs))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan user name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
