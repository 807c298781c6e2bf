package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/challenge"
)

// StreakService runs the daily streak sweep: any active participant of an
// active challenge who has no progress entry for the current UTC day loses
// their streak.
type StreakService struct {
	db          *pgxpool.Pool
	userService *UserService
}

func NewStreakService(db *pgxpool.Pool, userService *UserService) *StreakService {
	return &StreakService{db: db, userService: userService}
}

// Sweep scans active challenges once and resets streaks for participants who
// missed today. Resets are independent: one user's failure is logged and
// skipped so the rest of the sweep proceeds. Safe to re-run within the same
// day, the underlying reset is a no-op for already-zeroed streaks.
func (s *StreakService) Sweep(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `
		SELECT `+challengeColumns+` FROM challenges WHERE status = $1
	`, challenge.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to fetch active challenges: %w", err)
	}
	defer rows.Close()

	challenges, err := collectChallenges(rows)
	if err != nil {
		return err
	}

	today := challenge.DayKey(time.Now())
	seen := make(map[string]struct{})
	var resets int
	for _, c := range challenges {
		for i := range c.Participations {
			p := &c.Participations[i]
			if p.Status != challenge.ParticipationActive || p.HasDay(today) {
				continue
			}
			if _, done := seen[p.UserID]; done {
				continue
			}
			seen[p.UserID] = struct{}{}
			if err := s.userService.ResetStreak(ctx, p.UserID); err != nil {
				logger.Sugar.Errorw("streak reset failed", "user_id", p.UserID, "challenge_id", c.ID, "error", err)
				continue
			}
			resets++
		}
	}

	logger.Sugar.Infow("streak sweep finished", "challenges", len(challenges), "resets", resets)
	return nil
}
