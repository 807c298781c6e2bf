package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/db"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/duration"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/logger"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/challenge"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/notification"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/task"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/user"
)

type testEnv struct {
	pool       *pgxpool.Pool
	users      *UserService
	tasks      *TaskService
	notifs     *NotificationService
	challenges *ChallengeService
	streaks    *StreakService
}

// setupTestEnv connects to the database named by TEST_DATABASE_URL and wires
// the full service graph. Tests are skipped when no database is available.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	require.NoError(t, logger.Init("error", ""))

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	users := NewUserService(pool)
	notifs := NewNotificationService(pool)
	return &testEnv{
		pool:       pool,
		users:      users,
		tasks:      NewTaskService(pool),
		notifs:     notifs,
		challenges: NewChallengeService(pool, users, notifs),
		streaks:    NewStreakService(pool, users),
	}
}

func (e *testEnv) createUser(t *testing.T, name string) *user.User {
	t.Helper()
	u, err := e.users.Signup(context.Background(), &user.SignupRequest{
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()),
		Name:         name,
		AuthProvider: "google",
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) createTask(t *testing.T, userID string, distance float64) *task.Task {
	t.Helper()
	now := time.Now().UTC()
	tk, err := e.tasks.Create(context.Background(), &task.CreateTaskRequest{
		UserID:    userID,
		Activity:  "running",
		Distance:  distance,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	return tk
}

func (e *testEnv) createChallenge(t *testing.T, creatorID string, taskID uuid.UUID, reward int) *challenge.Challenge {
	t.Helper()
	c, err := e.challenges.CreateChallenge(context.Background(), &challenge.CreateChallengeRequest{
		CreatorID: creatorID,
		TaskID:    taskID,
		Title:     "Morning 10K",
		Rules:     []string{"outdoor runs only"},
		Reward:    reward,
		StartDate: time.Now().UTC(),
		Duration:  "Week",
	})
	require.NoError(t, err)
	return c
}

func TestChallengeLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	runner := env.createUser(t, "runner")
	tk := env.createTask(t, creator.UserID, 10)
	c := env.createChallenge(t, creator.UserID, tk.ID, 50)

	// Creator is linked into their own membership list on create.
	creatorReloaded, err := env.users.GetByID(ctx, creator.UserID)
	require.NoError(t, err)
	assert.Contains(t, creatorReloaded.Challenges, c.ID)

	// Assignment notifies the assignee and links the challenge.
	c, err = env.challenges.AssignChallenge(ctx, c.ID, []string{runner.UserID, runner.UserID})
	require.NoError(t, err)
	assert.Equal(t, []string{runner.UserID}, c.AssigneeIDs)

	runnerNotifs, err := env.notifs.ListByUser(ctx, runner.UserID)
	require.NoError(t, err)
	require.Len(t, runnerNotifs, 1)
	assert.Equal(t, notification.TypeChallengeReceived, runnerNotifs[0].Type)

	// Accept: participation goes active, creator is notified.
	c, err = env.challenges.RespondToChallenge(ctx, c.ID, &challenge.RespondRequest{
		UserID:   runner.UserID,
		Response: challenge.ResponseAgree,
	})
	require.NoError(t, err)
	p := c.Participation(runner.UserID)
	require.NotNil(t, p)
	assert.Equal(t, challenge.ParticipationActive, p.Status)

	creatorNotifs, err := env.notifs.ListByUser(ctx, creator.UserID)
	require.NoError(t, err)
	require.NotEmpty(t, creatorNotifs)
	assert.Equal(t, notification.TypeChallengeAccepted, creatorNotifs[0].Type)
	assert.Contains(t, creatorNotifs[0].Message, "accepted")

	// Same-day re-log replaces the entry instead of double counting.
	day := time.Now().UTC()
	_, err = env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: runner.UserID, Date: day, Distance: 3,
	})
	require.NoError(t, err)
	c2, err := env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: runner.UserID, Date: day, Distance: 4,
	})
	require.NoError(t, err)
	p = c2.Participation(runner.UserID)
	require.Len(t, p.DailyProgress, 1)
	assert.Equal(t, 4.0, p.TotalDistance())
	assert.Empty(t, c2.WinnerID)

	// Crossing the target wins, finishes the challenge and credits the runner.
	c3, err := env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: runner.UserID, Date: day.AddDate(0, 0, 1), Distance: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusFinished, c3.Status)
	assert.Equal(t, runner.UserID, c3.WinnerID)
	require.NotNil(t, c3.CompletedAt)

	runnerReloaded, err := env.users.GetByID(ctx, runner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 50, runnerReloaded.Rewards)
	assert.Equal(t, 1, runnerReloaded.Streak)

	// Further progress still records but cannot change the outcome.
	c4, err := env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: runner.UserID, Date: day.AddDate(0, 0, 2), Distance: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, runner.UserID, c4.WinnerID)

	runnerAfter, err := env.users.GetByID(ctx, runner.UserID)
	require.NoError(t, err)
	assert.Equal(t, 50, runnerAfter.Rewards, "win must credit exactly once")
}

func TestRespondAuthorization(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	outsider := env.createUser(t, "outsider")
	tk := env.createTask(t, creator.UserID, 5)
	c := env.createChallenge(t, creator.UserID, tk.ID, 10)

	_, err := env.challenges.RespondToChallenge(ctx, c.ID, &challenge.RespondRequest{
		UserID:   outsider.UserID,
		Response: challenge.ResponseAgree,
	})
	assert.True(t, apperr.IsStatus(err, 403))

	_, err = env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: outsider.UserID, Date: time.Now().UTC(), Distance: 1,
	})
	assert.True(t, apperr.IsStatus(err, 403))
}

func TestRejectCleansUp(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	runner := env.createUser(t, "runner")
	tk := env.createTask(t, creator.UserID, 5)
	c := env.createChallenge(t, creator.UserID, tk.ID, 10)

	_, err := env.challenges.AssignChallenge(ctx, c.ID, []string{runner.UserID})
	require.NoError(t, err)

	c2, err := env.challenges.RespondToChallenge(ctx, c.ID, &challenge.RespondRequest{
		UserID:         runner.UserID,
		Response:       challenge.ResponseReject,
		ResponseReason: "knee injury",
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.ParticipationReject, c2.Participation(runner.UserID).Status)

	// The pending received notification is gone and the membership link removed.
	runnerNotifs, err := env.notifs.ListByUser(ctx, runner.UserID)
	require.NoError(t, err)
	assert.Empty(t, runnerNotifs)

	runnerReloaded, err := env.users.GetByID(ctx, runner.UserID)
	require.NoError(t, err)
	assert.NotContains(t, runnerReloaded.Challenges, c.ID)

	creatorNotifs, err := env.notifs.ListByUser(ctx, creator.UserID)
	require.NoError(t, err)
	require.NotEmpty(t, creatorNotifs)
	assert.Contains(t, creatorNotifs[0].Message, "rejected")
	assert.Contains(t, creatorNotifs[0].Message, "knee injury")

	// Progress logged after the reject records, but does not pull the
	// participation out of its terminal status.
	c3, err := env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: runner.UserID, Date: time.Now().UTC(), Distance: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.ParticipationReject, c3.Participation(runner.UserID).Status)
}

func TestEditWindowAndOwnership(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	other := env.createUser(t, "other")
	tk := env.createTask(t, creator.UserID, 5)
	c := env.createChallenge(t, creator.UserID, tk.ID, 10)

	newTitle := "Evening 10K"
	_, err := env.challenges.EditChallenge(ctx, c.ID, &challenge.EditRequest{
		UserID: other.UserID,
		Title:  &newTitle,
	})
	assert.True(t, apperr.IsStatus(err, 403))

	edited, err := env.challenges.EditChallenge(ctx, c.ID, &challenge.EditRequest{
		UserID: creator.UserID,
		Title:  &newTitle,
	})
	require.NoError(t, err)
	assert.Equal(t, "Evening 10K", edited.Title)
	// Untouched fields survive a partial patch.
	assert.Equal(t, []string{"outdoor runs only"}, edited.Rules)

	// A duration-only patch applies and recomputes the end date from the
	// existing start date.
	monthly := "Month"
	edited, err = env.challenges.EditChallenge(ctx, c.ID, &challenge.EditRequest{
		UserID:   creator.UserID,
		Duration: &monthly,
	})
	require.NoError(t, err)
	assert.Equal(t, "Month", edited.Duration)
	wantEnd, err := duration.ResolveEnd(edited.StartDate, "Month")
	require.NoError(t, err)
	assert.Equal(t, wantEnd, edited.EndDate)

	bogus := "Fortnight"
	_, err = env.challenges.EditChallenge(ctx, c.ID, &challenge.EditRequest{
		UserID:   creator.UserID,
		Duration: &bogus,
	})
	assert.True(t, apperr.IsStatus(err, 400))

	// Push creation outside the edit window and retry.
	_, err = env.pool.Exec(ctx, `UPDATE challenges SET created_at = now() - interval '25 hours' WHERE id = $1`, c.ID)
	require.NoError(t, err)

	_, err = env.challenges.EditChallenge(ctx, c.ID, &challenge.EditRequest{
		UserID: creator.UserID,
		Title:  &newTitle,
	})
	assert.True(t, apperr.IsStatus(err, 403))
}

func TestDeleteChallengeCascades(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	runner := env.createUser(t, "runner")
	tk := env.createTask(t, creator.UserID, 5)
	c := env.createChallenge(t, creator.UserID, tk.ID, 10)

	_, err := env.challenges.AssignChallenge(ctx, c.ID, []string{runner.UserID})
	require.NoError(t, err)

	err = env.challenges.DeleteChallenge(ctx, c.ID, runner.UserID)
	assert.True(t, apperr.IsStatus(err, 403))

	require.NoError(t, env.challenges.DeleteChallenge(ctx, c.ID, creator.UserID))

	_, err = env.challenges.GetChallenge(ctx, c.ID)
	assert.True(t, apperr.IsStatus(err, 404))

	runnerNotifs, err := env.notifs.ListByUser(ctx, runner.UserID)
	require.NoError(t, err)
	assert.Empty(t, runnerNotifs)

	for _, id := range []string{creator.UserID, runner.UserID} {
		u, err := env.users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotContains(t, u.Challenges, c.ID)
	}
}

func TestStreakSweep(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	creator := env.createUser(t, "creator")
	slacker := env.createUser(t, "slacker")
	diligent := env.createUser(t, "diligent")
	tk := env.createTask(t, creator.UserID, 100)
	c := env.createChallenge(t, creator.UserID, tk.ID, 10)

	_, err := env.challenges.AssignChallenge(ctx, c.ID, []string{slacker.UserID, diligent.UserID})
	require.NoError(t, err)

	for _, id := range []string{slacker.UserID, diligent.UserID} {
		_, err = env.challenges.RespondToChallenge(ctx, c.ID, &challenge.RespondRequest{
			UserID: id, Response: challenge.ResponseAgree,
		})
		require.NoError(t, err)
	}

	// Seed non-zero streaks so the reset is observable.
	_, err = env.pool.Exec(ctx, `UPDATE users SET streak = 5 WHERE user_id = ANY($1)`,
		[]string{slacker.UserID, diligent.UserID})
	require.NoError(t, err)

	// Only the diligent runner logs today.
	_, err = env.challenges.LogChallengeProgress(ctx, c.ID, &challenge.ProgressRequest{
		UserID: diligent.UserID, Date: time.Now().UTC(), Distance: 2,
	})
	require.NoError(t, err)

	require.NoError(t, env.streaks.Sweep(ctx))

	slackerAfter, err := env.users.GetByID(ctx, slacker.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, slackerAfter.Streak)

	diligentAfter, err := env.users.GetByID(ctx, diligent.UserID)
	require.NoError(t, err)
	assert.Equal(t, 5, diligentAfter.Streak)

	// Re-running the sweep is a no-op.
	require.NoError(t, env.streaks.Sweep(ctx))
	slackerAgain, err := env.users.GetByID(ctx, slacker.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, slackerAgain.Streak)
}
