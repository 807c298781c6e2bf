package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
)

func newChallenge(assignees ...string) *Challenge {
	return &Challenge{
		CreatorID:      "10001",
		AssigneeIDs:    assignees,
		Status:         StatusActive,
		CreatedAt:      time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
		Participations: []Participation{},
	}
}

func TestDayKey(t *testing.T) {
	// Different wall-clock instants on the same UTC day collapse to one key.
	morning := time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC)
	night := time.Date(2025, time.June, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-06-01", DayKey(morning))
	assert.Equal(t, DayKey(morning), DayKey(night))

	// A non-UTC timestamp is normalized before the key is taken.
	est := time.FixedZone("EST", -5*3600)
	lateEST := time.Date(2025, time.June, 1, 22, 0, 0, 0, est)
	assert.Equal(t, "2025-06-02", DayKey(lateEST))
}

func TestUpsertDayReplacesSameDay(t *testing.T) {
	p := &Participation{UserID: "20002", DailyProgress: []DailyProgress{}}
	day := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	p.UpsertDay(day, 3.5, "", "before.jpg")
	p.UpsertDay(day.Add(9*time.Hour), 5.0, "https://strava/run", "")

	require.Len(t, p.DailyProgress, 1)
	assert.Equal(t, 5.0, p.DailyProgress[0].Distance)
	assert.Equal(t, "https://strava/run", p.DailyProgress[0].URL)
	// Replacement is wholesale, the old image does not survive.
	assert.Empty(t, p.DailyProgress[0].Image)
	assert.Equal(t, 5.0, p.TotalDistance())
}

func TestUpsertDayKeepsDistinctDays(t *testing.T) {
	p := &Participation{UserID: "20002", DailyProgress: []DailyProgress{}}
	day := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	p.UpsertDay(day, 3, "", "")
	p.UpsertDay(day.AddDate(0, 0, 1), 4, "", "")
	p.UpsertDay(day.AddDate(0, 0, 2), 5, "", "")

	assert.Len(t, p.DailyProgress, 3)
	assert.Equal(t, 12.0, p.TotalDistance())
	assert.True(t, p.HasDay("2025-06-02"))
	assert.False(t, p.HasDay("2025-06-04"))
}

func TestRespondAgree(t *testing.T) {
	c := newChallenge("20002")
	now := c.CreatedAt.Add(time.Hour)

	p, err := c.Respond("20002", ResponseAgree, "", now)
	require.NoError(t, err)
	assert.Equal(t, ParticipationActive, p.Status)
	assert.Empty(t, p.ResponseReason)
	require.NotNil(t, p.RespondedAt)
	assert.Equal(t, now, *p.RespondedAt)
}

func TestRespondRejectCarriesReason(t *testing.T) {
	c := newChallenge("20002")

	p, err := c.Respond("20002", ResponseReject, "knee injury", time.Now())
	require.NoError(t, err)
	assert.Equal(t, ParticipationReject, p.Status)
	assert.Equal(t, "knee injury", p.ResponseReason)
}

func TestRespondWipesProgress(t *testing.T) {
	c := newChallenge("20002")
	day := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	c.LogProgress("20002", day, 5, "", "", day)
	require.Len(t, c.Participation("20002").DailyProgress, 1)

	// A fresh response replaces the record wholesale, history included.
	p, err := c.Respond("20002", ResponseAgree, "", day.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, p.DailyProgress)
	assert.Len(t, c.Participations, 1)
}

func TestRespondInvalid(t *testing.T) {
	c := newChallenge("20002")
	_, err := c.Respond("20002", Response("maybe"), "", time.Now())
	require.Error(t, err)
	assert.True(t, apperr.IsStatus(err, 400))
}

func TestLogProgressCreatesActiveParticipation(t *testing.T) {
	c := newChallenge("20002")
	day := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

	// No prior respond call: logging creates the participation on demand.
	p := c.LogProgress("20002", day, 4.2, "", "", day)
	assert.Equal(t, ParticipationActive, p.Status)
	assert.Equal(t, 4.2, p.TotalDistance())
	assert.Nil(t, p.RespondedAt)
}

func TestLogProgressKeepsTerminalStatus(t *testing.T) {
	day := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		response Response
		want     ParticipationStatus
	}{
		{ResponseReject, ParticipationReject},
		{ResponseSkip, ParticipationSkip},
	} {
		t.Run(string(tc.response), func(t *testing.T) {
			c := newChallenge("20002")
			_, err := c.Respond("20002", tc.response, "busy week", day)
			require.NoError(t, err)

			// The distance records, but a terminal status does not flip back.
			p := c.LogProgress("20002", day, 2, "", "", day)
			assert.Equal(t, tc.want, p.Status)
			assert.Equal(t, 2.0, p.TotalDistance())

			// A fresh respond call is the only way out.
			p, err = c.Respond("20002", ResponseAgree, "", day.Add(time.Hour))
			require.NoError(t, err)
			assert.Equal(t, ParticipationActive, p.Status)
		})
	}
}

func TestRecordWinOnlyOnce(t *testing.T) {
	c := newChallenge("20002", "30003")
	now := time.Now().UTC()

	require.True(t, c.RecordWin("20002", now))
	assert.Equal(t, "20002", c.WinnerID)
	assert.Equal(t, StatusFinished, c.Status)
	require.NotNil(t, c.CompletedAt)

	// The outcome is immutable once decided.
	assert.False(t, c.RecordWin("30003", now.Add(time.Minute)))
	assert.Equal(t, "20002", c.WinnerID)
}

func TestCanLogProgress(t *testing.T) {
	c := newChallenge("20002")
	assert.True(t, c.CanLogProgress("20002"))
	assert.True(t, c.CanLogProgress(c.CreatorID))
	assert.False(t, c.CanLogProgress("99999"))
}

func TestEditWindowOpen(t *testing.T) {
	c := newChallenge("20002")
	assert.True(t, c.EditWindowOpen(c.CreatedAt.Add(23*time.Hour+59*time.Minute)))
	assert.True(t, c.EditWindowOpen(c.CreatedAt.Add(24*time.Hour)))
	assert.False(t, c.EditWindowOpen(c.CreatedAt.Add(24*time.Hour+time.Second)))
}

func TestDedupeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DedupeIDs([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, DedupeIDs(nil))
}
