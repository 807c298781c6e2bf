package challenge

import (
	"time"

	"github.com/google/uuid"

	"github.com/kakunuriMahesh/activity-tracker-backend/internal/apperr"
	"github.com/kakunuriMahesh/activity-tracker-backend/internal/types/task"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusSkip     Status = "skip"
	StatusReject   Status = "reject"
	StatusFinished Status = "finished"
)

type ParticipationStatus string

const (
	ParticipationPending ParticipationStatus = "pending"
	ParticipationActive  ParticipationStatus = "active"
	ParticipationReject  ParticipationStatus = "reject"
	ParticipationSkip    ParticipationStatus = "skip"
)

type Response string

const (
	ResponseAgree  Response = "agree"
	ResponseReject Response = "reject"
	ResponseSkip   Response = "skip"
)

// DailyProgress is one day's logged distance. At most one entry exists per
// UTC calendar day within a participation; a second write for the same day
// replaces the entry wholesale.
type DailyProgress struct {
	Date     time.Time `json:"date"`
	Distance float64   `json:"distance"`
	URL      string    `json:"url,omitempty"`
	Image    string    `json:"image,omitempty"`
}

// Participation is one assignee's response state and progress history within
// a challenge. It is embedded in the challenge aggregate and persisted as
// part of the challenge row.
type Participation struct {
	UserID         string              `json:"userId"`
	Status         ParticipationStatus `json:"status"`
	DailyProgress  []DailyProgress     `json:"dailyProgress"`
	ResponseReason string              `json:"responseReason,omitempty"`
	RespondedAt    *time.Time          `json:"respondedAt,omitempty"`
	LastUpdated    time.Time           `json:"lastUpdated"`
}

type Challenge struct {
	ID             uuid.UUID       `json:"challengeId" db:"id"`
	CreatorID      string          `json:"creatorId" db:"creator_id"`
	AssigneeIDs    []string        `json:"assigneeIds" db:"assignee_ids"`
	TaskID         uuid.UUID       `json:"taskId" db:"task_id"`
	Title          string          `json:"title" db:"title"`
	Rules          []string        `json:"rules" db:"rules"`
	Exceptions     []string        `json:"exceptions" db:"exceptions"`
	Reward         int             `json:"reward" db:"reward"`
	Status         Status          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	StartDate      time.Time       `json:"startDate" db:"start_date"`
	EndDate        time.Time       `json:"endDate" db:"end_date"`
	Duration       string          `json:"duration" db:"duration"`
	Participations []Participation `json:"progress" db:"participations"`
	WinnerID       string          `json:"winnerId,omitempty" db:"winner_id"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
}

// ParticipantView is the resolved per-assignee view returned by GetChallenge:
// the display name joined from the user directory, with pending defaults when
// the assignee has not responded yet.
type ParticipantView struct {
	UserID         string              `json:"userId"`
	Name           string              `json:"name"`
	Status         ParticipationStatus `json:"status"`
	DailyProgress  []DailyProgress     `json:"dailyProgress"`
	ResponseReason string              `json:"responseReason"`
}

// Detail is a challenge plus its resolved task and participant views.
type Detail struct {
	Challenge
	Task         *task.Task        `json:"task,omitempty"`
	Participants []ParticipantView `json:"participants"`
}

// EditWindow is how long after creation the creator may still edit a
// challenge's fields.
const EditWindow = 24 * time.Hour

// DayKey collapses a timestamp to its UTC calendar day. It is the dedup key
// for daily progress entries and the "today" check of the streak sweep; every
// day comparison in the engine goes through it so the day-boundary policy
// lives in one place.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Participation returns the record for userID, or nil if the user has not
// responded or logged progress yet.
func (c *Challenge) Participation(userID string) *Participation {
	for i := range c.Participations {
		if c.Participations[i].UserID == userID {
			return &c.Participations[i]
		}
	}
	return nil
}

// IsAssignee reports whether userID is in the current assignee list.
func (c *Challenge) IsAssignee(userID string) bool {
	for _, id := range c.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanLogProgress reports whether userID may log progress: any current
// assignee, or the creator logging on a participant's behalf.
func (c *Challenge) CanLogProgress(userID string) bool {
	return c.IsAssignee(userID) || c.CreatorID == userID
}

// EditWindowOpen reports whether the creator-edit window is still open at now.
func (c *Challenge) EditWindowOpen(now time.Time) bool {
	return now.Sub(c.CreatedAt) <= EditWindow
}

// Respond records an assignee's response, replacing any existing
// participation record wholesale. The wipe is deliberate: a fresh response
// always resets the daily history, even when re-responding after progress was
// already logged. "agree" activates the participation; "reject" and "skip"
// are terminal and carry the response reason.
func (c *Challenge) Respond(userID string, response Response, reason string, now time.Time) (*Participation, error) {
	entry := Participation{
		UserID:        userID,
		DailyProgress: []DailyProgress{},
		RespondedAt:   &now,
		LastUpdated:   now,
	}
	switch response {
	case ResponseAgree:
		entry.Status = ParticipationActive
	case ResponseReject:
		entry.Status = ParticipationReject
		entry.ResponseReason = reason
	case ResponseSkip:
		entry.Status = ParticipationSkip
		entry.ResponseReason = reason
	default:
		return nil, apperr.InvalidArgument("invalid response")
	}
	return c.upsertParticipation(entry), nil
}

// LogProgress upserts a daily progress entry for userID, creating an active
// participation on demand when none exists. Logging progress without a prior
// respond call is a valid entry into the state machine, not an error: the
// creator may log on a participant's behalf. An existing record keeps its
// status (pending activates); reject and skip are terminal, only a fresh
// respond call leaves them.
func (c *Challenge) LogProgress(userID string, date time.Time, distance float64, url, image string, now time.Time) *Participation {
	p := c.Participation(userID)
	if p == nil {
		p = c.upsertParticipation(Participation{
			UserID:        userID,
			Status:        ParticipationActive,
			DailyProgress: []DailyProgress{},
			LastUpdated:   now,
		})
	} else if p.Status == ParticipationPending {
		p.Status = ParticipationActive
	}
	p.UpsertDay(date, distance, url, image)
	p.LastUpdated = now
	return p
}

// RecordWin marks userID as the winner if no winner is set yet. It returns
// false when the outcome was already decided; winner and completion instant
// are immutable once written.
func (c *Challenge) RecordWin(userID string, now time.Time) bool {
	if c.WinnerID != "" {
		return false
	}
	c.WinnerID = userID
	c.CompletedAt = &now
	c.Status = StatusFinished
	return true
}

// upsertParticipation replaces the record matching entry.UserID or appends a
// new one, keeping at most one record per user.
func (c *Challenge) upsertParticipation(entry Participation) *Participation {
	for i := range c.Participations {
		if c.Participations[i].UserID == entry.UserID {
			c.Participations[i] = entry
			return &c.Participations[i]
		}
	}
	c.Participations = append(c.Participations, entry)
	return &c.Participations[len(c.Participations)-1]
}

// UpsertDay writes one day's progress, replacing any existing entry for the
// same UTC calendar day. Replacement is wholesale: distance, url and image all
// take the new values, so re-submitting a day never double counts.
func (p *Participation) UpsertDay(date time.Time, distance float64, url, image string) {
	entry := DailyProgress{Date: date, Distance: distance, URL: url, Image: image}
	key := DayKey(date)
	for i := range p.DailyProgress {
		if DayKey(p.DailyProgress[i].Date) == key {
			p.DailyProgress[i] = entry
			return
		}
	}
	p.DailyProgress = append(p.DailyProgress, entry)
}

// TotalDistance recomputes the cumulative distance from the full ledger. It
// is summed on every progress write rather than maintained incrementally so
// overwritten days are always reflected correctly.
func (p *Participation) TotalDistance() float64 {
	var sum float64
	for _, dp := range p.DailyProgress {
		sum += dp.Distance
	}
	return sum
}

// HasDay reports whether the ledger has an entry for the given day key.
func (p *Participation) HasDay(key string) bool {
	for _, dp := range p.DailyProgress {
		if DayKey(dp.Date) == key {
			return true
		}
	}
	return false
}

// DedupeIDs removes duplicate user ids preserving first-seen order. Assignee
// lists are set-like at the engine boundary even though storage does not
// enforce uniqueness.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
