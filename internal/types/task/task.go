package task

import (
	"time"

	"github.com/google/uuid"
)

// Task is the template a challenge references: an activity, a target
// distance in kilometers and a time window. The engine reads it to learn the
// win threshold; it never mutates one.
type Task struct {
	ID            uuid.UUID `json:"taskId" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	Activity      string    `json:"activity" db:"activity"`
	Distance      float64   `json:"distance" db:"distance"`
	Duration      string    `json:"duration,omitempty" db:"duration"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	Completed     bool      `json:"completed" db:"completed"`
	StartDate     time.Time `json:"startDate" db:"start_date"`
	EndDate       time.Time `json:"endDate" db:"end_date"`
	SkippedReason string    `json:"skippedReason,omitempty" db:"skipped_reason"`
	Points        int       `json:"points" db:"points"`
}

type CreateTaskRequest struct {
	UserID    string    `json:"userId"`
	Activity  string    `json:"activity"`
	Distance  float64   `json:"distance"`
	Duration  string    `json:"duration,omitempty"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Points    int       `json:"points"`
}

type UpdateTaskRequest struct {
	Completed bool `json:"completed"`
}
