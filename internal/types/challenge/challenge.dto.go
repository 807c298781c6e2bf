package challenge

import (
	"time"

	"github.com/google/uuid"
)

type CreateChallengeRequest struct {
	CreatorID   string    `json:"creatorId"`
	AssigneeIDs []string  `json:"assigneeIds"`
	TaskID      uuid.UUID `json:"taskId"`
	Title       string    `json:"title"`
	Rules       []string  `json:"rules"`
	Exceptions  []string  `json:"exceptions"`
	Reward      int       `json:"reward"`
	StartDate   time.Time `json:"startDate"`
	Duration    string    `json:"duration"`
}

type AssignRequest struct {
	AssigneeIDs []string `json:"assigneeIds"`
}

type RespondRequest struct {
	UserID         string   `json:"userId"`
	Response       Response `json:"response"`
	ResponseReason string   `json:"responseReason,omitempty"`
}

type ProgressRequest struct {
	UserID   string    `json:"userId"`
	Date     time.Time `json:"date"`
	Distance float64   `json:"distance"`
	URL      string    `json:"url,omitempty"`
	Image    string    `json:"image,omitempty"`
}

// EditRequest is a partial patch. Nil pointers and nil slices mean "leave the
// field as is"; a present empty value is applied, so clearing a field is
// expressible.
type EditRequest struct {
	UserID     string     `json:"userId"`
	Title      *string    `json:"title,omitempty"`
	Rules      []string   `json:"rules,omitempty"`
	Exceptions []string   `json:"exceptions,omitempty"`
	Reward     *int       `json:"reward,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	Duration   *string    `json:"duration,omitempty"`
}

type DeleteRequest struct {
	UserID string `json:"userId"`
}
