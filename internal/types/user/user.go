package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the directory record for one account. Streak and Rewards are
// mutated only through the two blessed paths: the challenge win credit and
// the streak sweep reset.
type User struct {
	UserID        string      `json:"userId" db:"user_id"`
	Email         string      `json:"email" db:"email"`
	Name          string      `json:"name" db:"name"`
	AuthProvider  string      `json:"authProvider" db:"auth_provider"`
	Image         string      `json:"image,omitempty" db:"image"`
	Streak        int         `json:"streak" db:"streak"`
	TotalPoints   int         `json:"totalPoints" db:"total_points"`
	Rewards       int         `json:"rewards" db:"rewards"`
	Tasks         []uuid.UUID `json:"tasks" db:"tasks"`
	Challenges    []uuid.UUID `json:"challenges" db:"challenges"`
	Notifications []uuid.UUID `json:"notifications" db:"notifications"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}

type SignupRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AuthProvider string `json:"authProvider"`
	Image        string `json:"image,omitempty"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Summary is the trimmed projection returned by user search.
type Summary struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
