package notification

import (
	"time"

	"github.com/google/uuid"
)

// Well-known notification type tags. The column is free-form text; these are
// the values the challenge engine emits.
const (
	TypeChallengeReceived = "challenge_received"
	TypeChallengeAccepted = "challenge_accepted"
	TypeChallengeRejected = "challenge_reject"
	TypeChallengeSkipped  = "challenge_skip"
)

type Notification struct {
	ID          uuid.UUID  `json:"notificationId" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Type        string     `json:"type" db:"type"`
	ChallengeID *uuid.UUID `json:"challengeId,omitempty" db:"challenge_id"`
	Message     string     `json:"message" db:"message"`
	Read        bool       `json:"read" db:"read"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

type RegisterDeviceRequest struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
