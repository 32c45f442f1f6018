package models

import (
	"time"

	"github.com/google/uuid"
)

// OTPChallenge одноразовый код, привязанный к паре (email, purpose).
type OTPChallenge struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Email               string    `db:"email" json:"email"`
	Code                string    `db:"code" json:"-"`
	Purpose             string    `db:"purpose" json:"purpose"`
	PendingPasswordHash *string   `db:"pending_password_hash" json:"-"`
	PendingName         *string   `db:"pending_name" json:"-"`
	ExpiresAt           time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// IsLive сообщает, действителен ли код в момент now.
func (c *OTPChallenge) IsLive(now time.Time) bool {
	return c.ExpiresAt.After(now)
}
