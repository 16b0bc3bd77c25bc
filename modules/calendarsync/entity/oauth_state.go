package entity

import (
	"time"

	"clinic-api/core/entity"

	"github.com/google/uuid"
)

// OAuthState is a single-use CSRF token protecting the OAuth redirect
// handshake. It is consumed (read-then-deleted) exactly once by the callback.
type OAuthState struct {
	entity.BaseEntity
	State     string    `db:"state"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (OAuthState) TableName() string {
	return "oauth_states"
}
