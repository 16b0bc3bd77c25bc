package entity

import (
	"clinic-api/core/entity"

	"github.com/google/uuid"
)

// CalendarConnection holds the one long-lived Google refresh credential per
// application user. Absence of a row is the "disconnected" state; a repeat
// consent overwrites the credential, never merges.
type CalendarConnection struct {
	entity.BaseEntity
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"-"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}
