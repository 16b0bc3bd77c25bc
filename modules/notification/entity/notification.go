package entity

import (
	"clinic-api/core/entity"

	"github.com/google/uuid"
)

// Notification is an in-app message shown to a practitioner. The calendar
// reconnect notice stays unread until the user reconnects or dismisses it.
type Notification struct {
	entity.BaseEntity
	UserID  uuid.UUID `db:"user_id" json:"user_id"`
	Type    string    `db:"type" json:"type"`
	Title   string    `db:"title" json:"title"`
	Message string    `db:"message" json:"message"`
	IsRead  bool      `db:"is_read" json:"is_read"`
}

func (Notification) TableName() string {
	return "notifications"
}

type PaginatedNotifications = entity.Pagination[Notification]
