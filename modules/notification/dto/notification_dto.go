package dto

import (
	"github.com/google/uuid"
)

// Notification types
const (
	TypeCalendarReconnect = "calendar_reconnect"
)

type CreateNotificationRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	Type    string    `json:"type"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

type MarkAsReadRequest struct {
	IDs []string `json:"ids"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
