package service

import (
	"context"
	"sync"

	"clinic-api/core/errors"
	"clinic-api/core/logger"
	"clinic-api/modules/calendarsync/repository"
	notifDto "clinic-api/modules/notification/dto"

	"github.com/google/uuid"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
	StateTokenExpired ConnectionState = "token_expired"
)

// ReconnectNotifier raises the persistent "reconnect your calendar"
// affordance. Satisfied by the notification service.
type ReconnectNotifier interface {
	Create(ctx context.Context, req *notifDto.CreateNotificationRequest) *errors.AppError
}

// StatusService tracks the calendar connection state per user. The state is
// recomputed from (credential presence, last call outcome), never replayed
// from a log, so it self-heals after a restart.
type StatusService struct {
	repo  repository.SyncRepository
	notif ReconnectNotifier

	mu              sync.Mutex
	unauthenticated map[uuid.UUID]bool
}

func NewStatusService(repo repository.SyncRepository, notif ReconnectNotifier) *StatusService {
	return &StatusService{
		repo:            repo,
		notif:           notif,
		unauthenticated: make(map[uuid.UUID]bool),
	}
}

// RecordSuccess marks the most recent remote call as succeeded; a user in
// TokenExpired moves back to Connected.
func (s *StatusService) RecordSuccess(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.unauthenticated, userID)
	s.mu.Unlock()
}

// RecordUnauthenticated marks the credential as rejected. The first
// transition into TokenExpired raises a reconnect notification.
func (s *StatusService) RecordUnauthenticated(ctx context.Context, userID uuid.UUID) {
	s.mu.Lock()
	alreadyExpired := s.unauthenticated[userID]
	s.unauthenticated[userID] = true
	s.mu.Unlock()

	if alreadyExpired || s.notif == nil {
		return
	}

	appErr := s.notif.Create(ctx, &notifDto.CreateNotificationRequest{
		UserID:  userID,
		Type:    notifDto.TypeCalendarReconnect,
		Title:   "Calendar disconnected",
		Message: "Google Calendar authorization expired. Please reconnect your calendar.",
	})
	if appErr != nil {
		logger.Error("StatusService:RecordUnauthenticated:Notify:Error", "error", appErr, "user_id", userID)
	}
}

// State computes the connection state for a user.
func (s *StatusService) State(ctx context.Context, userID uuid.UUID) (ConnectionState, *errors.AppError) {
	conn, err := s.repo.GetConnection(ctx, userID)
	if err != nil {
		logger.Error("StatusService:State:GetConnection:Error:", err)
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return StateDisconnected, nil
	}

	s.mu.Lock()
	expired := s.unauthenticated[userID]
	s.mu.Unlock()

	if expired {
		return StateTokenExpired, nil
	}
	return StateConnected, nil
}
