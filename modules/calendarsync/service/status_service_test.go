package service

import (
	"context"
	"testing"

	notifDto "clinic-api/modules/notification/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDisconnectedWithoutCredential(t *testing.T) {
	repo := newFakeSyncRepo()
	svc := NewStatusService(repo, &fakeNotifier{})

	state, appErr := svc.State(context.Background(), uuid.New())
	require.Nil(t, appErr)
	assert.Equal(t, StateDisconnected, state)
}

func TestStateTransitions(t *testing.T) {
	repo := newFakeSyncRepo()
	svc := NewStatusService(repo, &fakeNotifier{})
	userID := uuid.New()
	repo.connections[userID] = "refresh-token"

	state, _ := svc.State(context.Background(), userID)
	assert.Equal(t, StateConnected, state)

	svc.RecordUnauthenticated(context.Background(), userID)
	state, _ = svc.State(context.Background(), userID)
	assert.Equal(t, StateTokenExpired, state)

	svc.RecordSuccess(userID)
	state, _ = svc.State(context.Background(), userID)
	assert.Equal(t, StateConnected, state)
}

func TestReconnectNotificationRaisedOnce(t *testing.T) {
	repo := newFakeSyncRepo()
	notifier := &fakeNotifier{}
	svc := NewStatusService(repo, notifier)
	userID := uuid.New()
	repo.connections[userID] = "refresh-token"

	svc.RecordUnauthenticated(context.Background(), userID)
	svc.RecordUnauthenticated(context.Background(), userID)
	svc.RecordUnauthenticated(context.Background(), userID)

	require.Len(t, notifier.requests, 1)
	assert.Equal(t, notifDto.TypeCalendarReconnect, notifier.requests[0].Type)
	assert.Equal(t, userID, notifier.requests[0].UserID)

	// Recovering and failing again raises a fresh notification.
	svc.RecordSuccess(userID)
	svc.RecordUnauthenticated(context.Background(), userID)
	assert.Len(t, notifier.requests, 2)
}
