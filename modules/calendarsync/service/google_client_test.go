package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-api/core/errors"
	"clinic-api/modules/calendarsync/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientFixture(t *testing.T, handler http.Handler) (*googleCalendarClient, *StatusService, uuid.UUID, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	repo := newFakeSyncRepo()
	userID := uuid.New()
	repo.connections[userID] = "refresh-token"
	status := NewStatusService(repo, &fakeNotifier{})

	client := &googleCalendarClient{
		repo:       repo,
		status:     status,
		httpClient: server.Client(),
		eventsURL:  server.URL,
		getToken: func(context.Context, uuid.UUID) (string, *errors.AppError) {
			return "access-token", nil
		},
	}
	return client, status, userID, server.Close
}

func TestListEventsPaginatesAndSetsQueryParams(t *testing.T) {
	var requests []*http.Request
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"items":         []dto.RemoteEvent{{ID: "a"}, {ID: "b"}},
				"nextPageToken": "page-2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []dto.RemoteEvent{{ID: "c"}},
		})
	})
	client, _, userID, closeFn := newClientFixture(t, handler)
	defer closeFn()

	timeMin := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	timeMax := time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC)
	events, appErr := client.ListEvents(context.Background(), userID, timeMin, timeMax)
	require.Nil(t, appErr)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[2].ID)

	require.Len(t, requests, 2)
	q := requests[0].URL.Query()
	assert.Equal(t, "true", q.Get("singleEvents"))
	assert.Equal(t, "updated", q.Get("orderBy"))
	assert.Equal(t, "true", q.Get("showDeleted"))
	assert.Equal(t, timeMin.Format(time.RFC3339), q.Get("timeMin"))
	assert.Equal(t, "Bearer access-token", requests[0].Header.Get("Authorization"))
	assert.Equal(t, "page-2", requests[1].URL.Query().Get("pageToken"))
}

func TestCreateEventReturnsID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var draft dto.EventDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, "🦷 Nguyen Van A", draft.Summary)
		json.NewEncoder(w).Encode(map[string]string{"id": "evt-77"})
	})
	client, _, userID, closeFn := newClientFixture(t, handler)
	defer closeFn()

	eventID, appErr := client.CreateEvent(context.Background(), userID, &dto.EventDraft{Summary: "🦷 Nguyen Van A"})
	require.Nil(t, appErr)
	assert.Equal(t, "evt-77", eventID)
}

func TestStatusCodeErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusUnauthorized, errors.ErrTokenExpired},
		{http.StatusForbidden, errors.ErrForbidden},
		{http.StatusNotFound, errors.ErrNotFound},
		{http.StatusGone, errors.ErrNotFound},
		{http.StatusBadRequest, errors.ErrInvalidArgument},
		{http.StatusInternalServerError, errors.ErrTransient},
		{http.StatusServiceUnavailable, errors.ErrTransient},
	}

	for _, tc := range cases {
		status := tc.status
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		client, _, userID, closeFn := newClientFixture(t, handler)

		appErr := client.DeleteEvent(context.Background(), userID, "evt-1")
		require.NotNil(t, appErr, "status %d", tc.status)
		assert.Equal(t, tc.code, appErr.Code, "status %d", tc.status)
		closeFn()
	}
}

func TestCredentialRejectionFlipsConnectionState(t *testing.T) {
	fail := true
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "evt-1"})
	})
	client, status, userID, closeFn := newClientFixture(t, handler)
	defer closeFn()

	appErr := client.DeleteEvent(context.Background(), userID, "evt-1")
	require.NotNil(t, appErr)

	state, stateErr := status.State(context.Background(), userID)
	require.Nil(t, stateErr)
	assert.Equal(t, StateTokenExpired, state)

	// The next successful call self-heals the state.
	fail = false
	_, appErr = client.CreateEvent(context.Background(), userID, &dto.EventDraft{})
	require.Nil(t, appErr)

	state, stateErr = status.State(context.Background(), userID)
	require.Nil(t, stateErr)
	assert.Equal(t, StateConnected, state)
}

func TestNetworkFailureIsTransient(t *testing.T) {
	client, _, userID, closeFn := newClientFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closeFn() // server down before the call

	appErr := client.DeleteEvent(context.Background(), userID, "evt-1")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrTransient, appErr.Code)
}
