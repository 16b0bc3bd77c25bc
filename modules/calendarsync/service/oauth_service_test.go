package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"clinic-api/core/config"
	"clinic-api/core/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	config.Set(&config.Config{
		GoogleAPI: config.GoogleAPIConfig{
			ClientID:        "client-id",
			ClientSecret:    "client-secret",
			RedirectURI:     "https://clinic.example.com/api/v1/public/calendar/callback",
			SuccessRedirect: "https://clinic.example.com/calendar-connected",
			ErrorRedirect:   "https://clinic.example.com/calendar-error",
		},
	})
}

func TestBeginAuthorizationBuildsConsentURL(t *testing.T) {
	setTestConfig(t)
	repo := newFakeSyncRepo()
	svc := NewOAuthService(repo, NewStatusService(repo, &fakeNotifier{}))
	userID := uuid.New()

	authURL, appErr := svc.BeginAuthorization(context.Background(), userID, false)
	require.Nil(t, appErr)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Contains(t, q.Get("scope"), "calendar.events")
	assert.Empty(t, q.Get("prompt"))

	state := q.Get("state")
	require.NotEmpty(t, state)
	record, ok := repo.states[state]
	require.True(t, ok, "state token must be persisted")
	assert.Equal(t, userID, record.UserID)
}

func TestBeginAuthorizationForceReconsent(t *testing.T) {
	setTestConfig(t)
	repo := newFakeSyncRepo()
	svc := NewOAuthService(repo, NewStatusService(repo, &fakeNotifier{}))

	authURL, appErr := svc.BeginAuthorization(context.Background(), uuid.New(), true)
	require.Nil(t, appErr)
	assert.True(t, strings.Contains(authURL, "approval_prompt=force") || strings.Contains(authURL, "prompt=consent"))
}

func TestBeginAuthorizationStatesAreUnique(t *testing.T) {
	setTestConfig(t)
	repo := newFakeSyncRepo()
	svc := NewOAuthService(repo, NewStatusService(repo, &fakeNotifier{}))
	userID := uuid.New()

	_, appErr := svc.BeginAuthorization(context.Background(), userID, false)
	require.Nil(t, appErr)
	_, appErr = svc.BeginAuthorization(context.Background(), userID, false)
	require.Nil(t, appErr)
	assert.Len(t, repo.states, 2)
}

func TestCompleteAuthorizationRejectsUnknownState(t *testing.T) {
	setTestConfig(t)
	repo := newFakeSyncRepo()
	svc := NewOAuthService(repo, NewStatusService(repo, &fakeNotifier{}))

	_, appErr := svc.CompleteAuthorization(context.Background(), "auth-code", "forged-state")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidState, appErr.Code)
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	setTestConfig(t)
	repo := newFakeSyncRepo()
	svc := NewOAuthService(repo, NewStatusService(repo, &fakeNotifier{}))
	userID := uuid.New()

	authURL, appErr := svc.BeginAuthorization(context.Background(), userID, false)
	require.Nil(t, appErr)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	first, err := repo.ConsumeOAuthState(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, userID, first.UserID)

	second, err := repo.ConsumeOAuthState(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, second, "a consumed state token must not be accepted again")

	// The callback path reports the replay as an invalid state.
	_, appErr = svc.CompleteAuthorization(context.Background(), "auth-code", state)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidState, appErr.Code)
}
