package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"clinic-api/core/config"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	"clinic-api/modules/calendarsync/dto"
	"clinic-api/modules/calendarsync/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"
	googleEventsAPI       = googleCalendarAPIBase + "/calendars/primary/events"
)

// CalendarAPI wraps the provider's event operations. All calls mint a
// short-lived access token from the stored refresh credential.
type CalendarAPI interface {
	// ListEvents returns all events intersecting [timeMin, timeMax), including
	// cancelled ones, ordered by last-update time.
	ListEvents(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time) ([]dto.RemoteEvent, *errors.AppError)
	CreateEvent(ctx context.Context, userID uuid.UUID, draft *dto.EventDraft) (string, *errors.AppError)
	UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, draft *dto.EventDraft) (string, *errors.AppError)
	DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) *errors.AppError
}

type googleCalendarClient struct {
	repo       repository.SyncRepository
	status     *StatusService
	httpClient *http.Client
	eventsURL  string

	// getToken is swapped out in tests.
	getToken func(ctx context.Context, userID uuid.UUID) (string, *errors.AppError)
}

func NewGoogleCalendarClient(repo repository.SyncRepository, status *StatusService) CalendarAPI {
	c := &googleCalendarClient{
		repo:       repo,
		status:     status,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		eventsURL:  googleEventsAPI,
	}
	c.getToken = c.fetchAccessToken
	return c
}

func (c *googleCalendarClient) ListEvents(ctx context.Context, userID uuid.UUID, timeMin, timeMax time.Time) ([]dto.RemoteEvent, *errors.AppError) {
	var events []dto.RemoteEvent
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("singleEvents", "true")
		params.Set("orderBy", "updated")
		params.Set("showDeleted", "true")
		params.Set("timeMin", timeMin.Format(time.RFC3339))
		params.Set("timeMax", timeMax.Format(time.RFC3339))
		params.Set("maxResults", "250")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, appErr := c.doRequest(ctx, userID, http.MethodGet, c.eventsURL+"?"+params.Encode(), nil)
		if appErr != nil {
			return nil, appErr
		}

		var page struct {
			Items         []dto.RemoteEvent `json:"items"`
			NextPageToken string            `json:"nextPageToken"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			logger.Error("GoogleCalendarClient:ListEvents:Unmarshal:Error:", err)
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to parse events response", err)
		}

		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return events, nil
}

func (c *googleCalendarClient) CreateEvent(ctx context.Context, userID uuid.UUID, draft *dto.EventDraft) (string, *errors.AppError) {
	body, appErr := c.doJSONRequest(ctx, userID, http.MethodPost, c.eventsURL, draft)
	if appErr != nil {
		return "", appErr
	}
	return eventIDFromBody(body)
}

func (c *googleCalendarClient) UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, draft *dto.EventDraft) (string, *errors.AppError) {
	body, appErr := c.doJSONRequest(ctx, userID, http.MethodPut, c.eventsURL+"/"+eventID, draft)
	if appErr != nil {
		return "", appErr
	}
	return eventIDFromBody(body)
}

func (c *googleCalendarClient) DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) *errors.AppError {
	_, appErr := c.doRequest(ctx, userID, http.MethodDelete, c.eventsURL+"/"+eventID, nil)
	return appErr
}

func (c *googleCalendarClient) doJSONRequest(ctx context.Context, userID uuid.UUID, method, rawURL string, payload any) ([]byte, *errors.AppError) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to encode event payload", err)
	}
	return c.doRequest(ctx, userID, method, rawURL, encoded)
}

func (c *googleCalendarClient) doRequest(ctx context.Context, userID uuid.UUID, method, rawURL string, payload []byte) ([]byte, *errors.AppError) {
	accessToken, appErr := c.getToken(ctx, userID)
	if appErr != nil {
		return nil, appErr
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("GoogleCalendarClient:DoRequest:Error", "error", err, "method", method)
		return nil, errors.NewAppError(errors.ErrTransient, "calendar provider unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if appErr := c.mapStatus(ctx, userID, resp.StatusCode, body); appErr != nil {
		return nil, appErr
	}

	c.status.RecordSuccess(userID)
	return body, nil
}

// mapStatus translates provider HTTP statuses into the sync error taxonomy
// and feeds the connection state monitor.
func (c *googleCalendarClient) mapStatus(ctx context.Context, userID uuid.UUID, statusCode int, body []byte) *errors.AppError {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		c.status.RecordUnauthenticated(ctx, userID)
		return errors.NewAppError(errors.ErrTokenExpired, "calendar credential rejected", nil)
	case statusCode == http.StatusForbidden:
		return errors.NewAppError(errors.ErrForbidden, "insufficient calendar scope", nil)
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return errors.NewAppError(errors.ErrNotFound, "remote event not found", nil)
	case statusCode == http.StatusBadRequest:
		logger.Error("GoogleCalendarClient:MapStatus:BadRequest", "body", string(body))
		return errors.NewAppError(errors.ErrInvalidArgument, "calendar provider rejected the event payload", nil)
	case statusCode >= 500:
		return errors.NewAppError(errors.ErrTransient, fmt.Sprintf("calendar provider error: %d", statusCode), nil)
	default:
		return errors.NewAppError(errors.ErrInternalServer, fmt.Sprintf("unexpected calendar provider status: %d", statusCode), nil)
	}
}

// fetchAccessToken mints an access token from the stored refresh credential.
func (c *googleCalendarClient) fetchAccessToken(ctx context.Context, userID uuid.UUID) (string, *errors.AppError) {
	conn, err := c.repo.GetConnection(ctx, userID)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrUnauthorized, "calendar not connected", nil)
	}

	cfg, ok := config.GetSafe()
	if !ok {
		return "", errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		logger.Error("GoogleCalendarClient:FetchAccessToken:Refresh:Error", "error", err, "user_id", userID)
		c.status.RecordUnauthenticated(ctx, userID)
		return "", errors.NewAppError(errors.ErrTokenExpired, "failed to refresh calendar access token", err)
	}

	return token.AccessToken, nil
}

func eventIDFromBody(body []byte) (string, *errors.AppError) {
	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to parse event response", err)
	}
	if result.ID == "" {
		return "", errors.NewAppError(errors.ErrInternalServer, "provider returned no event id", nil)
	}
	return result.ID, nil
}
