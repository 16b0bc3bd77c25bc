package service

import (
	"context"
	"time"

	"clinic-api/core/config"
	"clinic-api/core/constants"
	"clinic-api/core/errors"
	"clinic-api/core/logger"
	"clinic-api/core/utils"
	"clinic-api/modules/calendarsync/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const calendarEventsScope = "https://www.googleapis.com/auth/calendar.events"

// OAuthService drives the Google consent handshake: it issues signed-out
// authorization URLs and turns the redirect callback into a stored refresh
// credential.
type OAuthService struct {
	repo   repository.SyncRepository
	status *StatusService
}

func NewOAuthService(repo repository.SyncRepository, status *StatusService) *OAuthService {
	return &OAuthService{repo: repo, status: status}
}

func oauthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		RedirectURL:  cfg.GoogleAPI.RedirectURI,
		Scopes:       []string{calendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// BeginAuthorization mints a single-use state token and returns the provider
// consent URL. With force set, the provider re-prompts for consent so a fresh
// refresh token is issued even for an already-consented account.
func (s *OAuthService) BeginAuthorization(ctx context.Context, userID uuid.UUID, force bool) (string, *errors.AppError) {
	cfg, ok := config.GetSafe()
	if !ok {
		return "", errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	state := utils.GenerateRandomString(32)
	expiresAt := time.Now().Add(constants.OAuthStateTTL)
	if err := s.repo.SaveOAuthState(ctx, state, userID, expiresAt); err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to persist state token", err)
	}

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if force {
		opts = append(opts, oauth2.ApprovalForce)
	}

	return oauthConfig(cfg).AuthCodeURL(state, opts...), nil
}

// CompleteAuthorization handles the provider redirect. The state token is
// consumed exactly once; replays and forgeries fail with ErrInvalidState. A
// consent response without a refresh token is only acceptable when a prior
// credential already exists.
func (s *OAuthService) CompleteAuthorization(ctx context.Context, code, state string) (uuid.UUID, *errors.AppError) {
	cfg, ok := config.GetSafe()
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	stateRecord, err := s.repo.ConsumeOAuthState(ctx, state)
	if err != nil {
		return uuid.Nil, errors.NewAppError(errors.ErrInternalServer, "failed to verify state token", err)
	}
	if stateRecord == nil {
		logger.Warn("OAuthService:CompleteAuthorization:StateRejected", "state", state)
		return uuid.Nil, errors.NewAppError(errors.ErrInvalidState, "state token is invalid, expired, or already used", nil)
	}
	userID := stateRecord.UserID

	token, err := oauthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		logger.Error("OAuthService:CompleteAuthorization:Exchange:Error", "error", err, "user_id", userID)
		return userID, errors.NewAppError(errors.ErrAuthorizationFailed, "authorization code exchange failed", err)
	}

	if token.RefreshToken == "" {
		existing, err := s.repo.GetConnection(ctx, userID)
		if err != nil {
			return userID, errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
		}
		if existing == nil {
			// Google only returns a refresh token on the first consent unless
			// re-consent is forced; without one there is nothing to store.
			logger.Warn("OAuthService:CompleteAuthorization:NoRefreshToken", "user_id", userID)
			return userID, errors.NewAppError(errors.ErrRefreshTokenMissing, "provider returned no refresh token", nil)
		}
		s.status.RecordSuccess(userID)
		return userID, nil
	}

	if err := s.repo.SaveConnection(ctx, userID, token.RefreshToken); err != nil {
		return userID, errors.NewAppError(errors.ErrInternalServer, "failed to store calendar connection", err)
	}

	s.status.RecordSuccess(userID)
	logger.Info("Calendar connected", "user_id", userID)
	return userID, nil
}
