package controller

import (
	"net/http"
	"net/url"

	"clinic-api/core/config"
	"clinic-api/core/controller"
	"clinic-api/core/errors"
	"clinic-api/core/middleware"
	"clinic-api/modules/calendarsync/dto"
	"clinic-api/modules/calendarsync/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SyncController struct {
	controller.BaseController
	oauth  *service.OAuthService
	status *service.StatusService
	sync   *service.SyncService
}

func NewSyncController(oauth *service.OAuthService, status *service.StatusService, sync *service.SyncService) *SyncController {
	return &SyncController{
		BaseController: controller.NewBaseController(),
		oauth:          oauth,
		status:         status,
		sync:           sync,
	}
}

// Connect handles POST /api/v1/private/calendar/connect. With ?force=true the
// provider re-prompts for consent, which re-issues a refresh token.
func (c *SyncController) Connect(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	force := ctx.QueryParam("force") == "true"

	authURL, appErr := c.oauth.BeginAuthorization(ctx.Request().Context(), userID, force)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, &dto.ConnectResponse{URL: authURL}, "Authorization URL")
}

// Callback handles GET /api/v1/public/calendar/callback, the provider
// redirect. It always answers with a browser redirect, never JSON.
func (c *SyncController) Callback(ctx echo.Context) error {
	cfg := config.Get()

	if reason := ctx.QueryParam("error"); reason != "" {
		return redirectWithReason(ctx, cfg.GoogleAPI.ErrorRedirect, reason)
	}

	code := ctx.QueryParam("code")
	state := ctx.QueryParam("state")
	if code == "" || state == "" {
		return redirectWithReason(ctx, cfg.GoogleAPI.ErrorRedirect, "missing_parameters")
	}

	if _, appErr := c.oauth.CompleteAuthorization(ctx.Request().Context(), code, state); appErr != nil {
		return redirectWithReason(ctx, cfg.GoogleAPI.ErrorRedirect, string(appErr.Code))
	}

	return ctx.Redirect(http.StatusFound, cfg.GoogleAPI.SuccessRedirect)
}

// Status handles GET /api/v1/private/calendar/status.
func (c *SyncController) Status(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	state, appErr := c.status.State(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, &dto.StatusResponse{
		Connected: state == service.StateConnected,
		State:     string(state),
	}, "Calendar status")
}

// Sync handles POST /api/v1/private/calendar/sync.
func (c *SyncController) Sync(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	req := new(dto.SyncRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request data")
	}

	resp, appErr := c.sync.HandleSyncRequest(ctx.Request().Context(), userID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Synced")
}

// Pull handles POST /api/v1/private/calendar/pull.
func (c *SyncController) Pull(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	req := new(dto.PullRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request data")
	}

	resp, appErr := c.sync.Pull(ctx.Request().Context(), userID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Remote events")
}

func userIDFromContext(ctx echo.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uuid.UUID)
	return userID, ok
}

func redirectWithReason(ctx echo.Context, base, reason string) error {
	return ctx.Redirect(http.StatusFound, base+"?reason="+url.QueryEscape(reason))
}
