package controller

import (
	"time"

	"clinic-api/core/constants"
	"clinic-api/core/controller"
	"clinic-api/core/errors"
	"clinic-api/core/middleware"
	"clinic-api/modules/appointment/dto"
	"clinic-api/modules/appointment/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AppointmentController struct {
	controller.BaseController
	service service.AppointmentService
}

func NewAppointmentController(svc service.AppointmentService) *AppointmentController {
	return &AppointmentController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

// Create handles POST /api/v1/private/appointments
func (c *AppointmentController) Create(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	req := new(dto.CreateAppointmentRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request data")
	}

	resp, appErr := c.service.Create(ctx.Request().Context(), userID, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Appointment created")
}

// Get handles GET /api/v1/private/appointments/:id
func (c *AppointmentController) Get(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "invalid appointment id")
	}

	resp, appErr := c.service.Get(ctx.Request().Context(), userID, id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Appointment")
}

// List handles GET /api/v1/private/appointments?from=...&to=...
func (c *AppointmentController) List(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	from, to, appErr := parseWindow(ctx.QueryParam("from"), ctx.QueryParam("to"))
	if appErr != nil {
		return c.BadRequest(appErr.Code, appErr.Message)
	}

	resp, svcErr := c.service.List(ctx.Request().Context(), userID, from, to)
	if svcErr != nil {
		return c.ErrorResponse(ctx, svcErr)
	}
	return c.SuccessResponse(ctx, resp, "Appointments")
}

// Update handles PUT /api/v1/private/appointments/:id
func (c *AppointmentController) Update(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "invalid appointment id")
	}

	req := new(dto.UpdateAppointmentRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request data")
	}

	resp, appErr := c.service.Update(ctx.Request().Context(), userID, id, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Appointment updated")
}

// Delete handles DELETE /api/v1/private/appointments/:id
func (c *AppointmentController) Delete(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "invalid appointment id")
	}

	resp, appErr := c.service.Delete(ctx.Request().Context(), userID, id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, resp, "Appointment deleted")
}

// AddPayment handles POST /api/v1/private/appointments/:id/payments
func (c *AppointmentController) AddPayment(ctx echo.Context) error {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return c.Unauthorized(errors.ErrUnauthorized, "invalid user")
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "invalid appointment id")
	}

	req := new(dto.AddPaymentRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "invalid request data")
	}

	payment, appErr := c.service.AddPayment(ctx.Request().Context(), userID, id, req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, payment, "Payment recorded")
}

func userIDFromContext(ctx echo.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Get(middleware.ContextKeyUserID).(uuid.UUID)
	return userID, ok
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, *errors.AppError) {
	now := time.Now()
	from := now.AddDate(0, -constants.SyncWindowPastMonths, 0)
	to := now.AddDate(0, constants.SyncWindowFutureMonths, 0)

	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "invalid from date", err)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "invalid to date", err)
		}
		to = parsed
	}
	return from, to, nil
}
