package router

import (
	"clinic-api/core/middleware"
	"clinic-api/modules/calendarsync/controller"

	"github.com/labstack/echo/v4"
)

type SyncRouter struct {
	controller *controller.SyncController
}

func NewSyncRouter(controller *controller.SyncController) *SyncRouter {
	return &SyncRouter{controller: controller}
}

func (r *SyncRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// The provider redirect carries no bearer token; the state token is the
	// only credential on this route.
	v1.GET("/public/calendar/callback", r.controller.Callback)

	private := v1.Group("/private/calendar")
	private.Use(mw.AuthMiddleware())

	private.POST("/connect", r.controller.Connect)
	private.GET("/status", r.controller.Status)
	private.POST("/sync", r.controller.Sync)
	private.POST("/pull", r.controller.Pull)
}
