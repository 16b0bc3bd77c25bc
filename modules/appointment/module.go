package appointment

import (
	"clinic-api/core/database"
	"clinic-api/core/middleware"
	"clinic-api/modules/appointment/controller"
	"clinic-api/modules/appointment/repository"
	"clinic-api/modules/appointment/router"
	"clinic-api/modules/appointment/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware, syncer service.CalendarSyncer) {
	repo := repository.NewAppointmentRepository(db)
	svc := service.NewAppointmentService(repo, syncer)
	ctrl := controller.NewAppointmentController(svc)

	router.NewAppointmentRouter(ctrl).Setup(e, mw)
}
