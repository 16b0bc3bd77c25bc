package notification

import (
	"clinic-api/core/database"
	"clinic-api/core/middleware"
	"clinic-api/modules/notification/controller"
	"clinic-api/modules/notification/repository"
	"clinic-api/modules/notification/router"
	"clinic-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Setup(e, mw)

	return svc
}
