package calendarsync

import (
	"clinic-api/core/constants"
	"clinic-api/core/database"
	"clinic-api/core/middleware"
	apptRepository "clinic-api/modules/appointment/repository"
	"clinic-api/modules/calendarsync/controller"
	"clinic-api/modules/calendarsync/repository"
	"clinic-api/modules/calendarsync/router"
	"clinic-api/modules/calendarsync/service"
	notifService "clinic-api/modules/notification/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init wires the sync engine and returns the outbound service, which the
// appointment module uses as its calendar syncer.
func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware, notifSvc *notifService.NotificationService, mux *asynq.ServeMux) *service.OutboundService {
	repo := repository.NewSyncRepository(db)
	apptRepo := apptRepository.NewAppointmentRepository(db)

	statusSvc := service.NewStatusService(repo, notifSvc)
	calendar := service.NewGoogleCalendarClient(repo, statusSvc)
	outbound := service.NewOutboundService(repo, apptRepo, calendar)
	reconciler := service.NewReconcilerService(repo, apptRepo, calendar)
	oauthSvc := service.NewOAuthService(repo, statusSvc)
	syncSvc := service.NewSyncService(outbound, apptRepo, calendar)

	ctrl := controller.NewSyncController(oauthSvc, statusSvc, syncSvc)
	router.NewSyncRouter(ctrl).Setup(e, mw)

	mux.HandleFunc(constants.TaskCalendarReconcile, reconciler.HandleReconcileTask)

	return outbound
}
