package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-api/core/cache"
	"clinic-api/core/config"
	"clinic-api/core/constants"
	"clinic-api/core/database"
	"clinic-api/core/logger"
	"clinic-api/core/middleware"
	"clinic-api/core/worker"
	"clinic-api/modules/appointment"
	"clinic-api/modules/calendarsync"
	"clinic-api/modules/notification"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the HTTP server and the background worker in one process and
// blocks until shutdown.
func Run() error {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}

	redisCache, err := cache.InitCache(cfg.Redis)
	if err != nil {
		return err
	}

	w := worker.NewWorker(cfg.Redis)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	mw := middleware.NewMiddleware(redisCache)

	notifSvc := notification.Init(e, db, mw)
	outbound := calendarsync.Init(e, db, mw, notifSvc, w.Mux())
	appointment.Init(e, db, mw, outbound)

	spec := fmt.Sprintf("@every %dm", cfg.Sync.IntervalMinutes)
	if err := w.RegisterPeriodic(spec, constants.TaskCalendarReconcile); err != nil {
		return fmt.Errorf("failed to register reconcile task: %w", err)
	}

	go func() {
		if err := w.Start(); err != nil {
			logger.Error("Server:Worker:Start:Error:", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Start:Error:", err)
		}
	}()
	logger.Info("Server started", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
