package worker

import (
	"clinic-api/core/config"
	"clinic-api/core/logger"

	"github.com/hibiken/asynq"
)

// Worker owns the asynq server and the periodic scheduler for background
// tasks. Modules register their handlers on Mux before Start.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func NewWorker(cfg config.RedisConfig) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
	})
	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Worker{
		server:    server,
		scheduler: scheduler,
		mux:       asynq.NewServeMux(),
	}
}

func (w *Worker) Mux() *asynq.ServeMux {
	return w.mux
}

// RegisterPeriodic schedules a task with no payload on a cron-style spec
// (e.g. "@every 5m").
func (w *Worker) RegisterPeriodic(spec string, taskType string) error {
	_, err := w.scheduler.Register(spec, asynq.NewTask(taskType, nil))
	return err
}

func (w *Worker) Start() error {
	go func() {
		if err := w.scheduler.Run(); err != nil {
			logger.Error("Worker:Scheduler:Run:Error:", err)
		}
	}()
	return w.server.Start(w.mux)
}

func (w *Worker) Stop() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}
