package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkorobkov/dealroom-pipeline/internal/bootstrap"
	"github.com/mkorobkov/dealroom-pipeline/internal/config"
)

const service = "pipeline-worker"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	jobTimeout := time.Duration(cfg.JobTimeoutMinutes) * time.Minute

	app.Logger.Info("worker subscribed", "subject", cfg.NATSJobSubject)
	err = app.Queue.SubscribeJobs(ctx, func(handlerCtx context.Context, jobID string) error {
		if job, err := app.Jobs.GetByID(handlerCtx, jobID); err == nil {
			app.Metrics.ObserveQueueLag(service, time.Since(job.CreatedAt))
		}

		runCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		app.Metrics.StartJob()
		started := time.Now()
		runErr := app.Pipeline.Run(runCtx, jobID)
		app.Metrics.FinishJob(service, time.Since(started), runErr)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
