package worker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/edvin/commerce-messaging/internal/config"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/workflow"
)

// runner is the lifecycle subset of a Temporal worker.
type runner interface {
	Start() error
	Stop()
}

// Worker polls exactly one task queue. Temporal hands each task to a single
// poller, so several processes on the same queue share the load.
type Worker struct {
	runner runner
	queue  string
	logger zerolog.Logger
}

// New creates a Temporal worker on cfg.TaskQueue with every handler in reg.
func New(c client.Client, cfg *config.Config, reg *engine.Registry, logger zerolog.Logger) *Worker {
	w := sdkworker.New(c, cfg.TaskQueue, Options(cfg, logger))
	reg.ApplyTo(w)
	return newWorker(w, cfg.TaskQueue, logger)
}

func newWorker(r runner, queue string, logger zerolog.Logger) *Worker {
	return &Worker{
		runner: r,
		queue:  queue,
		logger: logger.With().Str("component", "worker").Logger(),
	}
}

// Options maps the worker concurrency settings. Zero values keep the SDK
// defaults.
func Options(cfg *config.Config, logger zerolog.Logger) sdkworker.Options {
	return sdkworker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.WorkerMaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.WorkerMaxConcurrentWorkflows,
		Interceptors: []interceptor.WorkerInterceptor{
			workflow.NewActivityInterceptor(logger),
		},
	}
}

// Run starts polling and blocks until ctx is cancelled, then stops the
// worker. In-flight activities are given the SDK's stop timeout to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.runner.Start(); err != nil {
		return fmt.Errorf("start worker on %s: %w", w.queue, err)
	}
	w.logger.Info().Str("task_queue", w.queue).Msg("worker started")

	<-ctx.Done()

	w.logger.Info().Str("task_queue", w.queue).Msg("stopping worker")
	w.runner.Stop()
	return nil
}
