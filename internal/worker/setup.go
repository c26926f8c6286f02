package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-ptescore/internal/config"
	"github.com/ahrav/go-ptescore/internal/scoring"
	"github.com/ahrav/go-ptescore/pkg/events"
)

// DefaultTaskQueue is used when the configuration leaves it empty.
const DefaultTaskQueue = "pte-scoring"

// Run connects to Temporal, serves the scoring task queue until ctx is
// canceled, then stops the worker gracefully.
func Run(ctx context.Context, cfg config.TemporalSettings, scorer scoring.Scorer, sink events.EventSink, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	taskQueue := cfg.TaskQueue
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    log.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to temporal at %s: %w", cfg.HostPort, err)
	}
	defer c.Close()

	w := sdkworker.New(c, taskQueue, sdkworker.Options{})
	RegisterAll(w, scorer, sink)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	logger.Info("worker started", "task_queue", taskQueue, "namespace", cfg.Namespace)

	<-ctx.Done()
	w.Stop()
	logger.Info("worker stopped", "task_queue", taskQueue)
	return nil
}
