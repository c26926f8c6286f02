package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ptescore/internal/worker"
	"github.com/ahrav/go-ptescore/pkg/events"
)

func newWorkerCommand() *cobra.Command {
	var hostPort, namespace, taskQueue string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal scoring worker",
		Long: `Run a Temporal worker serving ScoreAttemptWorkflow and the ScoreResponse
activity until interrupted. Scored responses are logged as events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			tc := a.cfg.Temporal
			if hostPort != "" {
				tc.HostPort = hostPort
			}
			if namespace != "" {
				tc.Namespace = namespace
			}
			if taskQueue != "" {
				tc.TaskQueue = taskQueue
			}
			return worker.Run(ctx, tc, a.orch, events.NewLogSink(a.logger), a.logger)
		},
	}
	cmd.Flags().StringVar(&hostPort, "temporal-host", "", "Override temporal.host_port")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Override temporal.namespace")
	cmd.Flags().StringVar(&taskQueue, "task-queue", "", "Override temporal.task_queue")
	return cmd
}
