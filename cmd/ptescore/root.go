package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ptescore/internal/config"
	"github.com/ahrav/go-ptescore/internal/llm/observability"
	"github.com/ahrav/go-ptescore/internal/orchestrator"
	"github.com/ahrav/go-ptescore/internal/provider"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ptescore",
		Short: "Score PTE Academic responses",
		Long: `ptescore scores PTE Academic responses on the 0-90 scale.

Objective items (multiple choice, fill in the blanks, reorder, dictation) are
scored locally. Open-ended items are sent to AI providers in priority order,
falling back to a neutral result when none answers.

Configuration is read from ptescore.yaml (or --config) and PTE_* environment
variables. Provider keys default to OPENAI_API_KEY, ANTHROPIC_API_KEY and
GEMINI_API_KEY.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "Path to a config file (default ./ptescore.yaml if present)")
	cmd.PersistentFlags().String("log-level", "", "Override log.level (debug|info|warn|error)")

	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newHealthCommand())
	cmd.AddCommand(newWorkerCommand())
	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// app is everything a command needs, built from configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	orch   *orchestrator.Orchestrator
	close  func()
}

// newApp loads configuration and builds the provider registry and
// orchestrator. Logs go to logOut so command output stays parseable.
func newApp(ctx context.Context, cmd *cobra.Command, logOut io.Writer) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	logger := observability.NewLogger(logOut, cfg.Observability())
	registry, closeRegistry, err := provider.NewRegistry(ctx, cfg.LLM(), logger, nil)
	if err != nil {
		return nil, fmt.Errorf("building providers: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		orch:   orchestrator.New(cfg.Orchestrator(), registry, orchestrator.WithLogger(logger)),
		close:  closeRegistry,
	}, nil
}
