package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/adapters/file"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

var (
	flagFlows    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "parley",
	Short:         "Deterministic engine for multi-turn, task-oriented dialogues",
	Version:       parley.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFlows, "flows", "./flows",
		"path to a flow YAML file or directory")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info",
		"log level: debug, info, warn, error")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func newLogger() *slog.Logger {
	return logging.New(os.Stderr, flagLogLevel)
}

func loadFlows() ([]domain.FlowDefinition, error) {
	flows, err := file.LoadFlows(flagFlows)
	if err != nil {
		return nil, fmt.Errorf("loading flows from %s: %w", flagFlows, err)
	}
	return flows, nil
}

// demoActions back the Action steps of the bundled example flows. Real
// deployments provide their own executor.
func demoActions(logger *slog.Logger) ports.ActionExecutor {
	var seq atomic.Int64
	return ports.ExecutorFunc(func(_ context.Context, action string, inputs map[string]any) (map[string]any, error) {
		n := seq.Add(1)
		logger.Info("demo action executed", "action", action, "inputs", inputs)
		return map[string]any{"id": fmt.Sprintf("demo-%04d", n)}, nil
	})
}
