package main

import (
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley"
	mcpadapter "github.com/parleyhq/parley/pkg/adapters/mcp"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	flows, err := loadFlows()
	if err != nil {
		return err
	}

	engine, err := parley.New(flows,
		parley.WithLogger(logger),
		parley.WithActionExecutor(demoActions(logger)),
	)
	if err != nil {
		return err
	}
	sessions := session.NewManager(engine, memory.NewStore(), session.WithLogger(logger))

	logger.Info("mcp server on stdio", "flows", len(flows))
	return mcpadapter.ServeStdio(mcpadapter.NewServer(engine, sessions))
}
