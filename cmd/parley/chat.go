package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/internal/presentation/tui"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the engine from the terminal",
	Long: `Starts an interactive conversation against the loaded flows.
Type /reset to forget the conversation and /quit to leave.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	renderer := tui.NewRenderer(interactive)

	names := make([]string, 0, len(flows))
	for _, f := range engine.Flows() {
		names = append(names, f.Name)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer.Banner(names))

	conversationID := uuid.NewString()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if interactive {
			fmt.Fprint(cmd.OutOrStdout(), "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := sessions.Reset(cmd.Context(), conversationID); err != nil {
				logger.Warn("reset failed", "error", err)
			}
			conversationID = uuid.NewString()
			fmt.Fprintln(cmd.OutOrStdout(), "(conversation reset)")
			continue
		}

		res, err := sessions.HandleTurn(cmd.Context(), conversationID, line)
		if err != nil {
			logger.Error("turn failed", "error", err)
			fmt.Fprintln(cmd.OutOrStdout(), "Something went wrong; try again.")
			continue
		}
		fmt.Fprint(cmd.OutOrStdout(), renderer.Reply(res.Response))
		fmt.Fprint(cmd.OutOrStdout(), renderer.Prompt(res.Pending))
	}
}
