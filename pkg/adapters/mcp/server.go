// Package mcp exposes the engine as Model Context Protocol tools, so agent
// frontends can run conversations and inspect flows over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/session"
)

// NewServer builds an MCP server with the engine's tool set.
func NewServer(engine *parley.Engine, sessions *session.Manager) *server.MCPServer {
	s := server.NewMCPServer("parley", parley.Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("process_turn",
			mcp.WithDescription("Send one user message to a conversation and get the engine's reply."),
			mcp.WithString("conversation_id", mcp.Required(),
				mcp.Description("Stable identifier of the conversation.")),
			mcp.WithString("text", mcp.Required(),
				mcp.Description("The user's message for this turn.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			conversationID, err := req.RequireString("conversation_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, err := req.RequireString("text")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			res, err := sessions.HandleTurn(ctx, conversationID, text)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
			}
			return jsonResult(map[string]any{
				"response":   res.Response,
				"pending":    res.Pending,
				"handed_off": res.Snapshot.HandedOff,
				"turn":       res.Snapshot.Turn,
			})
		},
	)

	s.AddTool(
		mcp.NewTool("list_flows",
			mcp.WithDescription("List the flows this engine can run, with triggers and step counts."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type summary struct {
				Name        string   `json:"name"`
				Description string   `json:"description,omitempty"`
				Triggers    []string `json:"triggers,omitempty"`
				Steps       int      `json:"steps"`
			}
			flows := engine.Flows()
			out := make([]summary, 0, len(flows))
			for _, f := range flows {
				out = append(out, summary{
					Name:        f.Name,
					Description: f.Description,
					Triggers:    f.Triggers,
					Steps:       len(f.Steps),
				})
			}
			return jsonResult(out)
		},
	)

	s.AddTool(
		mcp.NewTool("reset_conversation",
			mcp.WithDescription("Forget a conversation's state entirely."),
			mcp.WithString("conversation_id", mcp.Required(),
				mcp.Description("Identifier of the conversation to reset.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			conversationID, err := req.RequireString("conversation_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := sessions.Reset(ctx, conversationID); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
			}
			return mcp.NewToolResultText("conversation reset"), nil
		},
	)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
