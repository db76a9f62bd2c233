// Package mcp exposes the daemon's query and command surface as MCP
// tools over stdio, each tool a thin wrapper around the IPC client.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tilewm/internal/ipc"
)

const (
	ServerName    = "tilewm"
	ServerVersion = "0.1.0"
)

// Server is the MCP server bridging tools to the tiling daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates an MCP server backed by the given IPC client.
func NewServer(client *ipc.Client) *Server {
	s := &Server{client: client}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_screens",
		Description: "List the detected screens with their geometry and active workspace.",
	}, s.handleListScreens)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_workspaces",
		Description: "List all workspaces with their screen binding, layout mode and window order.",
	}, s.handleListWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List managed windows with geometry, workspace and focus state. Optionally filter by workspace.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_layout",
		Description: "Switch a workspace's layout mode (monocle, master-stack, split, dwindle, grid, floating) and relayout it.",
	}, s.handleSetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_window",
		Description: "Focus a window by id, or move focus in a direction (next, previous, left, right, up, down) from the focused window.",
	}, s.handleFocusWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_window",
		Description: "Move a window: swap with a directional neighbor, send it to a workspace, or send it to a screen's active workspace.",
	}, s.handleMoveWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_preset",
		Description: "Float a window into a named preset frame from the config (e.g. half-left, center-large).",
	}, s.handleApplyPreset)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "balance",
		Description: "Reset a workspace's layout parameters (master ratio adjustments) to the configured defaults and relayout.",
	}, s.handleBalance)
}
