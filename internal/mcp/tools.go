package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleListScreens(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListScreensInput) (*mcpsdk.CallToolResult, ListScreensOutput, error) {
	data, err := s.client.QueryScreens()
	if err != nil {
		return nil, ListScreensOutput{}, err
	}
	return nil, ListScreensOutput{Screens: data.Screens}, nil
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWorkspacesInput) (*mcpsdk.CallToolResult, ListWorkspacesOutput, error) {
	data, err := s.client.QueryWorkspaces()
	if err != nil {
		return nil, ListWorkspacesOutput{}, err
	}
	return nil, ListWorkspacesOutput{Workspaces: data.Workspaces}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.QueryWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	if args.Workspace == "" {
		return nil, ListWindowsOutput{Windows: data.Windows}, nil
	}
	out := ListWindowsOutput{}
	for _, w := range data.Windows {
		if w.Workspace == args.Workspace {
			out.Windows = append(out.Windows, w)
		}
	}
	return nil, out, nil
}

func (s *Server) handleSetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args SetLayoutInput) (*mcpsdk.CallToolResult, SetLayoutOutput, error) {
	if args.Workspace == "" || args.Mode == "" {
		return nil, SetLayoutOutput{}, fmt.Errorf("workspace and mode are required")
	}
	if err := s.client.SetLayout(args.Workspace, args.Mode); err != nil {
		return nil, SetLayoutOutput{}, err
	}
	return nil, SetLayoutOutput{Workspace: args.Workspace, Mode: args.Mode}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusWindowInput) (*mcpsdk.CallToolResult, FocusWindowOutput, error) {
	switch {
	case args.Direction != "":
		if err := s.client.FocusDirection(args.Direction); err != nil {
			return nil, FocusWindowOutput{}, err
		}
		return nil, FocusWindowOutput{}, nil
	case args.Window != 0:
		if err := s.client.FocusWindow(args.Window); err != nil {
			return nil, FocusWindowOutput{}, err
		}
		return nil, FocusWindowOutput{Focused: args.Window}, nil
	default:
		return nil, FocusWindowOutput{}, fmt.Errorf("window or direction is required")
	}
}

func (s *Server) handleMoveWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveWindowInput) (*mcpsdk.CallToolResult, MoveWindowOutput, error) {
	var err error
	switch {
	case args.Direction != "":
		err = s.client.MoveWindowDirection(args.Window, args.Direction)
	case args.Workspace != "":
		err = s.client.MoveWindowToWorkspace(args.Window, args.Workspace)
	case args.Screen != nil:
		err = s.client.MoveWindowToScreen(args.Window, *args.Screen)
	default:
		err = fmt.Errorf("one of direction, workspace or screen is required")
	}
	if err != nil {
		return nil, MoveWindowOutput{}, err
	}
	return nil, MoveWindowOutput{Window: args.Window}, nil
}

func (s *Server) handleApplyPreset(_ context.Context, _ *mcpsdk.CallToolRequest, args ApplyPresetInput) (*mcpsdk.CallToolResult, ApplyPresetOutput, error) {
	if args.Preset == "" {
		return nil, ApplyPresetOutput{}, fmt.Errorf("preset is required")
	}
	if err := s.client.ApplyPreset(args.Window, args.Preset); err != nil {
		return nil, ApplyPresetOutput{}, err
	}
	return nil, ApplyPresetOutput{Window: args.Window, Preset: args.Preset}, nil
}

func (s *Server) handleBalance(_ context.Context, _ *mcpsdk.CallToolRequest, args BalanceInput) (*mcpsdk.CallToolResult, BalanceOutput, error) {
	if args.Workspace == "" {
		return nil, BalanceOutput{}, fmt.Errorf("workspace is required")
	}
	if err := s.client.Balance(args.Workspace); err != nil {
		return nil, BalanceOutput{}, err
	}
	return nil, BalanceOutput{Workspace: args.Workspace}, nil
}
