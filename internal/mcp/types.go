package mcp

import "github.com/1broseidon/tilewm/internal/ipc"

// ListScreensInput is the input for the list_screens tool.
type ListScreensInput struct{}

// ListScreensOutput is the output for the list_screens tool.
type ListScreensOutput struct {
	Screens []ipc.ScreenInfo `json:"screens"`
}

// ListWorkspacesInput is the input for the list_workspaces tool.
type ListWorkspacesInput struct{}

// ListWorkspacesOutput is the output for the list_workspaces tool.
type ListWorkspacesOutput struct {
	Workspaces []ipc.WorkspaceInfo `json:"workspaces"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Only list windows on this workspace"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// SetLayoutInput is the input for the set_layout tool.
type SetLayoutInput struct {
	Workspace string `json:"workspace" jsonschema:"required,Workspace name"`
	Mode      string `json:"mode" jsonschema:"required,Layout mode: monocle, master-stack, split, dwindle, grid or floating"`
}

// SetLayoutOutput is the output for the set_layout tool.
type SetLayoutOutput struct {
	Workspace string `json:"workspace"`
	Mode      string `json:"mode"`
}

// FocusWindowInput is the input for the focus_window tool.
type FocusWindowInput struct {
	Window    uint32 `json:"window,omitempty" jsonschema:"Window id to focus"`
	Direction string `json:"direction,omitempty" jsonschema:"Move focus from the focused window: next, previous, left, right, up or down"`
}

// FocusWindowOutput is the output for the focus_window tool.
type FocusWindowOutput struct {
	Focused uint32 `json:"focused,omitempty"`
}

// MoveWindowInput is the input for the move_window tool. Exactly one of
// direction, workspace or screen must be set.
type MoveWindowInput struct {
	Window    uint32  `json:"window" jsonschema:"required,Window id to move"`
	Direction string  `json:"direction,omitempty" jsonschema:"Swap with the neighbor in this direction"`
	Workspace string  `json:"workspace,omitempty" jsonschema:"Move the window to this workspace"`
	Screen    *uint32 `json:"screen,omitempty" jsonschema:"Move the window to this screen's active workspace"`
}

// MoveWindowOutput is the output for the move_window tool.
type MoveWindowOutput struct {
	Window uint32 `json:"window"`
}

// ApplyPresetInput is the input for the apply_preset tool.
type ApplyPresetInput struct {
	Window uint32 `json:"window" jsonschema:"required,Window id"`
	Preset string `json:"preset" jsonschema:"required,Name of a floating preset from the config"`
}

// ApplyPresetOutput is the output for the apply_preset tool.
type ApplyPresetOutput struct {
	Window uint32 `json:"window"`
	Preset string `json:"preset"`
}

// BalanceInput is the input for the balance tool.
type BalanceInput struct {
	Workspace string `json:"workspace" jsonschema:"required,Workspace name"`
}

// BalanceOutput is the output for the balance tool.
type BalanceOutput struct {
	Workspace string `json:"workspace"`
}
