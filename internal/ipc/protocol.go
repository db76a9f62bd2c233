package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandQueryScreens    CommandType = "QUERY_SCREENS"
	CommandQueryWorkspaces CommandType = "QUERY_WORKSPACES"
	CommandQueryWindows    CommandType = "QUERY_WINDOWS"
	CommandFocusWorkspace  CommandType = "FOCUS_WORKSPACE"
	CommandSetLayout       CommandType = "SET_LAYOUT"
	CommandBalance         CommandType = "BALANCE"
	CommandSendWorkspace   CommandType = "SEND_WORKSPACE_TO_SCREEN"
	CommandMoveWindow      CommandType = "MOVE_WINDOW"
	CommandFocusWindow     CommandType = "FOCUS_WINDOW"
	CommandResizeWindow    CommandType = "RESIZE_WINDOW"
	CommandApplyPreset     CommandType = "APPLY_PRESET"
	CommandRelayout        CommandType = "RELAYOUT"
	CommandMinimizeWindow  CommandType = "MINIMIZE_WINDOW"
	CommandCloseWindow     CommandType = "CLOSE_WINDOW"
	CommandReload          CommandType = "RELOAD"
	CommandGetStatus       CommandType = "GET_STATUS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Screens       int    `json:"screens"`
	Workspaces    int    `json:"workspaces"`
	Windows       int    `json:"windows"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
	Version       string `json:"version,omitempty"`
}

// ScreenInfo describes one detected output
type ScreenInfo struct {
	ID              uint32 `json:"id"`
	Name            string `json:"name"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	ActiveWorkspace string `json:"active_workspace,omitempty"`
}

type ScreensData struct {
	Screens []ScreenInfo `json:"screens"`
}

// WorkspaceInfo describes one workspace and its window order
type WorkspaceInfo struct {
	Name    string   `json:"name"`
	Screen  uint32   `json:"screen"`
	Layout  string   `json:"layout"`
	Windows []uint32 `json:"windows"`
}

type WorkspacesData struct {
	Workspaces []WorkspaceInfo `json:"workspaces"`
}

// WindowInfo describes one managed window
type WindowInfo struct {
	ID        uint32 `json:"id"`
	PID       uint32 `json:"pid"`
	App       string `json:"app"`
	Title     string `json:"title"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Workspace string `json:"workspace,omitempty"`
	Floating  bool   `json:"floating,omitempty"`
	Minimized bool   `json:"minimized,omitempty"`
	Focused   bool   `json:"focused,omitempty"`
}

type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
}

type FocusWorkspacePayload struct {
	Workspace string `json:"workspace"`
}

type SetLayoutPayload struct {
	Workspace string `json:"workspace"`
	Mode      string `json:"mode"`
}

type BalancePayload struct {
	Workspace string `json:"workspace"`
}

type SendWorkspacePayload struct {
	Workspace string `json:"workspace"`
	Screen    uint32 `json:"screen"`
}

// MoveWindowPayload moves a window by direction, to a workspace or to a
// screen; exactly one target must be set.
type MoveWindowPayload struct {
	Window    uint32  `json:"window"`
	Direction string  `json:"direction,omitempty"`
	Workspace string  `json:"workspace,omitempty"`
	Screen    *uint32 `json:"screen,omitempty"`
}

// FocusWindowPayload focuses a window by id or by direction from the
// currently focused one.
type FocusWindowPayload struct {
	Window    uint32 `json:"window,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type ResizeWindowPayload struct {
	Window    uint32 `json:"window"`
	Dimension string `json:"dimension"` // "width" or "height"
	Delta     int    `json:"delta"`
}

type ApplyPresetPayload struct {
	Window uint32 `json:"window"`
	Preset string `json:"preset"`
}

type RelayoutPayload struct {
	Workspace string `json:"workspace,omitempty"` // Empty relayouts everything.
}

type WindowPayload struct {
	Window uint32 `json:"window"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
