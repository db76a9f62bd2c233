package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/tilewm/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return NewClientWithPath(socketPath)
}

// NewClientWithPath creates a client against an explicit socket path.
func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	// Set deadline
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Marshal request
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Send request
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Read response
	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse response
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for error response
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// send marshals a payload, issues the command and discards the data
func (c *Client) send(cmd CommandType, payload interface{}) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}
	_, err := c.sendRequest(req)
	return err
}

// QueryScreens retrieves the detected screens
func (c *Client) QueryScreens() (*ScreensData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandQueryScreens})
	if err != nil {
		return nil, err
	}
	var data ScreensData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse screens data: %w", err)
	}
	return &data, nil
}

// QueryWorkspaces retrieves all workspaces with their window order
func (c *Client) QueryWorkspaces() (*WorkspacesData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandQueryWorkspaces})
	if err != nil {
		return nil, err
	}
	var data WorkspacesData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse workspaces data: %w", err)
	}
	return &data, nil
}

// QueryWindows retrieves all managed windows
func (c *Client) QueryWindows() (*WindowsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandQueryWindows})
	if err != nil {
		return nil, err
	}
	var data WindowsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse windows data: %w", err)
	}
	return &data, nil
}

// FocusWorkspace makes a workspace the active one on its screen
func (c *Client) FocusWorkspace(workspace string) error {
	return c.send(CommandFocusWorkspace, FocusWorkspacePayload{Workspace: workspace})
}

// SetLayout switches a workspace's layout mode
func (c *Client) SetLayout(workspace, mode string) error {
	return c.send(CommandSetLayout, SetLayoutPayload{Workspace: workspace, Mode: mode})
}

// Balance resets a workspace's layout parameters to config defaults
func (c *Client) Balance(workspace string) error {
	return c.send(CommandBalance, BalancePayload{Workspace: workspace})
}

// SendWorkspaceToScreen rebinds a workspace to another screen
func (c *Client) SendWorkspaceToScreen(workspace string, screen uint32) error {
	return c.send(CommandSendWorkspace, SendWorkspacePayload{Workspace: workspace, Screen: screen})
}

// MoveWindowDirection swaps a window with its neighbor
func (c *Client) MoveWindowDirection(window uint32, direction string) error {
	return c.send(CommandMoveWindow, MoveWindowPayload{Window: window, Direction: direction})
}

// MoveWindowToWorkspace reassigns a window
func (c *Client) MoveWindowToWorkspace(window uint32, workspace string) error {
	return c.send(CommandMoveWindow, MoveWindowPayload{Window: window, Workspace: workspace})
}

// MoveWindowToScreen moves a window to a screen's active workspace
func (c *Client) MoveWindowToScreen(window uint32, screen uint32) error {
	return c.send(CommandMoveWindow, MoveWindowPayload{Window: window, Screen: &screen})
}

// FocusWindow gives a window the input focus
func (c *Client) FocusWindow(window uint32) error {
	return c.send(CommandFocusWindow, FocusWindowPayload{Window: window})
}

// FocusDirection moves focus from the focused window to a neighbor
func (c *Client) FocusDirection(direction string) error {
	return c.send(CommandFocusWindow, FocusWindowPayload{Direction: direction})
}

// ResizeWindow grows or shrinks a window by a signed pixel delta
func (c *Client) ResizeWindow(window uint32, dimension string, delta int) error {
	return c.send(CommandResizeWindow, ResizeWindowPayload{Window: window, Dimension: dimension, Delta: delta})
}

// ApplyPreset floats a window into a named preset frame
func (c *Client) ApplyPreset(window uint32, preset string) error {
	return c.send(CommandApplyPreset, ApplyPresetPayload{Window: window, Preset: preset})
}

// Relayout recomputes one workspace, or everything for ""
func (c *Client) Relayout(workspace string) error {
	return c.send(CommandRelayout, RelayoutPayload{Workspace: workspace})
}

// MinimizeWindow asks the daemon to minimize a window
func (c *Client) MinimizeWindow(window uint32) error {
	return c.send(CommandMinimizeWindow, WindowPayload{Window: window})
}

// CloseWindow politely asks a window to close
func (c *Client) CloseWindow(window uint32) error {
	return c.send(CommandCloseWindow, WindowPayload{Window: window})
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.send(CommandReload, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
