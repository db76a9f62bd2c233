package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/manager"
	"github.com/1broseidon/tilewm/internal/runtimepath"
)

// Version is reported in GET_STATUS responses.
const Version = "0.1.0"

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	mgr          *manager.Manager
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(mgr *manager.Manager, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	return NewServerWithPath(socketPath, mgr, reloadChan), nil
}

// NewServerWithPath creates a server on an explicit socket path.
func NewServerWithPath(socketPath string, mgr *manager.Manager, reloadChan chan struct{}) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		mgr:        mgr,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandQueryScreens:
		return s.handleQueryScreens()
	case CommandQueryWorkspaces:
		return s.handleQueryWorkspaces()
	case CommandQueryWindows:
		return s.handleQueryWindows()
	case CommandFocusWorkspace:
		return s.handleFocusWorkspace(req.Payload)
	case CommandSetLayout:
		return s.handleSetLayout(req.Payload)
	case CommandBalance:
		return s.handleBalance(req.Payload)
	case CommandSendWorkspace:
		return s.handleSendWorkspace(req.Payload)
	case CommandMoveWindow:
		return s.handleMoveWindow(req.Payload)
	case CommandFocusWindow:
		return s.handleFocusWindow(req.Payload)
	case CommandResizeWindow:
		return s.handleResizeWindow(req.Payload)
	case CommandApplyPreset:
		return s.handleApplyPreset(req.Payload)
	case CommandRelayout:
		return s.handleRelayout(req.Payload)
	case CommandMinimizeWindow:
		return s.handleMinimizeWindow(req.Payload)
	case CommandCloseWindow:
		return s.handleCloseWindow(req.Payload)
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleQueryScreens() *Response {
	screens := s.mgr.QueryScreens()
	infos := make([]ScreenInfo, len(screens))
	for i, sc := range screens {
		infos[i] = ScreenInfo{
			ID:              sc.ID,
			Name:            sc.Name,
			X:               sc.Frame.X,
			Y:               sc.Frame.Y,
			Width:           sc.Frame.Width,
			Height:          sc.Frame.Height,
			ActiveWorkspace: sc.ActiveWorkspace,
		}
	}
	resp, _ := NewOKResponse(ScreensData{Screens: infos})
	return resp
}

func (s *Server) handleQueryWorkspaces() *Response {
	workspaces := s.mgr.QueryWorkspaces()
	infos := make([]WorkspaceInfo, len(workspaces))
	for i, ws := range workspaces {
		infos[i] = WorkspaceInfo{
			Name:    ws.Name,
			Screen:  ws.ScreenID,
			Layout:  string(ws.Layout),
			Windows: ws.Windows,
		}
	}
	resp, _ := NewOKResponse(WorkspacesData{Workspaces: infos})
	return resp
}

func (s *Server) handleQueryWindows() *Response {
	windows := s.mgr.QueryWindows()
	focused, hasFocus := s.mgr.FocusedWindow()

	workspaceOf := make(map[uint32]string)
	for _, ws := range s.mgr.QueryWorkspaces() {
		for _, id := range ws.Windows {
			workspaceOf[id] = ws.Name
		}
	}

	infos := make([]WindowInfo, len(windows))
	for i, w := range windows {
		infos[i] = WindowInfo{
			ID:        w.ID,
			PID:       w.PID,
			App:       w.AppClass,
			Title:     w.Title,
			X:         w.Frame.X,
			Y:         w.Frame.Y,
			Width:     w.Frame.Width,
			Height:    w.Frame.Height,
			Workspace: workspaceOf[w.ID],
			Floating:  w.Floating,
			Minimized: w.Minimized,
			Focused:   hasFocus && w.ID == focused.ID,
		}
	}
	resp, _ := NewOKResponse(WindowsData{Windows: infos})
	return resp
}

func (s *Server) handleFocusWorkspace(payload json.RawMessage) *Response {
	var p FocusWorkspacePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Workspace == "" {
		return NewErrorResponse("workspace is required")
	}
	return resultResponse(s.mgr.FocusWorkspace(p.Workspace))
}

func (s *Server) handleSetLayout(payload json.RawMessage) *Response {
	var p SetLayoutPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Workspace == "" || p.Mode == "" {
		return NewErrorResponse("workspace and mode are required")
	}
	return resultResponse(s.mgr.SetLayout(p.Workspace, config.LayoutMode(p.Mode)))
}

func (s *Server) handleBalance(payload json.RawMessage) *Response {
	var p BalancePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Workspace == "" {
		return NewErrorResponse("workspace is required")
	}
	return resultResponse(s.mgr.Balance(p.Workspace))
}

func (s *Server) handleSendWorkspace(payload json.RawMessage) *Response {
	var p SendWorkspacePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Workspace == "" {
		return NewErrorResponse("workspace is required")
	}
	return resultResponse(s.mgr.SendWorkspaceToScreen(p.Workspace, p.Screen))
}

func (s *Server) handleMoveWindow(payload json.RawMessage) *Response {
	var p MoveWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	switch {
	case p.Direction != "":
		dir, err := manager.ParseDirection(p.Direction)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return resultResponse(s.mgr.MoveWindowDirection(p.Window, dir))
	case p.Workspace != "":
		return resultResponse(s.mgr.MoveWindowToWorkspace(p.Window, p.Workspace))
	case p.Screen != nil:
		return resultResponse(s.mgr.MoveWindowToScreen(p.Window, *p.Screen))
	default:
		return NewErrorResponse("one of direction, workspace or screen is required")
	}
}

func (s *Server) handleFocusWindow(payload json.RawMessage) *Response {
	var p FocusWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Direction != "" {
		dir, err := manager.ParseDirection(p.Direction)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return resultResponse(s.mgr.FocusDirection(dir))
	}
	if p.Window == 0 {
		return NewErrorResponse("window or direction is required")
	}
	return resultResponse(s.mgr.FocusWindow(p.Window))
}

func (s *Server) handleResizeWindow(payload json.RawMessage) *Response {
	var p ResizeWindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return resultResponse(s.mgr.ResizeWindow(p.Window, p.Dimension, p.Delta))
}

func (s *Server) handleApplyPreset(payload json.RawMessage) *Response {
	var p ApplyPresetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Preset == "" {
		return NewErrorResponse("preset is required")
	}
	return resultResponse(s.mgr.ApplyPreset(p.Window, p.Preset))
}

func (s *Server) handleRelayout(payload json.RawMessage) *Response {
	var p RelayoutPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
		}
	}
	return resultResponse(s.mgr.Relayout(p.Workspace))
}

func (s *Server) handleMinimizeWindow(payload json.RawMessage) *Response {
	var p WindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return resultResponse(s.mgr.MinimizeWindow(p.Window))
}

func (s *Server) handleCloseWindow(payload json.RawMessage) *Response {
	var p WindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return resultResponse(s.mgr.CloseWindow(p.Window))
}

// handleReload tells the daemon to reload its configuration. The daemon
// owns the config file; the server only rings the bell.
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Screens:       len(s.mgr.QueryScreens()),
		Workspaces:    len(s.mgr.QueryWorkspaces()),
		Windows:       len(s.mgr.QueryWindows()),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: s.mgr.Running(),
		Version:       Version,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// resultResponse maps a manager error onto the wire
func resultResponse(err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
