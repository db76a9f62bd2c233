package platform

import (
	"fmt"
	"sync"

	"github.com/1broseidon/tilewm/internal/geometry"
)

// MoveCall records one MoveResize invocation against a MockSource.
type MoveCall struct {
	ID    uint32
	Frame geometry.Rect
}

// MockSource is an in-memory WindowSource for tests. Failures can be
// injected per window and every mutating call is recorded.
type MockSource struct {
	mu sync.Mutex

	screens []Screen
	windows []Window
	active  uint32

	// MoveResizeErr injects a failure for specific window ids.
	MoveResizeErr map[uint32]error

	moves     []MoveCall
	focused   []uint32
	minimized []uint32
	closed    []uint32

	batchActive   bool
	batchBegins   int
	batchReleases int
}

var _ WindowSource = (*MockSource)(nil)

func NewMockSource(screens []Screen, windows []Window) *MockSource {
	return &MockSource{
		screens:       screens,
		windows:       windows,
		MoveResizeErr: make(map[uint32]error),
	}
}

func (m *MockSource) Screens() ([]Screen, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Screen(nil), m.screens...), nil
}

func (m *MockSource) QueryWindows() ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Window(nil), m.windows...), nil
}

func (m *MockSource) ActiveWindow() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

func (m *MockSource) MoveResize(id uint32, frame geometry.Rect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.MoveResizeErr[id]; ok {
		return err
	}
	m.moves = append(m.moves, MoveCall{ID: id, Frame: frame})
	for i := range m.windows {
		if m.windows[i].ID == id {
			m.windows[i].Frame = frame
		}
	}
	return nil
}

func (m *MockSource) FocusRaise(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = id
	m.focused = append(m.focused, id)
	return nil
}

func (m *MockSource) Minimize(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minimized = append(m.minimized, id)
	return nil
}

func (m *MockSource) Close(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = append(m.closed, id)
	return nil
}

type mockGuard struct {
	src *MockSource

	mu       sync.Mutex
	released bool
}

func (g *mockGuard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.released = true

	g.src.mu.Lock()
	defer g.src.mu.Unlock()
	g.src.batchActive = false
	g.src.batchReleases++
	return nil
}

func (m *MockSource) BeginBatch() (BatchGuard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchActive {
		return nil, fmt.Errorf("batch guard already active")
	}
	m.batchActive = true
	m.batchBegins++
	return &mockGuard{src: m}, nil
}

// SetWindows replaces the window list, simulating churn between queries.
func (m *MockSource) SetWindows(windows []Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append([]Window(nil), windows...)
}

// SetScreens replaces the screen list.
func (m *MockSource) SetScreens(screens []Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screens = append([]Screen(nil), screens...)
}

// Moves returns the recorded MoveResize calls in order.
func (m *MockSource) Moves() []MoveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MoveCall(nil), m.moves...)
}

// FocusCalls returns the window ids passed to FocusRaise in order.
func (m *MockSource) FocusCalls() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint32(nil), m.focused...)
}

// CloseCalls returns the window ids passed to Close in order.
func (m *MockSource) CloseCalls() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint32(nil), m.closed...)
}

// BatchCounts reports how many guards were acquired and released.
func (m *MockSource) BatchCounts() (begins, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchBegins, m.batchReleases
}

// BatchActive reports whether a guard is currently held.
func (m *MockSource) BatchActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchActive
}

// ResetCalls clears the recorded history, keeping state.
func (m *MockSource) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves = nil
	m.focused = nil
	m.minimized = nil
	m.closed = nil
}
