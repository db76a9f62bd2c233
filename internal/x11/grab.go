package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
)

// ServerGrab suspends X server processing for other clients so a burst
// of geometry changes lands as one visual update. Release is idempotent
// and must run even when an individual change inside the batch fails.
type ServerGrab struct {
	conn *Connection

	mu       sync.Mutex
	released bool
}

// GrabServer acquires the server grab. Only one grab may be active per
// connection; a nested acquisition is rejected rather than deadlocking.
func (c *Connection) GrabServer() (*ServerGrab, error) {
	c.grabMu.Lock()
	if c.grabActive {
		c.grabMu.Unlock()
		return nil, fmt.Errorf("server grab already active")
	}
	c.grabActive = true
	c.grabMu.Unlock()

	if err := xproto.GrabServerChecked(c.XUtil.Conn()).Check(); err != nil {
		c.grabMu.Lock()
		c.grabActive = false
		c.grabMu.Unlock()
		return nil, fmt.Errorf("failed to grab server: %w", err)
	}
	return &ServerGrab{conn: c}, nil
}

// Release ungrabs the server exactly once. Later calls are no-ops.
func (g *ServerGrab) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return nil
	}
	g.released = true

	err := xproto.UngrabServerChecked(g.conn.XUtil.Conn()).Check()
	// The flush matters: without it the ungrab can sit in the output
	// buffer while other clients stay frozen.
	g.conn.XUtil.Sync()

	g.conn.grabMu.Lock()
	g.conn.grabActive = false
	g.conn.grabMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to ungrab server: %w", err)
	}
	return nil
}
