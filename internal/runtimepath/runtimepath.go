// Package runtimepath resolves where the daemon keeps its IPC socket.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
)

const socketName = "tilewm.sock"

// Dir picks the per-user runtime directory: XDG_RUNTIME_DIR when set,
// /run/user/<uid> when it exists, otherwise a private dir under /tmp
// created on demand.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}

	uid := os.Getuid()
	if dir := fmt.Sprintf("/run/user/%d", uid); dirExists(dir) {
		return dir, nil
	}

	fallback := fmt.Sprintf("/tmp/tilewm-runtime-%d", uid)
	if err := os.MkdirAll(fallback, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return fallback, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, socketName), nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
