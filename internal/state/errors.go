package state

import "errors"

// Sentinel errors for commands referencing stale or unknown ids. These
// are recoverable: the command is rejected and no state is mutated.
var (
	ErrWindowNotFound    = errors.New("window not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrScreenNotFound    = errors.New("screen not found")
)
