package manager

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by commands issued before the manager loop
// starts or after it has shut down.
var ErrNotRunning = errors.New("manager is not running")

// OperationError reports a single failed window mutation inside a
// batch. The batch continues past it; the caller gets the collected
// failures joined together.
type OperationError struct {
	Window uint32
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("window %d: operation failed: %v", e.Window, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
