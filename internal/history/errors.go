package history

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// PersistError reports a history write that failed, including after quota recovery.
type PersistError struct {
	Op    string
	Cause error
}

func (e *PersistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("history %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("history %s failed", e.Op)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}
