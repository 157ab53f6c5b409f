package coordinator

import (
	"errors"
	"fmt"

	"tasktray/internal/core/model"
)

var (
	// ErrTaskNotFound indicates a control message named an unknown task.
	ErrTaskNotFound = model.ErrTaskNotFound
	// ErrNotActiveTask indicates pause or stop for a task that is not active.
	ErrNotActiveTask = errors.New("task is not the active task")
	// ErrTaskFinished indicates an attempt to start or select a completed task.
	ErrTaskFinished = errors.New("task is already finished")
	// ErrStopped indicates the coordinator loop is no longer running.
	ErrStopped = errors.New("coordinator stopped")
	// ErrIdleUnsupported indicates idle detection is not available on this system.
	ErrIdleUnsupported = errors.New("idle detection unsupported")
)

// PersistenceError reports a task write that failed after retrying.
type PersistenceError struct {
	TaskID   string
	Attempts int
	Err      error
}

func (err *PersistenceError) Error() string {
	return fmt.Sprintf("persist task %s: failed after %d attempts: %v", err.TaskID, err.Attempts, err.Err)
}

func (err *PersistenceError) Unwrap() error {
	return err.Err
}
