// Package ipc exposes the timer coordinator to other processes over the
// single-instance localhost listener: control messages as JSON requests and
// broadcasts as a server-sent event stream.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
)

// MessageType names a control message.
type MessageType string

const (
	MessageStartTimer             MessageType = "start-timer"
	MessagePauseTimer             MessageType = "pause-timer"
	MessageStopTimer              MessageType = "stop-timer"
	MessageCompleteTask           MessageType = "complete-task"
	MessageResetTimer             MessageType = "reset-timer"
	MessageGetCurrentTask         MessageType = "get-current-task"
	MessageSetCurrentTask         MessageType = "set-current-task"
	MessageUpdateUncompletedTasks MessageType = "update-uncompleted-tasks"
)

const (
	messagesPath = "/v1/messages"
	eventsPath   = "/v1/events"
	focusPath    = "/v1/focus"
	healthPath   = "/v1/health"
)

// Message is a control request.
type Message struct {
	Type   MessageType `json:"type" binding:"required"`
	TaskID string      `json:"taskId,omitempty"`
	Count  *int        `json:"count,omitempty"`
}

// Reply answers every message. Error and Code are set for rejected messages,
// in which case Snapshot is the unchanged state.
type Reply struct {
	Snapshot model.Snapshot `json:"snapshot"`
	Task     *model.Task    `json:"task,omitempty"`
	Error    string         `json:"error,omitempty"`
	Code     string         `json:"code,omitempty"`
}

const (
	CodeTaskNotFound  = "task_not_found"
	CodeNotActiveTask = "not_active_task"
	CodeTaskFinished  = "task_finished"
	CodeBadRequest    = "bad_request"
	CodeUnavailable   = "unavailable"
	CodeInternal      = "internal"
)

var errBadRequest = errors.New("bad request")

// Controller is everything the control API forwards to.
type Controller interface {
	Subscribe(buffer int) (<-chan coordinator.Event, func())
	StartTask(ctx context.Context, taskID string) (model.Snapshot, error)
	PauseTask(ctx context.Context, taskID string) (model.Snapshot, error)
	StopTask(ctx context.Context, taskID string) (model.Snapshot, error)
	CompleteTask(ctx context.Context, taskID string) (model.Snapshot, error)
	ResetTask(ctx context.Context, taskID string) (model.Snapshot, error)
	SetCurrentTask(ctx context.Context, taskID string) (model.Snapshot, error)
	CurrentSnapshot(ctx context.Context) (model.Snapshot, error)
	CurrentTask(ctx context.Context) (*model.Task, model.Snapshot, error)
	UpdateUncompletedTasks(ctx context.Context, count int) (model.Snapshot, error)
}

// RemoteError is a rejection reported by the running instance.
type RemoteError struct {
	Code    string
	Message string
}

func (err *RemoteError) Error() string {
	return fmt.Sprintf("%s (%s)", err.Message, err.Code)
}

// Unwrap maps the code back to the coordinator sentinel, so callers can use
// errors.Is on both sides of the process boundary.
func (err *RemoteError) Unwrap() error {
	switch err.Code {
	case CodeTaskNotFound:
		return coordinator.ErrTaskNotFound
	case CodeNotActiveTask:
		return coordinator.ErrNotActiveTask
	case CodeTaskFinished:
		return coordinator.ErrTaskFinished
	case CodeUnavailable:
		return coordinator.ErrStopped
	case CodeBadRequest:
		return errBadRequest
	default:
		return nil
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, coordinator.ErrTaskNotFound):
		return http.StatusNotFound, CodeTaskNotFound
	case errors.Is(err, coordinator.ErrNotActiveTask):
		return http.StatusConflict, CodeNotActiveTask
	case errors.Is(err, coordinator.ErrTaskFinished):
		return http.StatusConflict, CodeTaskFinished
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, coordinator.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
