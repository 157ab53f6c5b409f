package model

import (
	"errors"
	"time"

	"tasktray/internal/core/timer"
)

// Status is the task-store view of a task's lifecycle.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// StatusFor maps a timer mode to the status persisted with the task.
func StatusFor(mode timer.Mode) Status {
	switch mode {
	case timer.ModeRunning:
		return StatusInProgress
	case timer.ModePaused:
		return StatusPaused
	case timer.ModeFinished:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// Task is a tracked unit of work.
type Task struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Category        string      `json:"category,omitempty"`
	DurationSeconds int64       `json:"taskDurationSeconds"`
	CountingUp      bool        `json:"isCountingUp"`
	Timer           timer.State `json:"timerState"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// EnsureTimer initializes an idle timer when the task has never been tracked.
func (task *Task) EnsureTimer() {
	if task.Timer.Mode != "" {
		return
	}
	task.Timer = timer.New(task.DurationSeconds, task.CountingUp)
	task.Status = StatusFor(task.Timer.Mode)
}

// SetTimer replaces the timer and keeps Status in step with it.
func (task *Task) SetTimer(state timer.State) {
	task.Timer = state
	task.Status = StatusFor(state.Mode)
}

// TaskUpdate is the subset of a task written back to the task store.
type TaskUpdate struct {
	ID     string
	Status Status
	Timer  timer.State
}

// Update returns the write-back payload for the task.
func (task Task) Update() TaskUpdate {
	return TaskUpdate{ID: task.ID, Status: task.Status, Timer: task.Timer}
}

// Snapshot is the broadcast view of the coordinator state.
// Timer is nil when no task is active.
type Snapshot struct {
	Version              uint64       `json:"version"`
	ActiveTaskID         string       `json:"activeTaskId"`
	TaskName             string       `json:"taskName,omitempty"`
	Timer                *timer.State `json:"timerState"`
	UncompletedTaskCount int          `json:"uncompletedTaskCount"`
}

// Active reports whether a task is currently selected.
func (snapshot Snapshot) Active() bool {
	return snapshot.ActiveTaskID != "" && snapshot.Timer != nil
}

// Live reports whether the active task is running or paused.
func (snapshot Snapshot) Live() bool {
	return snapshot.Active() && snapshot.Timer.Live()
}

// Newer reports whether snapshot should replace other.
func (snapshot Snapshot) Newer(other Snapshot) bool {
	return snapshot.Version >= other.Version
}

// ErrTaskNotFound is returned by task stores for unknown ids.
var ErrTaskNotFound = errors.New("task not found")
