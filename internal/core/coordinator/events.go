package coordinator

import (
	"time"

	"tasktray/internal/core/model"
)

// EventType names a broadcast. The values double as wire names.
type EventType string

const (
	EventTimerUpdate        EventType = "timer-update"
	EventTimerStopped       EventType = "timer-stopped"
	EventTimerReset         EventType = "timer-reset"
	EventCurrentTaskUpdated EventType = "current-task-updated"
	EventPersistenceWarning EventType = "persistence-warning"
)

// Event is delivered to every subscriber.
// For EventTimerStopped, Task is the task whose timer just finished.
type Event struct {
	Type     EventType      `json:"type"`
	Snapshot model.Snapshot `json:"snapshot"`
	Task     *model.Task    `json:"task,omitempty"`
	Message  string         `json:"message,omitempty"`
	At       time.Time      `json:"at"`
}
