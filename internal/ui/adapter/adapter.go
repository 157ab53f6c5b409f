// Package adapter keeps a window's read-only copy of the coordinator
// snapshot in step with broadcasts.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

// Channel is the message surface of the coordinator, either in process or
// across the control API.
type Channel interface {
	Subscribe(buffer int) (<-chan coordinator.Event, func())
	CurrentSnapshot(ctx context.Context) (model.Snapshot, error)
	StartTask(ctx context.Context, taskID string) (model.Snapshot, error)
	PauseTask(ctx context.Context, taskID string) (model.Snapshot, error)
	StopTask(ctx context.Context, taskID string) (model.Snapshot, error)
	ResetTask(ctx context.Context, taskID string) (model.Snapshot, error)
}

const subscriptionBuffer = 16

var (
	// ErrNoActiveTask is returned by Toggle when nothing is selected.
	ErrNoActiveTask = errors.New("no active task")
	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("adapter closed")
)

// Adapter is a read-through cache of the coordinator snapshot.
// The held snapshot is only ever replaced whole, and never by an older one.
type Adapter struct {
	channel Channel
	log     zerolog.Logger

	mu          sync.Mutex
	snapshot    model.Snapshot
	listeners   map[int]func(model.Snapshot)
	disconnects map[int]func()
	nextID      int
	dispose     func()
	done        chan struct{}
	closed      bool
}

func New(channel Channel, log zerolog.Logger) *Adapter {
	return &Adapter{
		channel:   channel,
		log:       log.With().Str("component", "adapter").Logger(),
		listeners:   make(map[int]func(model.Snapshot)),
		disconnects: make(map[int]func()),
	}
}

// Mount subscribes to broadcasts and then resynchronizes from the current
// snapshot, so nothing broadcast in between is lost. Mounting twice is a no-op;
// mounting after Close fails with ErrClosed.
func (adapter *Adapter) Mount(ctx context.Context) error {
	adapter.mu.Lock()
	if adapter.closed {
		adapter.mu.Unlock()
		return ErrClosed
	}
	if adapter.dispose != nil {
		adapter.mu.Unlock()
		return nil
	}
	events, dispose := adapter.channel.Subscribe(subscriptionBuffer)
	done := make(chan struct{})
	adapter.dispose = dispose
	adapter.done = done
	adapter.mu.Unlock()

	go adapter.listen(events, done)

	snapshot, err := adapter.channel.CurrentSnapshot(ctx)
	if err != nil {
		adapter.Unmount()
		return fmt.Errorf("resync snapshot: %w", err)
	}
	adapter.replace(snapshot)
	return nil
}

// Unmount disposes the subscription and waits for the listener to exit.
func (adapter *Adapter) Unmount() {
	adapter.mu.Lock()
	dispose := adapter.dispose
	done := adapter.done
	adapter.dispose = nil
	adapter.done = nil
	adapter.mu.Unlock()

	if dispose == nil {
		return
	}
	dispose()
	<-done
}

// Close unmounts the adapter for good. Owners call it when their surface goes
// away, even if Mount has not run yet.
func (adapter *Adapter) Close() {
	adapter.mu.Lock()
	adapter.closed = true
	adapter.mu.Unlock()
	adapter.Unmount()
}

// Mounted reports whether the adapter currently holds a subscription.
func (adapter *Adapter) Mounted() bool {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return adapter.dispose != nil
}

func (adapter *Adapter) listen(events <-chan coordinator.Event, done chan struct{}) {
	defer close(done)
	for event := range events {
		if event.Type == coordinator.EventPersistenceWarning {
			adapter.log.Warn().Str("message", event.Message).Msg("task progress not saved")
		}
		adapter.replace(event.Snapshot)
	}
	adapter.disconnected(done)
}

// disconnected handles a stream that ended without Unmount, which happens
// when the coordinator stops or its process exits.
func (adapter *Adapter) disconnected(done chan struct{}) {
	adapter.mu.Lock()
	if adapter.done != done {
		adapter.mu.Unlock()
		return
	}
	dispose := adapter.dispose
	adapter.dispose = nil
	adapter.done = nil
	// Versions restart with a new coordinator; the next mount must accept them.
	adapter.snapshot.Version = 0
	hooks := make([]func(), 0, len(adapter.disconnects))
	for _, fn := range adapter.disconnects {
		hooks = append(hooks, fn)
	}
	adapter.mu.Unlock()

	dispose()
	adapter.log.Warn().Msg("event stream ended")
	for _, fn := range hooks {
		fn()
	}
}

func (adapter *Adapter) replace(snapshot model.Snapshot) {
	adapter.mu.Lock()
	if !snapshot.Newer(adapter.snapshot) {
		adapter.mu.Unlock()
		adapter.log.Debug().
			Uint64("held", adapter.snapshot.Version).
			Uint64("received", snapshot.Version).
			Msg("dropped stale snapshot")
		return
	}
	adapter.snapshot = snapshot
	listeners := make([]func(model.Snapshot), 0, len(adapter.listeners))
	for _, fn := range adapter.listeners {
		listeners = append(listeners, fn)
	}
	adapter.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// OnChange registers fn for every accepted snapshot and returns its disposer.
func (adapter *Adapter) OnChange(fn func(model.Snapshot)) func() {
	adapter.mu.Lock()
	id := adapter.nextID
	adapter.nextID++
	adapter.listeners[id] = fn
	adapter.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			adapter.mu.Lock()
			delete(adapter.listeners, id)
			adapter.mu.Unlock()
		})
	}
}

// OnDisconnect registers fn to run when the event stream ends on its own.
func (adapter *Adapter) OnDisconnect(fn func()) func() {
	adapter.mu.Lock()
	id := adapter.nextID
	adapter.nextID++
	adapter.disconnects[id] = fn
	adapter.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			adapter.mu.Lock()
			delete(adapter.disconnects, id)
			adapter.mu.Unlock()
		})
	}
}

// Snapshot returns the held snapshot.
func (adapter *Adapter) Snapshot() model.Snapshot {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return adapter.snapshot
}

// Remaining is the countdown time left on the active task.
func (adapter *Adapter) Remaining() time.Duration {
	snapshot := adapter.Snapshot()
	if !snapshot.Active() || snapshot.Timer.CountingUp {
		return 0
	}
	return time.Duration(snapshot.Timer.RemainingSeconds) * time.Second
}

// Elapsed is the time counted on a count-up active task.
func (adapter *Adapter) Elapsed() time.Duration {
	snapshot := adapter.Snapshot()
	if !snapshot.Active() || !snapshot.Timer.CountingUp {
		return 0
	}
	return time.Duration(snapshot.Timer.ElapsedSeconds) * time.Second
}

// Display formats the active task's clock as MM:SS.
func (adapter *Adapter) Display() string {
	snapshot := adapter.Snapshot()
	if !snapshot.Active() {
		return timer.FormatClock(0)
	}
	return snapshot.Timer.Clock()
}

func (adapter *Adapter) Start(ctx context.Context, taskID string) (model.Snapshot, error) {
	return adapter.forward(adapter.channel.StartTask(ctx, taskID))
}

func (adapter *Adapter) Pause(ctx context.Context, taskID string) (model.Snapshot, error) {
	return adapter.forward(adapter.channel.PauseTask(ctx, taskID))
}

func (adapter *Adapter) Stop(ctx context.Context, taskID string) (model.Snapshot, error) {
	return adapter.forward(adapter.channel.StopTask(ctx, taskID))
}

func (adapter *Adapter) Reset(ctx context.Context, taskID string) (model.Snapshot, error) {
	return adapter.forward(adapter.channel.ResetTask(ctx, taskID))
}

// Toggle pauses the active task when it runs and starts it otherwise.
func (adapter *Adapter) Toggle(ctx context.Context) (model.Snapshot, error) {
	snapshot := adapter.Snapshot()
	if !snapshot.Active() {
		return snapshot, ErrNoActiveTask
	}
	if snapshot.Timer.Mode == timer.ModeRunning {
		return adapter.Pause(ctx, snapshot.ActiveTaskID)
	}
	return adapter.Start(ctx, snapshot.ActiveTaskID)
}

// forward applies the reply snapshot under the same ordering rule as
// broadcasts. Errors still carry the unchanged snapshot.
func (adapter *Adapter) forward(snapshot model.Snapshot, err error) (model.Snapshot, error) {
	if snapshot.Version > 0 {
		adapter.replace(snapshot)
	}
	return snapshot, err
}
