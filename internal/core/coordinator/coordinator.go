package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tasktray/internal/core/clock"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

// TaskStore is the task persistence the coordinator reads from and writes back to.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, update model.TaskUpdate) error
}

// Options contains collaborators for the Coordinator.
type Options struct {
	Store  TaskStore
	Clock  clock.Source
	Now    func() time.Time
	Logger zerolog.Logger
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdPause
	cmdStop
	cmdComplete
	cmdReset
	cmdSelect
	cmdSnapshot
	cmdCurrentTask
	cmdUncompleted
	cmdTick
	cmdPauseActive
)

type command struct {
	ctx    context.Context
	kind   commandKind
	taskID string
	count  int
	reply  chan result
}

type result struct {
	snapshot model.Snapshot
	task     *model.Task
	err      error
}

// Coordinator owns the authoritative timer state. Every mutation, including
// clock ticks, is applied by a single loop goroutine in arrival order.
type Coordinator struct {
	config  model.CoordinatorConfig
	store   TaskStore
	clock   clock.Source
	now     func() time.Time
	log     zerolog.Logger
	persist *persister

	commands chan command
	stopCh   chan struct{}
	doneCh   chan struct{}

	// Owned by the loop goroutine.
	tasks       map[string]*model.Task
	activeID    string
	uncompleted int
	version     uint64

	mu          sync.Mutex
	started     bool
	stopped     bool
	subscribers map[int]chan Event
	nextSubID   int
	last        model.Snapshot
}

// New creates a Coordinator. Call Start to begin processing.
func New(config model.CoordinatorConfig, options Options) *Coordinator {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if config.DriftWarnThreshold <= 0 {
		config.DriftWarnThreshold = 30 * time.Second
	}
	if options.Clock == nil {
		options.Clock = clock.NewTicker()
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	coordinator := &Coordinator{
		config:      config,
		store:       options.Store,
		clock:       options.Clock,
		now:         options.Now,
		log:         options.Logger.With().Str("component", "coordinator").Logger(),
		commands:    make(chan command),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		tasks:       make(map[string]*model.Task),
		subscribers: make(map[int]chan Event),
	}
	coordinator.persist = newPersister(options.Store, config.PersistRetryDelay, coordinator.log, coordinator.warn)
	return coordinator
}

// Subscribe registers an observer. The returned function removes it and
// closes the channel; calling it more than once is safe.
func (coordinator *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	coordinator.mu.Lock()
	if coordinator.stopped {
		coordinator.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := coordinator.nextSubID
	coordinator.nextSubID++
	coordinator.subscribers[id] = ch
	coordinator.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			coordinator.mu.Lock()
			defer coordinator.mu.Unlock()
			if existing, ok := coordinator.subscribers[id]; ok {
				delete(coordinator.subscribers, id)
				close(existing)
			}
		})
	}
}

// SubscriberCount returns the number of registered observers.
func (coordinator *Coordinator) SubscriberCount() int {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()
	return len(coordinator.subscribers)
}

// Start launches the command loop and the clock. A Coordinator runs at most once.
func (coordinator *Coordinator) Start() {
	coordinator.mu.Lock()
	if coordinator.started || coordinator.stopped {
		coordinator.mu.Unlock()
		return
	}
	coordinator.started = true
	coordinator.mu.Unlock()

	coordinator.clock.Start(coordinator.config.TickInterval)
	go coordinator.persist.run()
	go coordinator.run()
}

// Stop terminates the loop, flushes pending writes and closes observers.
func (coordinator *Coordinator) Stop() {
	coordinator.mu.Lock()
	if coordinator.stopped {
		coordinator.mu.Unlock()
		return
	}
	coordinator.stopped = true
	started := coordinator.started
	coordinator.mu.Unlock()

	close(coordinator.stopCh)
	if started {
		<-coordinator.doneCh
		coordinator.clock.Stop()
		coordinator.persist.stop()
	}

	coordinator.mu.Lock()
	subscribers := coordinator.subscribers
	coordinator.subscribers = make(map[int]chan Event)
	coordinator.mu.Unlock()

	for _, ch := range subscribers {
		close(ch)
	}
}

// StartTask makes the task active and running, pausing any other running task.
func (coordinator *Coordinator) StartTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdStart, taskID: taskID})
	return res.snapshot, res.err
}

// PauseTask pauses the task if it is the active task.
func (coordinator *Coordinator) PauseTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdPause, taskID: taskID})
	return res.snapshot, res.err
}

// StopTask finishes the active task and clears it.
func (coordinator *Coordinator) StopTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdStop, taskID: taskID})
	return res.snapshot, res.err
}

// CompleteTask finishes the task whether or not it is active.
func (coordinator *Coordinator) CompleteTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdComplete, taskID: taskID})
	return res.snapshot, res.err
}

// ResetTask replaces the task timer with a fresh idle one.
func (coordinator *Coordinator) ResetTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdReset, taskID: taskID})
	return res.snapshot, res.err
}

// SetCurrentTask selects the task as active without starting it.
func (coordinator *Coordinator) SetCurrentTask(ctx context.Context, taskID string) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdSelect, taskID: taskID})
	return res.snapshot, res.err
}

// CurrentSnapshot returns the current snapshot.
func (coordinator *Coordinator) CurrentSnapshot(ctx context.Context) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdSnapshot})
	return res.snapshot, res.err
}

// CurrentTask returns a copy of the active task, or nil when none is active.
func (coordinator *Coordinator) CurrentTask(ctx context.Context) (*model.Task, model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdCurrentTask})
	return res.task, res.snapshot, res.err
}

// UpdateUncompletedTasks sets the count shown while no task is active.
func (coordinator *Coordinator) UpdateUncompletedTasks(ctx context.Context, count int) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdUncompleted, count: count})
	return res.snapshot, res.err
}

// Tick applies one clock tick. The clock source uses the same path internally.
func (coordinator *Coordinator) Tick(ctx context.Context) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdTick})
	return res.snapshot, res.err
}

// PauseActive pauses whichever task is running.
func (coordinator *Coordinator) PauseActive(ctx context.Context) (model.Snapshot, error) {
	res := coordinator.do(ctx, command{kind: cmdPauseActive})
	return res.snapshot, res.err
}

func (coordinator *Coordinator) do(ctx context.Context, cmd command) result {
	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)

	select {
	case coordinator.commands <- cmd:
	case <-coordinator.stopCh:
		return result{err: ErrStopped}
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}

	select {
	case res := <-cmd.reply:
		return res
	case <-ctx.Done():
		return result{err: ctx.Err()}
	}
}

func (coordinator *Coordinator) run() {
	defer close(coordinator.doneCh)
	ticks := coordinator.clock.C()

	for {
		select {
		case <-coordinator.stopCh:
			coordinator.flushActive()
			return
		case <-ticks:
			coordinator.tick()
		case cmd := <-coordinator.commands:
			cmd.reply <- coordinator.handle(cmd)
		}
	}
}

func (coordinator *Coordinator) handle(cmd command) result {
	switch cmd.kind {
	case cmdStart:
		return coordinator.startTask(cmd.ctx, cmd.taskID)
	case cmdPause:
		return coordinator.pauseTask(cmd.taskID)
	case cmdStop:
		return coordinator.stopTask(cmd.taskID)
	case cmdComplete:
		return coordinator.completeTask(cmd.ctx, cmd.taskID)
	case cmdReset:
		return coordinator.resetTask(cmd.ctx, cmd.taskID)
	case cmdSelect:
		return coordinator.selectTask(cmd.ctx, cmd.taskID)
	case cmdSnapshot:
		return result{snapshot: coordinator.snapshot()}
	case cmdCurrentTask:
		res := result{snapshot: coordinator.snapshot()}
		if task := coordinator.active(); task != nil {
			copied := *task
			res.task = &copied
		}
		return res
	case cmdUncompleted:
		if cmd.count < 0 {
			cmd.count = 0
		}
		coordinator.uncompleted = cmd.count
		return result{snapshot: coordinator.emit(EventTimerUpdate, nil)}
	case cmdTick:
		return result{snapshot: coordinator.tick()}
	case cmdPauseActive:
		return coordinator.pauseTask(coordinator.activeID)
	}
	return result{snapshot: coordinator.snapshot(), err: fmt.Errorf("unknown command %d", cmd.kind)}
}

func (coordinator *Coordinator) startTask(ctx context.Context, taskID string) result {
	task, err := coordinator.resolve(ctx, taskID)
	if err != nil {
		coordinator.log.Warn().Err(err).Str("task_id", taskID).Msg("start ignored")
		return coordinator.failed(err)
	}
	if task.Timer.Mode == timer.ModeFinished {
		coordinator.log.Debug().Str("task_id", taskID).Msg("start ignored for finished task")
		return coordinator.failed(ErrTaskFinished)
	}

	now := coordinator.now()
	switched := coordinator.activeID != task.ID
	if switched {
		coordinator.demoteActive(now)
		coordinator.activeID = task.ID
	}

	if coordinator.apply(task, timer.Action{Type: timer.ActionStart, At: now}) {
		// Realign the clock so the first tick lands a full interval after the start.
		coordinator.clock.Start(coordinator.config.TickInterval)
		coordinator.log.Info().Str("task_id", task.ID).Str("task", task.Name).Msg("timer started")
	}
	if switched {
		coordinator.emit(EventCurrentTaskUpdated, task)
	}
	return result{snapshot: coordinator.emit(EventTimerUpdate, nil)}
}

func (coordinator *Coordinator) pauseTask(taskID string) result {
	task := coordinator.active()
	if task == nil || taskID == "" || task.ID != taskID {
		coordinator.log.Debug().Str("task_id", taskID).Msg("pause ignored for inactive task")
		return coordinator.failed(ErrNotActiveTask)
	}
	if !coordinator.apply(task, timer.Action{Type: timer.ActionPause, At: coordinator.now()}) {
		return result{snapshot: coordinator.snapshot()}
	}
	coordinator.log.Info().Str("task_id", task.ID).Int64("seconds", task.Timer.Display()).Msg("timer paused")
	return result{snapshot: coordinator.emit(EventTimerUpdate, nil)}
}

func (coordinator *Coordinator) stopTask(taskID string) result {
	task := coordinator.active()
	if task == nil || taskID == "" || task.ID != taskID {
		coordinator.log.Debug().Str("task_id", taskID).Msg("stop ignored for inactive task")
		return coordinator.failed(ErrNotActiveTask)
	}
	return result{snapshot: coordinator.finish(task, coordinator.now())}
}

func (coordinator *Coordinator) completeTask(ctx context.Context, taskID string) result {
	if taskID != "" && taskID == coordinator.activeID {
		return coordinator.stopTask(taskID)
	}
	task, err := coordinator.resolve(ctx, taskID)
	if err != nil {
		coordinator.log.Warn().Err(err).Str("task_id", taskID).Msg("complete ignored")
		return coordinator.failed(err)
	}
	if !coordinator.apply(task, timer.Action{Type: timer.ActionStop, At: coordinator.now()}) {
		return result{snapshot: coordinator.snapshot()}
	}
	if coordinator.uncompleted > 0 {
		coordinator.uncompleted--
	}
	return result{snapshot: coordinator.emit(EventTimerUpdate, task)}
}

func (coordinator *Coordinator) resetTask(ctx context.Context, taskID string) result {
	task, err := coordinator.resolve(ctx, taskID)
	if err != nil {
		coordinator.log.Warn().Err(err).Str("task_id", taskID).Msg("reset ignored")
		return coordinator.failed(err)
	}
	if task.Timer.Mode == timer.ModeFinished {
		coordinator.uncompleted++
	}
	task.SetTimer(timer.New(task.DurationSeconds, task.CountingUp))
	coordinator.persist.enqueue(task.Update())
	coordinator.log.Info().Str("task_id", task.ID).Msg("timer reset")
	return result{snapshot: coordinator.emit(EventTimerReset, task)}
}

func (coordinator *Coordinator) selectTask(ctx context.Context, taskID string) result {
	task, err := coordinator.resolve(ctx, taskID)
	if err != nil {
		coordinator.log.Warn().Err(err).Str("task_id", taskID).Msg("select ignored")
		return coordinator.failed(err)
	}
	if task.Timer.Mode == timer.ModeFinished {
		return coordinator.failed(ErrTaskFinished)
	}
	if coordinator.activeID == task.ID {
		return result{snapshot: coordinator.snapshot()}
	}
	coordinator.demoteActive(coordinator.now())
	coordinator.activeID = task.ID
	return result{snapshot: coordinator.emit(EventCurrentTaskUpdated, task)}
}

func (coordinator *Coordinator) tick() model.Snapshot {
	task := coordinator.active()
	if task == nil || task.Timer.Mode != timer.ModeRunning {
		return coordinator.snapshot()
	}

	now := coordinator.now()
	seconds := coordinator.elapsedSeconds(task, now)
	if seconds == 0 {
		return coordinator.snapshot()
	}
	// Advance LastTickAt by whole seconds only, so the fraction carries
	// into the next tick instead of being charged or lost.
	at := now
	if !task.Timer.LastTickAt.IsZero() {
		at = task.Timer.LastTickAt.Add(time.Duration(seconds) * time.Second)
	}
	task.SetTimer(timer.Apply(task.Timer, timer.Action{Type: timer.ActionTick, Seconds: seconds, At: at}))

	if task.Timer.Mode == timer.ModeFinished {
		return coordinator.finish(task, now)
	}
	return coordinator.emit(EventTimerUpdate, nil)
}

// elapsedSeconds measures real time since the last tick so a late or
// suspended clock is corrected in a single step. It returns zero when less
// than half a second has accrued.
func (coordinator *Coordinator) elapsedSeconds(task *model.Task, now time.Time) int64 {
	last := task.Timer.LastTickAt
	if last.IsZero() {
		return 1
	}
	elapsed := now.Sub(last)
	if elapsed > coordinator.config.DriftWarnThreshold {
		coordinator.log.Warn().
			Str("task_id", task.ID).
			Dur("elapsed", elapsed).
			Msg("clock drift detected, applying elapsed time in one step")
	}
	seconds := int64(elapsed.Round(time.Second) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return seconds
}

// finish moves the task to finished, clears it as active and announces it once.
func (coordinator *Coordinator) finish(task *model.Task, now time.Time) model.Snapshot {
	coordinator.apply(task, timer.Action{Type: timer.ActionStop, At: now})
	if coordinator.activeID == task.ID {
		coordinator.activeID = ""
	}
	if coordinator.uncompleted > 0 {
		coordinator.uncompleted--
	}
	// A tick that reached zero already set the mode, so persist unconditionally.
	coordinator.persist.enqueue(task.Update())
	coordinator.log.Info().Str("task_id", task.ID).Str("task", task.Name).Msg("timer finished")

	finished := *task
	return coordinator.emit(EventTimerStopped, &finished)
}

// demoteActive pauses the active task if it is running, keeping its progress.
func (coordinator *Coordinator) demoteActive(now time.Time) {
	task := coordinator.active()
	if task == nil {
		return
	}
	if coordinator.apply(task, timer.Action{Type: timer.ActionPause, At: now}) {
		coordinator.log.Info().Str("task_id", task.ID).Msg("previous task paused")
	}
}

// apply runs the state machine and queues a write when the state changed.
func (coordinator *Coordinator) apply(task *model.Task, action timer.Action) bool {
	before := task.Timer
	task.SetTimer(timer.Apply(task.Timer, action))
	if task.Timer == before {
		return false
	}
	coordinator.persist.enqueue(task.Update())
	return true
}

func (coordinator *Coordinator) resolve(ctx context.Context, taskID string) (*model.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("empty task id: %w", ErrTaskNotFound)
	}
	if task, ok := coordinator.tasks[taskID]; ok {
		return task, nil
	}
	if coordinator.store == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
	}

	loaded, err := coordinator.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	loaded.EnsureTimer()
	// A task saved as running belongs to a previous session; it resumes paused.
	if loaded.Timer.Mode == timer.ModeRunning {
		loaded.SetTimer(timer.Apply(loaded.Timer, timer.Action{Type: timer.ActionPause}))
		coordinator.persist.enqueue(loaded.Update())
	}
	coordinator.tasks[taskID] = &loaded
	return &loaded, nil
}

func (coordinator *Coordinator) active() *model.Task {
	if coordinator.activeID == "" {
		return nil
	}
	return coordinator.tasks[coordinator.activeID]
}

func (coordinator *Coordinator) snapshot() model.Snapshot {
	snapshot := model.Snapshot{
		Version:              coordinator.version,
		UncompletedTaskCount: coordinator.uncompleted,
	}
	if task := coordinator.active(); task != nil {
		state := task.Timer
		snapshot.ActiveTaskID = task.ID
		snapshot.TaskName = task.Name
		snapshot.Timer = &state
	}
	return snapshot
}

func (coordinator *Coordinator) failed(err error) result {
	return result{snapshot: coordinator.snapshot(), err: err}
}

// flushActive queues the running task's progress before shutdown.
func (coordinator *Coordinator) flushActive() {
	if task := coordinator.active(); task != nil && task.Timer.Live() {
		coordinator.persist.enqueue(task.Update())
	}
}

func (coordinator *Coordinator) emit(eventType EventType, task *model.Task) model.Snapshot {
	coordinator.version++
	snapshot := coordinator.snapshot()

	event := Event{
		Type:     eventType,
		Snapshot: snapshot,
		At:       coordinator.now(),
	}
	if task != nil {
		copied := *task
		event.Task = &copied
	}

	coordinator.mu.Lock()
	coordinator.last = snapshot
	coordinator.broadcastLocked(event)
	coordinator.mu.Unlock()
	return snapshot
}

// warn is called by the persistence worker, outside the loop.
func (coordinator *Coordinator) warn(err *PersistenceError) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()
	coordinator.broadcastLocked(Event{
		Type:     EventPersistenceWarning,
		Snapshot: coordinator.last,
		Message:  fmt.Sprintf("could not save task %s", err.TaskID),
		At:       coordinator.now(),
	})
}

func (coordinator *Coordinator) broadcastLocked(event Event) {
	for _, ch := range coordinator.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
