package tray

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"fyne.io/systray"
	"github.com/rs/zerolog"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
	"tasktray/internal/platform/notify"
)

// Surface receives the text shown next to the tray icon.
type Surface interface {
	SetTitle(title string)
	SetTooltip(tooltip string)
}

// SystraySurface writes to the process-wide system tray.
type SystraySurface struct{}

func (SystraySurface) SetTitle(title string) { systray.SetTitle(title) }

func (SystraySurface) SetTooltip(tooltip string) { systray.SetTooltip(tooltip) }

// PresenterConfig wires a Presenter to its outputs.
// Focus is called when the user activates a completion notification.
// OnRender, when set, receives every snapshot the presenter renders.
// OnStopped is called for every timer-stopped broadcast.
type PresenterConfig struct {
	Surface       Surface
	Notifier      notify.Notifier
	Focus         func()
	OnRender      func(model.Snapshot)
	OnStopped     func(model.Snapshot)
	ShowCount     bool
	Notifications model.NotificationConfig
	AppName       string
	Logger        zerolog.Logger
	Now           func() time.Time
}

// warningTTL is how long a persistence warning stays in the tooltip.
const warningTTL = 30 * time.Second

// Presenter mirrors coordinator broadcasts onto the tray. It never changes
// timer state.
type Presenter struct {
	mu            sync.Mutex
	surface       Surface
	notifier      notify.Notifier
	focus         func()
	onRender      func(model.Snapshot)
	onStopped     func(model.Snapshot)
	showCount     bool
	notifications model.NotificationConfig
	appName       string
	current       model.Snapshot
	rendered      bool
	warningUntil  time.Time
	now           func() time.Time
	log           zerolog.Logger
}

func NewPresenter(config PresenterConfig) *Presenter {
	if config.AppName == "" {
		config.AppName = "TaskTray"
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Presenter{
		surface:       config.Surface,
		notifier:      config.Notifier,
		focus:         config.Focus,
		onRender:      config.OnRender,
		onStopped:     config.OnStopped,
		showCount:     config.ShowCount,
		notifications: config.Notifications,
		appName:       config.AppName,
		now:           config.Now,
		log:           config.Logger.With().Str("component", "tray").Logger(),
	}
}

// Run consumes events until the channel closes or ctx is done.
func (presenter *Presenter) Run(ctx context.Context, events <-chan coordinator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			presenter.Handle(event)
		}
	}
}

// Handle renders a single broadcast.
func (presenter *Presenter) Handle(event coordinator.Event) {
	switch event.Type {
	case coordinator.EventPersistenceWarning:
		presenter.log.Warn().Str("message", event.Message).Msg("task progress not saved")
		presenter.mu.Lock()
		presenter.warningUntil = presenter.now().Add(warningTTL)
		presenter.mu.Unlock()
	case coordinator.EventTimerStopped:
		presenter.notifyFinished(event)
		if presenter.onStopped != nil {
			presenter.onStopped(event.Snapshot)
		}
	}
	presenter.Render(event.Snapshot)
}

// Render shows snapshot unless a newer one was already rendered.
func (presenter *Presenter) Render(snapshot model.Snapshot) {
	presenter.mu.Lock()
	if presenter.rendered && !snapshot.Newer(presenter.current) {
		presenter.mu.Unlock()
		return
	}
	presenter.current = snapshot
	presenter.rendered = true
	title := Title(snapshot, presenter.showCount)
	tooltip := Tooltip(presenter.appName, snapshot)
	if presenter.now().Before(presenter.warningUntil) {
		tooltip += " (progress not saved)"
	}
	onRender := presenter.onRender
	presenter.mu.Unlock()

	if presenter.surface != nil {
		presenter.surface.SetTitle(title)
		presenter.surface.SetTooltip(tooltip)
	}
	if onRender != nil {
		onRender(snapshot)
	}
}

// Snapshot returns the last rendered snapshot.
func (presenter *Presenter) Snapshot() model.Snapshot {
	presenter.mu.Lock()
	defer presenter.mu.Unlock()
	return presenter.current
}

// Configure applies changed preferences and re-renders the current snapshot.
func (presenter *Presenter) Configure(showCount bool, notifications model.NotificationConfig) {
	presenter.mu.Lock()
	presenter.showCount = showCount
	presenter.notifications = notifications
	snapshot := presenter.current
	presenter.rendered = false
	presenter.mu.Unlock()

	presenter.Render(snapshot)
}

func (presenter *Presenter) notifyFinished(event coordinator.Event) {
	presenter.mu.Lock()
	config := presenter.notifications
	presenter.mu.Unlock()

	if !config.Enabled || presenter.notifier == nil {
		return
	}

	name := "Task"
	if event.Task != nil && event.Task.Name != "" {
		name = event.Task.Name
	}
	notification := notify.Notification{
		Title:   "Time's up",
		Body:    fmt.Sprintf("%s is finished.", name),
		Sound:   config.Sound,
		OnClick: presenter.focus,
	}
	if err := presenter.notifier.Send(notification); err != nil {
		presenter.log.Warn().Err(err).Str("task", name).Msg("send notification")
	}
}

// Title is the text next to the tray icon: the clock while the active task
// is running or paused, else the uncompleted task count when it is shown
// and positive.
func Title(snapshot model.Snapshot, showCount bool) string {
	if snapshot.Live() {
		return snapshot.Timer.Clock()
	}
	if showCount && snapshot.UncompletedTaskCount > 0 {
		return strconv.Itoa(snapshot.UncompletedTaskCount)
	}
	return ""
}

// Tooltip describes the active task and its state.
func Tooltip(appName string, snapshot model.Snapshot) string {
	if !snapshot.Active() {
		if snapshot.UncompletedTaskCount == 1 {
			return fmt.Sprintf("%s: 1 task left", appName)
		}
		if snapshot.UncompletedTaskCount > 1 {
			return fmt.Sprintf("%s: %d tasks left", appName, snapshot.UncompletedTaskCount)
		}
		return appName
	}
	return fmt.Sprintf("%s: %s", appName, StatusLine(snapshot))
}

// StatusLine is a one-line summary of the active task, used by the tooltip
// and the tray menu.
func StatusLine(snapshot model.Snapshot) string {
	if !snapshot.Active() {
		return "no active task"
	}
	name := snapshot.TaskName
	if name == "" {
		name = "task"
	}
	switch snapshot.Timer.Mode {
	case timer.ModeRunning:
		return fmt.Sprintf("%s running (%s)", name, snapshot.Timer.Clock())
	case timer.ModePaused:
		return fmt.Sprintf("%s paused (%s)", name, snapshot.Timer.Clock())
	case timer.ModeFinished:
		return fmt.Sprintf("%s finished", name)
	default:
		return fmt.Sprintf("%s not started", name)
	}
}
