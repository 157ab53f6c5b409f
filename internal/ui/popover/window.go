// Package popover is the small task window opened from the tray.
package popover

import (
	"context"
	"errors"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/ui/adapter"
)

// Controller is the coordinator surface the window drives.
type Controller interface {
	adapter.Channel
	SetCurrentTask(ctx context.Context, taskID string) (model.Snapshot, error)
	CompleteTask(ctx context.Context, taskID string) (model.Snapshot, error)
}

// TaskLister supplies the tasks offered in the selector.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
}

const actionTimeout = 5 * time.Second

var clockColor = color.NRGBA{R: 232, G: 190, B: 66, A: 255}

// Window is one open popover. It mounts its adapter when created and
// unmounts it when closed.
type Window struct {
	window     fyne.Window
	controller Controller
	tasks      TaskLister
	view       *adapter.Adapter
	dispose    func()
	log        zerolog.Logger

	titleLabel  *canvas.Text
	clockLabel  *canvas.Text
	statusLabel *widget.Label
	countLabel  *widget.Label
	taskSelect  *widget.Select
	toggle      *widget.Button
	stop        *widget.Button
	reset       *widget.Button
	complete    *widget.Button

	options  []option
	activeID string
	syncing  bool
}

func newWindow(app fyne.App, title string, controller Controller, tasks TaskLister, log zerolog.Logger, onClosed func()) *Window {
	window := app.NewWindow(title)
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	titleLabel := canvas.NewText("", color.White)
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	titleLabel.TextSize = 18

	clockLabel := canvas.NewText("--:--", clockColor)
	clockLabel.Alignment = fyne.TextAlignCenter
	clockLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	clockLabel.TextSize = 42

	popover := &Window{
		window:      window,
		controller:  controller,
		tasks:       tasks,
		view:        adapter.New(controller, log),
		log:         log,
		titleLabel:  titleLabel,
		clockLabel:  clockLabel,
		statusLabel: widget.NewLabel(""),
		countLabel:  widget.NewLabel(""),
	}

	popover.taskSelect = widget.NewSelect(nil, popover.handleSelect)
	popover.taskSelect.PlaceHolder = "Select a task"
	popover.toggle = widget.NewButton("Start", popover.handleToggle)
	popover.stop = widget.NewButton("Stop", popover.handleStop)
	popover.reset = widget.NewButton("Reset", popover.handleReset)
	popover.complete = widget.NewButton("Complete", popover.handleComplete)

	buttons := container.NewHBox(popover.toggle, popover.stop, layout.NewSpacer(), popover.reset, popover.complete)
	content := container.NewVBox(
		popover.taskSelect,
		titleLabel,
		clockLabel,
		popover.statusLabel,
		buttons,
		popover.countLabel,
	)
	window.SetContent(container.NewPadded(content))
	window.Resize(fyne.NewSize(360, 260))

	popover.render(model.Snapshot{})
	popover.dispose = popover.view.OnChange(func(snapshot model.Snapshot) {
		fyne.Do(func() {
			popover.render(snapshot)
		})
	})

	window.SetOnClosed(func() {
		popover.dispose()
		go popover.view.Close()
		if onClosed != nil {
			onClosed()
		}
	})
	return popover
}

// mount subscribes and loads the task list off the fyne thread.
func (popover *Window) mount() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := popover.view.Mount(ctx); err != nil {
			if errors.Is(err, adapter.ErrClosed) {
				return
			}
			popover.log.Warn().Err(err).Msg("mount popover")
			fyne.Do(func() {
				popover.statusLabel.SetText("Timer unavailable.")
			})
			return
		}
		popover.reloadTasks(ctx)
	}()
}

func (popover *Window) reloadTasks(ctx context.Context) {
	if popover.tasks == nil {
		return
	}
	tasks, err := popover.tasks.ListTasks(ctx)
	if err != nil {
		popover.log.Warn().Err(err).Msg("list tasks")
		return
	}
	options := optionsFor(tasks)
	fyne.Do(func() {
		popover.options = options
		popover.syncing = true
		popover.taskSelect.SetOptions(labels(options))
		popover.taskSelect.SetSelected(labelForID(options, popover.activeID))
		popover.syncing = false
	})
}

func (popover *Window) render(snapshot model.Snapshot) {
	v := viewFor(snapshot)

	popover.titleLabel.Text = v.Title
	popover.titleLabel.Refresh()
	popover.clockLabel.Text = v.Clock
	popover.clockLabel.Refresh()
	popover.statusLabel.SetText(v.Status)
	popover.countLabel.SetText(v.Remaining)

	popover.toggle.SetText(v.ToggleLabel)
	setEnabled(popover.toggle, v.ToggleEnabled)
	setEnabled(popover.stop, v.StopEnabled)
	setEnabled(popover.reset, v.ResetEnabled)
	setEnabled(popover.complete, snapshot.Active())

	if snapshot.ActiveTaskID != popover.activeID {
		popover.activeID = snapshot.ActiveTaskID
		popover.syncing = true
		popover.taskSelect.SetSelected(labelForID(popover.options, popover.activeID))
		popover.syncing = false
		go popover.reloadTasks(context.Background())
	}
}

func setEnabled(button *widget.Button, enabled bool) {
	if enabled {
		button.Enable()
		return
	}
	button.Disable()
}

func (popover *Window) handleSelect(label string) {
	if popover.syncing {
		return
	}
	id := idForLabel(popover.options, label)
	if id == "" || id == popover.activeID {
		return
	}
	popover.run("select task", func(ctx context.Context) (model.Snapshot, error) {
		return popover.controller.SetCurrentTask(ctx, id)
	})
}

func (popover *Window) handleToggle() {
	popover.run("toggle timer", popover.view.Toggle)
}

func (popover *Window) handleStop() {
	id := popover.view.Snapshot().ActiveTaskID
	popover.run("stop timer", func(ctx context.Context) (model.Snapshot, error) {
		return popover.view.Stop(ctx, id)
	})
}

func (popover *Window) handleReset() {
	id := popover.view.Snapshot().ActiveTaskID
	popover.run("reset timer", func(ctx context.Context) (model.Snapshot, error) {
		return popover.view.Reset(ctx, id)
	})
}

func (popover *Window) handleComplete() {
	id := popover.view.Snapshot().ActiveTaskID
	popover.run("complete task", func(ctx context.Context) (model.Snapshot, error) {
		return popover.controller.CompleteTask(ctx, id)
	})
}

// run sends an action off the fyne thread. Rejections are shown inline; the
// next broadcast re-renders the window either way.
func (popover *Window) run(action string, send func(context.Context) (model.Snapshot, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if _, err := send(ctx); err != nil {
			popover.log.Debug().Err(err).Str("action", action).Msg("action rejected")
			message := rejectionMessage(err)
			fyne.Do(func() {
				popover.statusLabel.SetText(message)
			})
		}
	}()
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrTaskNotFound):
		return "That task no longer exists."
	case errors.Is(err, coordinator.ErrNotActiveTask):
		return "That task is not the active one."
	case errors.Is(err, coordinator.ErrTaskFinished):
		return "That task is finished. Reset it to track it again."
	case errors.Is(err, adapter.ErrNoActiveTask):
		return "Pick a task first."
	default:
		return "Could not reach the timer."
	}
}

// Show brings the window to the front.
func (popover *Window) Show() {
	popover.window.Show()
	popover.window.RequestFocus()
}

// Close closes the window, which unmounts it.
func (popover *Window) Close() {
	popover.window.Close()
}
