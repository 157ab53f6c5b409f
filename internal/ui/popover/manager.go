package popover

import (
	"fyne.io/fyne/v2"
	"github.com/rs/zerolog"
)

// Manager keeps at most one popover open. Its methods must run on the fyne
// thread.
type Manager struct {
	app        fyne.App
	title      string
	controller Controller
	tasks      TaskLister
	log        zerolog.Logger
	current    *Window
}

func NewManager(app fyne.App, title string, controller Controller, tasks TaskLister, log zerolog.Logger) *Manager {
	return &Manager{
		app:        app,
		title:      title,
		controller: controller,
		tasks:      tasks,
		log:        log.With().Str("component", "popover").Logger(),
	}
}

// FocusOrCreate raises the open popover, or opens a new one.
func (manager *Manager) FocusOrCreate() {
	if manager.current != nil {
		manager.current.Show()
		return
	}

	var window *Window
	window = newWindow(manager.app, manager.title, manager.controller, manager.tasks, manager.log, func() {
		if manager.current == window {
			manager.current = nil
		}
	})
	manager.current = window
	window.mount()
	window.Show()
	manager.log.Debug().Msg("popover opened")
}

// IsOpen reports whether a popover is open.
func (manager *Manager) IsOpen() bool {
	return manager.current != nil
}

// Close closes the open popover, if any.
func (manager *Manager) Close() {
	if manager.current != nil {
		manager.current.Close()
	}
}
