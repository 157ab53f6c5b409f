package tray

import (
	"fmt"

	"fyne.io/fyne/v2"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

// MenuHost is the part of desktop.App the tray menu needs.
type MenuHost interface {
	SetSystemTrayMenu(menu *fyne.Menu)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnOpen        func()
	OnTogglePause func()
	OnStop        func()
	OnPreferences func()
	OnQuit        func()
}

// Manager handles the system tray menu. Update must run on the fyne thread.
type Manager struct {
	host       MenuHost
	title      string
	statusItem *fyne.MenuItem
	pauseItem  *fyne.MenuItem
	stopItem   *fyne.MenuItem
	callbacks  Callbacks
}

// New creates a tray manager with the provided callbacks.
func New(host MenuHost, title string, callbacks Callbacks) *Manager {
	manager := &Manager{
		host:      host,
		title:     title,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.pauseItem = fyne.NewMenuItem("Pause", func() {
		if manager.callbacks.OnTogglePause != nil {
			manager.callbacks.OnTogglePause()
		}
	})
	manager.pauseItem.Disabled = true

	manager.stopItem = fyne.NewMenuItem("Stop", func() {
		if manager.callbacks.OnStop != nil {
			manager.callbacks.OnStop()
		}
	})
	manager.stopItem.Disabled = true

	manager.refreshMenu()
	return manager
}

// SetPreferences replaces the Preferences action.
func (manager *Manager) SetPreferences(fn func()) {
	manager.callbacks.OnPreferences = fn
}

// Update reflects snapshot in the status line and the timer actions.
func (manager *Manager) Update(snapshot model.Snapshot) {
	manager.statusItem.Label = fmt.Sprintf("Status: %s", StatusLine(snapshot))
	manager.pauseItem.Label = pauseLabel(snapshot)
	manager.pauseItem.Disabled = !canToggle(snapshot)
	manager.stopItem.Disabled = !snapshot.Live()
	manager.refreshMenu()
}

func pauseLabel(snapshot model.Snapshot) string {
	if !snapshot.Active() {
		return "Start"
	}
	switch snapshot.Timer.Mode {
	case timer.ModeRunning:
		return "Pause"
	case timer.ModePaused:
		return "Resume"
	default:
		return "Start"
	}
}

func canToggle(snapshot model.Snapshot) bool {
	return snapshot.Active() && snapshot.Timer.Mode != timer.ModeFinished
}

func (manager *Manager) refreshMenu() {
	if manager.host == nil {
		return
	}
	manager.host.SetSystemTrayMenu(fyne.NewMenu(manager.title,
		manager.statusItem,
		fyne.NewMenuItem("Open", func() {
			if manager.callbacks.OnOpen != nil {
				manager.callbacks.OnOpen()
			}
		}),
		fyne.NewMenuItemSeparator(),
		manager.pauseItem,
		manager.stopItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}
