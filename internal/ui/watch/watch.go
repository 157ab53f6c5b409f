// Package watch is a terminal view of the running timer, driven by the same
// adapter as the desktop windows.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
	"tasktray/internal/ui/adapter"
)

const actionTimeout = 5 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E8BE42"))
	clockStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 4).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7896C8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0AA"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B6B78"))
)

// Actions is what the view forwards key presses to.
type Actions interface {
	Snapshot() model.Snapshot
	Toggle(ctx context.Context) (model.Snapshot, error)
	Stop(ctx context.Context, taskID string) (model.Snapshot, error)
	Reset(ctx context.Context, taskID string) (model.Snapshot, error)
}

type snapshotMsg model.Snapshot

type actionErrMsg struct{ err error }

type disconnectedMsg struct{}

// Model is the bubbletea model for the watch view.
type Model struct {
	actions  Actions
	updates  <-chan model.Snapshot
	keys     KeyMap
	snapshot model.Snapshot
	message  string
	width    int
}

// New returns a model that renders snapshots received on updates.
func New(actions Actions, updates <-chan model.Snapshot) Model {
	return Model{
		actions:  actions,
		updates:  updates,
		keys:     DefaultKeyMap(),
		snapshot: actions.Snapshot(),
	}
}

// Updates bridges adapter changes into a channel for New. Slow readers only
// ever see the latest snapshot. The channel is closed when the adapter loses
// its event stream or when the returned disposer runs.
func Updates(view *adapter.Adapter) (<-chan model.Snapshot, func()) {
	ch := make(chan model.Snapshot, 1)
	var (
		mu     sync.Mutex
		closed bool
	)
	send := func(snapshot model.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- snapshot:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
	closeOnce := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}

	disposeChange := view.OnChange(send)
	disposeDisconnect := view.OnDisconnect(closeOnce)
	return ch, func() {
		disposeChange()
		disposeDisconnect()
		closeOnce()
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(updates <-chan model.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return disconnectedMsg{}
		}
		return snapshotMsg(snapshot)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		snapshot := model.Snapshot(msg)
		if snapshot.Newer(m.snapshot) {
			m.snapshot = snapshot
		}
		return m, waitForSnapshot(m.updates)
	case actionErrMsg:
		m.message = describe(msg.err)
		return m, nil
	case disconnectedMsg:
		m.message = "disconnected: tasktray is no longer running"
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.snapshot.ActiveTaskID
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.message = ""
		return m, m.run(m.actions.Toggle)
	case key.Matches(msg, m.keys.Stop):
		m.message = ""
		return m, m.run(func(ctx context.Context) (model.Snapshot, error) {
			return m.actions.Stop(ctx, id)
		})
	case key.Matches(msg, m.keys.Reset):
		m.message = ""
		return m, m.run(func(ctx context.Context) (model.Snapshot, error) {
			return m.actions.Reset(ctx, id)
		})
	}
	return m, nil
}

func (m Model) run(send func(context.Context) (model.Snapshot, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if _, err := send(ctx); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, adapter.ErrNoActiveTask):
		return "no active task; select one first"
	case errors.Is(err, coordinator.ErrNotActiveTask):
		return "task is not active"
	case errors.Is(err, coordinator.ErrTaskFinished):
		return "task is finished; reset it first"
	case errors.Is(err, coordinator.ErrTaskNotFound):
		return "task not found"
	default:
		return err.Error()
	}
}

func (m Model) View() string {
	var b strings.Builder

	snapshot := m.snapshot
	if !snapshot.Active() {
		b.WriteString(titleStyle.Render("No active task"))
		b.WriteString("\n")
		b.WriteString(clockStyle.Render(timer.FormatClock(0)))
	} else {
		b.WriteString(titleStyle.Render(snapshot.TaskName))
		b.WriteString("\n")
		b.WriteString(clockStyle.Render(snapshot.Timer.Clock()))
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(modeLabel(snapshot.Timer)))
	}
	if snapshot.UncompletedTaskCount > 0 {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d unfinished", snapshot.UncompletedTaskCount)))
	}
	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.message))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func modeLabel(state *timer.State) string {
	direction := "remaining"
	if state.CountingUp {
		direction = "elapsed"
	}
	switch state.Mode {
	case timer.ModeRunning:
		return "running, " + direction
	case timer.ModePaused:
		return "paused, " + direction
	case timer.ModeFinished:
		return "finished"
	default:
		return "not started"
	}
}

func (m Model) help() string {
	parts := make([]string, 0, 4)
	for _, binding := range m.keys.bindings() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " • ")
}
