package watch

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the watch view bindings.
type KeyMap struct {
	Toggle key.Binding
	Stop   key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "start/pause"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (keys KeyMap) bindings() []key.Binding {
	return []key.Binding{keys.Toggle, keys.Stop, keys.Reset, keys.Quit}
}
