package tray

import (
	"testing"

	"fyne.io/fyne/v2"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

type fakeHost struct {
	menus []*fyne.Menu
}

func (host *fakeHost) SetSystemTrayMenu(menu *fyne.Menu) {
	host.menus = append(host.menus, menu)
}

func (host *fakeHost) item(label string) *fyne.MenuItem {
	menu := host.menus[len(host.menus)-1]
	for _, item := range menu.Items {
		if item.Label == label {
			return item
		}
	}
	return nil
}

func TestManagerUpdate(t *testing.T) {
	host := &fakeHost{}
	toggled := 0
	manager := New(host, "TaskTray", Callbacks{OnTogglePause: func() { toggled++ }})

	if len(host.menus) != 1 {
		t.Fatalf("menus set = %d, want 1", len(host.menus))
	}
	if item := host.item("Start"); item != nil {
		t.Errorf("unexpected Start item before any snapshot")
	}

	manager.Update(running(1, 30))
	pause := host.item("Pause")
	if pause == nil || pause.Disabled {
		t.Fatalf("Pause item = %+v, want enabled", pause)
	}
	if stop := host.item("Stop"); stop == nil || stop.Disabled {
		t.Errorf("Stop item should be enabled while running")
	}
	if status := host.menus[len(host.menus)-1].Items[0].Label; status != "Status: Write report running (00:30)" {
		t.Errorf("status = %q", status)
	}
	pause.Action()
	if toggled != 1 {
		t.Errorf("toggle called %d times", toggled)
	}

	paused := model.Snapshot{Version: 2, ActiveTaskID: "t1", TaskName: "Write report", Timer: &timer.State{Mode: timer.ModePaused, RemainingSeconds: 30}}
	manager.Update(paused)
	if host.item("Resume") == nil {
		t.Errorf("expected Resume item for paused task")
	}

	manager.Update(model.Snapshot{Version: 3})
	start := host.item("Start")
	if start == nil || !start.Disabled {
		t.Errorf("Start item = %+v, want disabled without an active task", start)
	}
	if stop := host.item("Stop"); stop == nil || !stop.Disabled {
		t.Errorf("Stop should be disabled without an active task")
	}
}

func TestManagerNilCallbacks(t *testing.T) {
	host := &fakeHost{}
	New(host, "TaskTray", Callbacks{})
	for _, item := range host.menus[0].Items {
		if item.Action != nil {
			item.Action()
		}
	}
}

func TestManagerSetPreferences(t *testing.T) {
	host := &fakeHost{}
	manager := New(host, "TaskTray", Callbacks{})
	opened := false
	manager.SetPreferences(func() { opened = true })

	host.item("Preferences").Action()
	if !opened {
		t.Error("Preferences action not forwarded")
	}
}
