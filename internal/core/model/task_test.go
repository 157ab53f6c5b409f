package model

import (
	"testing"

	"tasktray/internal/core/timer"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		mode timer.Mode
		want Status
	}{
		{timer.ModeIdle, StatusNotStarted},
		{timer.ModeRunning, StatusInProgress},
		{timer.ModePaused, StatusPaused},
		{timer.ModeFinished, StatusCompleted},
		{"", StatusNotStarted},
	}
	for _, tc := range tests {
		if got := StatusFor(tc.mode); got != tc.want {
			t.Errorf("StatusFor(%q) = %s, want %s", tc.mode, got, tc.want)
		}
	}
}

func TestEnsureTimer(t *testing.T) {
	task := Task{ID: "a", DurationSeconds: 600}
	task.EnsureTimer()
	if task.Timer.Mode != timer.ModeIdle || task.Timer.RemainingSeconds != 600 {
		t.Errorf("EnsureTimer() timer = %+v", task.Timer)
	}
	if task.Status != StatusNotStarted {
		t.Errorf("Status = %s, want not-started", task.Status)
	}

	task.SetTimer(timer.State{Mode: timer.ModePaused, RemainingSeconds: 42})
	task.EnsureTimer()
	if task.Timer.RemainingSeconds != 42 {
		t.Error("EnsureTimer() overwrote an existing timer")
	}
	if task.Status != StatusPaused {
		t.Errorf("Status = %s, want paused", task.Status)
	}
}

func TestSnapshotLive(t *testing.T) {
	if (Snapshot{}).Live() {
		t.Error("empty snapshot should not be live")
	}
	running := Snapshot{ActiveTaskID: "a", Timer: &timer.State{Mode: timer.ModeRunning}}
	if !running.Live() {
		t.Error("running snapshot should be live")
	}
	idle := Snapshot{ActiveTaskID: "a", Timer: &timer.State{Mode: timer.ModeIdle}}
	if idle.Live() || !idle.Active() {
		t.Error("idle snapshot should be active but not live")
	}
}
