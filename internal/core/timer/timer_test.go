package timer

import (
	"math/rand"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestApplyTransitionTable(t *testing.T) {
	countdown := func(mode Mode) State {
		return State{Mode: mode, RemainingSeconds: 10, LastTickAt: epoch}
	}
	later := epoch.Add(5 * time.Second)

	tests := []struct {
		name   string
		state  State
		action ActionType
		want   Mode
	}{
		{"idle start", countdown(ModeIdle), ActionStart, ModeRunning},
		{"idle pause", countdown(ModeIdle), ActionPause, ModeIdle},
		{"idle tick", countdown(ModeIdle), ActionTick, ModeIdle},
		{"idle stop", countdown(ModeIdle), ActionStop, ModeFinished},
		{"running start", countdown(ModeRunning), ActionStart, ModeRunning},
		{"running pause", countdown(ModeRunning), ActionPause, ModePaused},
		{"running tick", countdown(ModeRunning), ActionTick, ModeRunning},
		{"running stop", countdown(ModeRunning), ActionStop, ModeFinished},
		{"paused start", countdown(ModePaused), ActionStart, ModeRunning},
		{"paused pause", countdown(ModePaused), ActionPause, ModePaused},
		{"paused tick", countdown(ModePaused), ActionTick, ModePaused},
		{"paused stop", countdown(ModePaused), ActionStop, ModeFinished},
		{"finished start", countdown(ModeFinished), ActionStart, ModeFinished},
		{"finished pause", countdown(ModeFinished), ActionPause, ModeFinished},
		{"finished tick", countdown(ModeFinished), ActionTick, ModeFinished},
		{"finished stop", countdown(ModeFinished), ActionStop, ModeFinished},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(tc.state, Action{Type: tc.action, At: later})
			if got.Mode != tc.want {
				t.Errorf("Apply(%s, %s).Mode = %s, want %s", tc.state.Mode, tc.action, got.Mode, tc.want)
			}
			if tc.action != ActionTick && got.RemainingSeconds != tc.state.RemainingSeconds {
				t.Errorf("RemainingSeconds changed on %s: %d -> %d", tc.action, tc.state.RemainingSeconds, got.RemainingSeconds)
			}
		})
	}
}

func TestApplyStartResetsLastTick(t *testing.T) {
	later := epoch.Add(time.Minute)
	for _, mode := range []Mode{ModeIdle, ModePaused} {
		got := Apply(State{Mode: mode, RemainingSeconds: 30, LastTickAt: epoch}, Action{Type: ActionStart, At: later})
		if !got.LastTickAt.Equal(later) {
			t.Errorf("start from %s: LastTickAt = %v, want %v", mode, got.LastTickAt, later)
		}
	}
}

func TestApplyStartIsIdempotent(t *testing.T) {
	running := Apply(New(60, false), Action{Type: ActionStart, At: epoch})
	twice := Apply(running, Action{Type: ActionStart, At: epoch.Add(3 * time.Second)})
	if twice != running {
		t.Errorf("second start changed state: %+v -> %+v", running, twice)
	}
}

func TestApplyTickCountdown(t *testing.T) {
	state := Apply(New(3, false), Action{Type: ActionStart, At: epoch})
	for i := 1; i <= 3; i++ {
		state = Apply(state, Action{Type: ActionTick, Seconds: 1, At: epoch.Add(time.Duration(i) * time.Second)})
	}
	if state.Mode != ModeFinished {
		t.Fatalf("Mode after 3 ticks = %s, want finished", state.Mode)
	}
	if state.RemainingSeconds != 0 {
		t.Errorf("RemainingSeconds = %d, want 0", state.RemainingSeconds)
	}

	after := Apply(state, Action{Type: ActionTick, Seconds: 1, At: epoch.Add(4 * time.Second)})
	if after != state {
		t.Errorf("tick after finish changed state: %+v", after)
	}
}

func TestApplyTickCountUp(t *testing.T) {
	state := Apply(New(0, true), Action{Type: ActionStart, At: epoch})
	state = Apply(state, Action{Type: ActionTick, Seconds: 90, At: epoch.Add(90 * time.Second)})
	if state.Mode != ModeRunning {
		t.Errorf("count-up Mode = %s, want running", state.Mode)
	}
	if state.ElapsedSeconds != 90 {
		t.Errorf("ElapsedSeconds = %d, want 90", state.ElapsedSeconds)
	}
	if state.Display() != 90 {
		t.Errorf("Display() = %d, want 90", state.Display())
	}
}

func TestApplyTickLargeStepClampsAtZero(t *testing.T) {
	state := Apply(New(30, false), Action{Type: ActionStart, At: epoch})
	state = Apply(state, Action{Type: ActionTick, Seconds: 65, At: epoch.Add(65 * time.Second)})
	if state.Mode != ModeFinished || state.RemainingSeconds != 0 {
		t.Errorf("after 65s step: %+v, want finished at 0", state)
	}
}

func TestApplyTickMinimumOneSecond(t *testing.T) {
	state := Apply(New(10, false), Action{Type: ActionStart, At: epoch})
	state = Apply(state, Action{Type: ActionTick, Seconds: 0, At: epoch})
	if state.RemainingSeconds != 9 {
		t.Errorf("RemainingSeconds = %d, want 9", state.RemainingSeconds)
	}
}

func TestApplyNeverNegative(t *testing.T) {
	actions := []ActionType{ActionStart, ActionPause, ActionTick, ActionTick, ActionTick, ActionStop}
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		state := New(int64(rng.Intn(20)), false)
		now := epoch
		for step := 0; step < 50; step++ {
			now = now.Add(time.Second)
			action := Action{
				Type:    actions[rng.Intn(len(actions))],
				Seconds: int64(rng.Intn(8)),
				At:      now,
			}
			previous := state
			state = Apply(state, action)
			if state.RemainingSeconds < 0 {
				t.Fatalf("run %d step %d: negative remaining %d", run, step, state.RemainingSeconds)
			}
			if previous.Mode != ModeRunning && state.RemainingSeconds != previous.RemainingSeconds {
				t.Fatalf("run %d step %d: remaining changed while %s", run, step, previous.Mode)
			}
			if previous.Mode == ModeRunning && state.RemainingSeconds > previous.RemainingSeconds {
				t.Fatalf("run %d step %d: remaining increased", run, step)
			}
		}
	}
}

func TestNew(t *testing.T) {
	countdown := New(1500, false)
	if countdown.Mode != ModeIdle || countdown.RemainingSeconds != 1500 {
		t.Errorf("New(1500, false) = %+v", countdown)
	}
	up := New(1500, true)
	if !up.CountingUp || up.RemainingSeconds != 0 || up.ElapsedSeconds != 0 {
		t.Errorf("New(1500, true) = %+v", up)
	}
	if New(-5, false).RemainingSeconds != 0 {
		t.Error("negative duration should clamp to zero")
	}
}

func TestApplyZeroModeTreatedAsIdle(t *testing.T) {
	got := Apply(State{RemainingSeconds: 5}, Action{Type: ActionStart, At: epoch})
	if got.Mode != ModeRunning {
		t.Errorf("Mode = %s, want running", got.Mode)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{90, "01:30"},
		{3600, "60:00"},
		{7325, "122:05"},
		{-4, "00:00"},
	}
	for _, tc := range tests {
		if got := FormatClock(tc.seconds); got != tc.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}

	up := State{CountingUp: true, ElapsedSeconds: 75, RemainingSeconds: 999}
	if up.Clock() != "01:15" {
		t.Errorf("count-up Clock() = %q, want 01:15", up.Clock())
	}
}
