package timer

import (
	"fmt"
	"time"
)

// Mode is the lifecycle position of a task timer.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeRunning  Mode = "running"
	ModePaused   Mode = "paused"
	ModeFinished Mode = "finished"
)

// ActionType identifies an input to the state machine.
type ActionType string

const (
	ActionStart ActionType = "start"
	ActionPause ActionType = "pause"
	ActionTick  ActionType = "tick"
	ActionStop  ActionType = "stop"
)

// State is the timer part of a task.
// Only one of RemainingSeconds and ElapsedSeconds is meaningful, chosen by CountingUp.
type State struct {
	Mode             Mode      `json:"mode"`
	CountingUp       bool      `json:"countingUp"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	ElapsedSeconds   int64     `json:"elapsedSeconds"`
	LastTickAt       time.Time `json:"lastTickAt"`
}

// Action is applied to a State by Apply.
// Seconds is only read for ticks; values below one count as one.
type Action struct {
	Type    ActionType
	Seconds int64
	At      time.Time
}

// New returns an idle timer for a task with the given planned duration.
func New(durationSeconds int64, countingUp bool) State {
	state := State{Mode: ModeIdle, CountingUp: countingUp}
	if !countingUp {
		if durationSeconds < 0 {
			durationSeconds = 0
		}
		state.RemainingSeconds = durationSeconds
	}
	return state
}

// Apply returns the state that results from applying action to state.
// It never mutates its input and never produces a negative remaining time.
func Apply(state State, action Action) State {
	if state.Mode == "" {
		state.Mode = ModeIdle
	}

	switch action.Type {
	case ActionStart:
		if state.Mode == ModeIdle || state.Mode == ModePaused {
			state.Mode = ModeRunning
			state.LastTickAt = action.At
		}
	case ActionPause:
		if state.Mode == ModeRunning {
			state.Mode = ModePaused
		}
	case ActionTick:
		if state.Mode == ModeRunning {
			state = advance(state, action)
		}
	case ActionStop:
		if state.Mode != ModeFinished {
			state.Mode = ModeFinished
		}
	}
	return state
}

func advance(state State, action Action) State {
	seconds := action.Seconds
	if seconds < 1 {
		seconds = 1
	}
	state.LastTickAt = action.At

	if state.CountingUp {
		state.ElapsedSeconds += seconds
		return state
	}

	state.RemainingSeconds -= seconds
	if state.RemainingSeconds <= 0 {
		state.RemainingSeconds = 0
		state.Mode = ModeFinished
	}
	return state
}

// Live reports whether the timer is running or paused.
func (state State) Live() bool {
	return state.Mode == ModeRunning || state.Mode == ModePaused
}

// Display returns the seconds a surface should show: remaining for
// countdown timers, elapsed for count-up timers.
func (state State) Display() int64 {
	if state.CountingUp {
		return state.ElapsedSeconds
	}
	return state.RemainingSeconds
}

// Clock formats the displayed seconds as MM:SS. Minutes are not wrapped into hours.
func (state State) Clock() string {
	return FormatClock(state.Display())
}

// FormatClock formats seconds as MM:SS.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
