package popover

import (
	"fmt"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

// view is what the window shows for one snapshot.
type view struct {
	Title         string
	Status        string
	Clock         string
	ToggleLabel   string
	ToggleEnabled bool
	StopEnabled   bool
	ResetEnabled  bool
	Remaining     string
}

func viewFor(snapshot model.Snapshot) view {
	v := view{
		Title:       "No task selected",
		Status:      "Pick a task to start tracking.",
		Clock:       timer.FormatClock(0),
		ToggleLabel: "Start",
	}
	if snapshot.UncompletedTaskCount > 0 {
		v.Remaining = fmt.Sprintf("%d unfinished", snapshot.UncompletedTaskCount)
	}
	if !snapshot.Active() {
		return v
	}

	v.Title = snapshot.TaskName
	v.Clock = snapshot.Timer.Clock()
	v.ResetEnabled = true
	v.ToggleEnabled = snapshot.Timer.Mode != timer.ModeFinished
	v.StopEnabled = snapshot.Timer.Live()

	direction := "left"
	if snapshot.Timer.CountingUp {
		direction = "elapsed"
	}
	switch snapshot.Timer.Mode {
	case timer.ModeRunning:
		v.Status = fmt.Sprintf("Running, %s %s", v.Clock, direction)
		v.ToggleLabel = "Pause"
	case timer.ModePaused:
		v.Status = fmt.Sprintf("Paused, %s %s", v.Clock, direction)
		v.ToggleLabel = "Resume"
	case timer.ModeFinished:
		v.Status = "Finished"
	default:
		v.Status = "Not started"
	}
	return v
}

// option is a task choice in the selector.
type option struct {
	ID    string
	Label string
}

func optionsFor(tasks []model.Task) []option {
	options := make([]option, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			continue
		}
		label := task.Name
		if task.Category != "" {
			label = fmt.Sprintf("%s [%s]", task.Name, task.Category)
		}
		options = append(options, option{ID: task.ID, Label: label})
	}
	return options
}

func labels(options []option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = opt.Label
	}
	return out
}

func idForLabel(options []option, label string) string {
	for _, opt := range options {
		if opt.Label == label {
			return opt.ID
		}
	}
	return ""
}

func labelForID(options []option, id string) string {
	for _, opt := range options {
		if opt.ID == id {
			return opt.Label
		}
	}
	return ""
}
