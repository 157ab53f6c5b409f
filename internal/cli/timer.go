package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tasktray/internal/core/model"
	"tasktray/internal/ipc"
)

const requestTimeout = 5 * time.Second

var errNotRunning = errors.New("tasktray is not running; start it with `tasktray`")

// timerAction describes one of the commands that forward a single task
// message to the running instance.
type timerAction struct {
	use   string
	short string
	send  func(client *ipc.Client, ctx context.Context, taskID string) (model.Snapshot, error)
	// optional actions fall back to the active task when no argument is given.
	optional bool
}

var (
	timerStart = timerAction{
		use:   "start <task>",
		short: "Start or resume a task timer",
		send:  (*ipc.Client).StartTask,
	}
	timerPause = timerAction{
		use:      "pause [task]",
		short:    "Pause the running timer",
		send:     (*ipc.Client).PauseTask,
		optional: true,
	}
	timerStop = timerAction{
		use:      "stop [task]",
		short:    "Stop the active timer",
		send:     (*ipc.Client).StopTask,
		optional: true,
	}
	timerComplete = timerAction{
		use:      "complete [task]",
		short:    "Mark a task as finished",
		send:     (*ipc.Client).CompleteTask,
		optional: true,
	}
	timerReset = timerAction{
		use:      "reset [task]",
		short:    "Reset a task timer to its full duration",
		send:     (*ipc.Client).ResetTask,
		optional: true,
	}
	timerSelect = timerAction{
		use:   "select <task>",
		short: "Make a task the active one without starting it",
		send:  (*ipc.Client).SetCurrentTask,
	}
)

func newTimerCommand(e *env, action timerAction) *cobra.Command {
	args := cobra.ExactArgs(1)
	if action.optional {
		args = cobra.MaximumNArgs(1)
	}
	return &cobra.Command{
		Use:   action.use,
		Short: action.short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			client := e.client()
			taskID, err := e.taskArgument(ctx, client, args)
			if err != nil {
				return err
			}
			snapshot, err := action.send(client, ctx, taskID)
			if err != nil {
				return explain(err)
			}
			printSnapshot(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}

// taskArgument resolves the task named on the command line, or the active
// task when none is given.
func (e *env) taskArgument(ctx context.Context, client *ipc.Client, args []string) (string, error) {
	if len(args) == 0 {
		snapshot, err := client.CurrentSnapshot(ctx)
		if err != nil {
			return "", explain(err)
		}
		if snapshot.ActiveTaskID == "" {
			return "", errors.New("no active task")
		}
		return snapshot.ActiveTaskID, nil
	}

	store, err := e.openStore()
	if err != nil {
		e.log.Debug().Err(err).Msg("task store unavailable, using argument as id")
		return args[0], nil
	}
	defer store.Close()

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		e.log.Debug().Err(err).Msg("list tasks failed, using argument as id")
		return args[0], nil
	}
	return resolveTask(tasks, args[0])
}

// resolveTask matches ref against task ids, then id prefixes, then names.
func resolveTask(tasks []model.Task, ref string) (string, error) {
	for _, task := range tasks {
		if task.ID == ref {
			return task.ID, nil
		}
	}

	var matches []model.Task
	for _, task := range tasks {
		if strings.HasPrefix(task.ID, ref) || strings.EqualFold(task.Name, ref) {
			matches = append(matches, task)
		}
	}
	switch len(matches) {
	case 0:
		// Unknown to the local store; the running instance has the final word.
		return ref, nil
	case 1:
		return matches[0].ID, nil
	default:
		names := make([]string, 0, len(matches))
		for _, task := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", task.Name, shortID(task.ID)))
		}
		return "", fmt.Errorf("%q matches more than one task: %s", ref, strings.Join(names, ", "))
	}
}

// explain turns a failed dial into a hint; rejections pass through.
func explain(err error) error {
	var remote *ipc.RemoteError
	if errors.As(err, &remote) {
		return err
	}
	var dial *net.OpError
	if errors.As(err, &dial) && dial.Op == "dial" {
		return errNotRunning
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printSnapshot(out io.Writer, snapshot model.Snapshot) {
	if !snapshot.Active() {
		fmt.Fprintln(out, "No active task")
	} else {
		fmt.Fprintf(out, "%s  %s  %s\n", snapshot.TaskName, snapshot.Timer.Clock(), snapshot.Timer.Mode)
	}
	if snapshot.UncompletedTaskCount > 0 {
		fmt.Fprintf(out, "%d unfinished tasks\n", snapshot.UncompletedTaskCount)
	}
}
