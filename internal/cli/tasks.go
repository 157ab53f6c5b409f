package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

func newTasksCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task list",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, _ := cmd.Flags().GetDuration("duration")
			countUp, _ := cmd.Flags().GetBool("count-up")
			category, _ := cmd.Flags().GetString("category")
			return e.addTask(cmd, model.Task{
				Name:            args[0],
				Category:        category,
				DurationSeconds: int64(duration / time.Second),
				CountingUp:      countUp,
			})
		},
	}
	add.Flags().Duration("duration", 25*time.Minute, "Planned duration of a countdown task")
	add.Flags().Bool("count-up", false, "Track elapsed time instead of counting down")
	add.Flags().String("category", "", "Category shown next to the task name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			tasks, err := store.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), tasks, all)
			return nil
		},
	}
	list.Flags().Bool("all", false, "Include completed tasks")

	cmd.AddCommand(add, list)
	return cmd
}

func (e *env) addTask(cmd *cobra.Command, task model.Task) error {
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	created, err := store.CreateTask(ctx, task)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", created.Name, shortID(created.ID))

	count, err := store.CountUncompleted(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("count uncompleted tasks failed")
		return nil
	}
	// The tray may not be running; the count is reseeded on its next start.
	pushCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := e.client().UpdateUncompletedTasks(pushCtx, count); err != nil {
		e.log.Debug().Err(err).Msg("uncompleted count not pushed")
	}
	return nil
}

func printTasks(out io.Writer, tasks []model.Task, all bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tTIME")
	shown := 0
	for _, task := range tasks {
		if task.Status == model.StatusCompleted && !all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", shortID(task.ID), task.Name, task.Category, task.Status, taskClock(task))
		shown++
	}
	w.Flush()
	if shown == 0 {
		fmt.Fprintln(out, "No tasks found.")
	}
}

func taskClock(task model.Task) string {
	if task.Timer.Mode == "" {
		return timer.New(task.DurationSeconds, task.CountingUp).Clock()
	}
	return task.Timer.Clock()
}
