package cli

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"tasktray/internal/core/model"
)

type statusOutput struct {
	Snapshot model.Snapshot `json:"snapshot"`
	Task     *model.Task    `json:"task,omitempty"`
}

func newStatusCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active task and its timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			task, snapshot, err := e.client().CurrentTask(ctx)
			if err != nil {
				return explain(err)
			}
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(statusOutput{Snapshot: snapshot, Task: task})
			}
			printSnapshot(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the snapshot as JSON")
	return cmd
}

func newCountCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "count <n>",
		Short: "Set the unfinished task count shown in the tray",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			snapshot, err := e.client().UpdateUncompletedTasks(ctx, count)
			if err != nil {
				return explain(err)
			}
			printSnapshot(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}
