package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tasktray/internal/ui/adapter"
	"tasktray/internal/ui/watch"
)

func newWatchCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the running timer in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := adapter.New(e.client(), e.log)
			updates, dispose := watch.Updates(view)
			defer dispose()

			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			err := view.Mount(ctx)
			cancel()
			if err != nil {
				return explain(err)
			}
			defer view.Unmount()

			program := tea.NewProgram(
				watch.New(view, updates),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = program.Run()
			return err
		},
	}
}
