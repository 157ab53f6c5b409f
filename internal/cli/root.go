// Package cli is the tasktray command line: the desktop app by default,
// plus commands that drive a running instance over its control API.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tasktray/internal/app"
	"tasktray/internal/config"
	"tasktray/internal/ipc"
	"tasktray/internal/platform"
	"tasktray/internal/storage"
)

// env carries what every command needs. It is filled in by the root
// command's PersistentPreRunE.
type env struct {
	reader config.Reader
	cfg    *config.Config
	log    zerolog.Logger
	logOut io.Writer
}

func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := e.reader.Read()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg, e.logOut)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = log
	return nil
}

func (e *env) controlAddress() string {
	if e.cfg.ControlAddr != "" {
		return e.cfg.ControlAddr
	}
	return platform.ControlAddress(config.AppName)
}

func (e *env) client() *ipc.Client {
	return ipc.NewClient(e.controlAddress(), e.log)
}

func (e *env) openStore() (*storage.TaskStore, error) {
	return storage.OpenTaskStore(e.cfg.DataDir)
}

// NewRootCommand builds the command tree.
func NewRootCommand(reader config.Reader, logOut io.Writer) *cobra.Command {
	e := &env{reader: reader, logOut: logOut}

	root := &cobra.Command{
		Use:   "tasktray",
		Short: "TaskTray - task timers in the system tray",
		Long: `TaskTray keeps one task timer running in the system tray.

Run without arguments to start the tray app. The other commands talk to the
running app, so the tray, its windows and the terminal stay in step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunDesktop(e.cfg, e.log)
		},
	}

	root.AddCommand(
		newTimerCommand(e, timerStart),
		newTimerCommand(e, timerPause),
		newTimerCommand(e, timerStop),
		newTimerCommand(e, timerComplete),
		newTimerCommand(e, timerReset),
		newTimerCommand(e, timerSelect),
		newStatusCommand(e),
		newCountCommand(e),
		newTasksCommand(e),
		newWatchCommand(e),
	)
	return root
}

// Execute runs the command line with the process environment.
func Execute(version string) error {
	root := NewRootCommand(config.NewEnvReader(), os.Stderr)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
