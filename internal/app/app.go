package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktray/internal/config"
	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
	"tasktray/internal/ipc"
	"tasktray/internal/platform"
	"tasktray/internal/platform/notify"
	"tasktray/internal/storage"
	"tasktray/internal/ui/adapter"
	"tasktray/internal/ui/animation"
	"tasktray/internal/ui/popover"
	"tasktray/internal/ui/preferences"
	"tasktray/internal/ui/tray"
	"tasktray/resources"
)

const (
	appID           = "com.tasktray.app"
	shutdownTimeout = 5 * time.Second
	startupTimeout  = 5 * time.Second
)

// RunDesktop runs the tray application until the user quits or the process
// is signalled. A second launch asks the running instance to show its window
// and returns nil.
func RunDesktop(cfg *config.Config, log zerolog.Logger) error {
	guard, err := platform.AcquireSingleInstance(config.AppName, cfg.ControlAddr)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) && focusRunning(cfg, log) {
			return nil
		}
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() {
		_ = guard.Release()
	}()

	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	settings, err := storage.LoadSettings(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("load settings, using defaults")
		settings = preferences.DefaultSettings()
	}

	store, err := storage.OpenTaskStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	coord := coordinator.New(settings.CoordinatorConfig(), coordinator.Options{
		Store:  store,
		Logger: log,
	})
	coord.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seedUncompleted(ctx, coord, store, log)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.SetIcon(resources.MustIcon(resources.IconIdle))
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		coord.Stop()
		return errors.New("system tray unsupported on this platform")
	}

	popovers := popover.NewManager(fyneApp, config.AppName, coord, store, log)
	focus := func() {
		fyne.Do(popovers.FocusOrCreate)
	}

	server := ipc.NewServer(coord, focus, log)
	go func() {
		if err := server.Serve(guard.Listener()); err != nil {
			log.Error().Err(err).Msg("control API stopped")
		}
	}()

	trayView := adapter.New(coord, log)
	if err := trayView.Mount(ctx); err != nil {
		log.Warn().Err(err).Msg("mount tray view")
	}

	trayManager := tray.New(desktopApp, config.AppName, tray.Callbacks{
		OnOpen: popovers.FocusOrCreate,
		OnTogglePause: func() {
			go forward(log, "toggle timer", trayView.Toggle)
		},
		OnStop: func() {
			id := trayView.Snapshot().ActiveTaskID
			go forward(log, "stop timer", func(ctx context.Context) (model.Snapshot, error) {
				return trayView.Stop(ctx, id)
			})
		},
		OnQuit: fyneApp.Quit,
	})

	trayIcon := animation.New(animation.DefaultConfig(), func(icon fyne.Resource) {
		fyne.Do(func() { desktopApp.SetSystemTrayIcon(icon) })
	})

	presenter := tray.NewPresenter(tray.PresenterConfig{
		Surface:       tray.SystraySurface{},
		Notifier:      notify.New(config.AppName, notify.NewFyne(fyneApp)),
		Focus:         focus,
		ShowCount:     settings.ShowUncompletedCount,
		Notifications: settings.CoordinatorConfig().Notifications,
		AppName:       config.AppName,
		Logger:        log,
		OnRender: func(snapshot model.Snapshot) {
			fyne.Do(func() { trayManager.Update(snapshot) })
			trayIcon.SetRest(resources.MustIcon(iconFor(snapshot)))
		},
		OnStopped: func(model.Snapshot) {
			trayIcon.Flash(ctx, animation.FlashSpec{
				On:  resources.MustIcon(resources.IconFinished),
				Off: resources.MustIcon(resources.IconIdle),
			})
		},
	})

	events, dispose := coord.Subscribe(32)
	go presenter.Run(ctx, events)
	if snapshot, err := coord.CurrentSnapshot(ctx); err == nil {
		presenter.Render(snapshot)
	}

	idle := newIdleWatch(coord, platform.NewIdleProvider())
	idle.restart(settings.CoordinatorConfig().IdlePause)

	prefsWindow := preferences.New(fyneApp, config.AppName, settings, func(updated preferences.Settings) {
		if err := storage.SaveSettings(cfg.DataDir, updated); err != nil {
			log.Error().Err(err).Msg("save settings")
		}
		coordinatorConfig := updated.CoordinatorConfig()
		presenter.Configure(updated.ShowUncompletedCount, coordinatorConfig.Notifications)
		idle.restart(coordinatorConfig.IdlePause)
		log.Info().Msg("settings saved")
	})
	trayManager.SetPreferences(prefsWindow.Show)

	signals, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	go func() {
		<-signals.Done()
		if ctx.Err() == nil {
			log.Info().Msg("signal received, quitting")
			fyne.Do(fyneApp.Quit)
		}
	}()

	log.Info().Str("data_dir", cfg.DataDir).Msg("tasktray started")
	fyneApp.Run()

	log.Info().Msg("shutting down")
	idle.stop()
	trayView.Unmount()
	dispose()
	coord.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shut down control API")
	}
	return nil
}

func focusRunning(cfg *config.Config, log zerolog.Logger) bool {
	address := cfg.ControlAddr
	if address == "" {
		address = platform.ControlAddress(config.AppName)
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := ipc.NewClient(address, log).Focus(ctx); err != nil {
		log.Warn().Err(err).Msg("focus running instance")
		return false
	}
	log.Info().Msg("already running, focused the open instance")
	return true
}

type uncompletedCounter interface {
	CountUncompleted(ctx context.Context) (int, error)
}

func seedUncompleted(ctx context.Context, coord *coordinator.Coordinator, store uncompletedCounter, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	count, err := store.CountUncompleted(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("count uncompleted tasks")
		return
	}
	if _, err := coord.UpdateUncompletedTasks(ctx, count); err != nil {
		log.Warn().Err(err).Msg("seed uncompleted count")
	}
}

func forward(log zerolog.Logger, action string, send func(context.Context) (model.Snapshot, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if _, err := send(ctx); err != nil {
		log.Debug().Err(err).Str("action", action).Msg("tray action rejected")
	}
}

func iconFor(snapshot model.Snapshot) resources.IconState {
	if !snapshot.Active() {
		return resources.IconIdle
	}
	switch snapshot.Timer.Mode {
	case timer.ModeRunning:
		return resources.IconRunning
	case timer.ModePaused:
		return resources.IconPaused
	default:
		return resources.IconIdle
	}
}

// idleWatch runs at most one idle watcher and replaces it when settings change.
type idleWatch struct {
	mu      sync.Mutex
	coord   *coordinator.Coordinator
	checker coordinator.IdleChecker
	cancel  context.CancelFunc
}

func newIdleWatch(coord *coordinator.Coordinator, checker coordinator.IdleChecker) *idleWatch {
	return &idleWatch{coord: coord, checker: checker}
}

func (watch *idleWatch) restart(config model.IdlePauseConfig) {
	watch.mu.Lock()
	defer watch.mu.Unlock()
	if watch.cancel != nil {
		watch.cancel()
		watch.cancel = nil
	}
	if !config.Enabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	watch.cancel = cancel
	go watch.coord.WatchIdle(ctx, watch.checker, config)
}

func (watch *idleWatch) stop() {
	watch.restart(model.IdlePauseConfig{})
}
