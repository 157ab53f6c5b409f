package animation

import (
	"context"
	"sync"
	"time"

	"fyne.io/fyne/v2"
)

// Config contains animation timing values.
type Config struct {
	// Interval is how long each frame of a flash stays up.
	Interval time.Duration
	// Duration bounds a whole flash; zero flashes until Stop.
	Duration time.Duration
}

// Engine owns the tray icon. Callers set the resting icon with SetRest and
// play short flashes over it; the resting icon comes back when a flash ends.
type Engine struct {
	mu         sync.Mutex
	config     Config
	updateIcon func(fyne.Resource)
	rest       fyne.Resource
	cancel     context.CancelFunc
	generation uint64
}

// New creates a new animation engine.
func New(config Config, updateIcon func(fyne.Resource)) *Engine {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Engine{
		config:     config,
		updateIcon: updateIcon,
	}
}

// SetRest changes the resting icon. It is shown at once unless a flash is
// playing.
func (engine *Engine) SetRest(icon fyne.Resource) {
	engine.mu.Lock()
	changed := engine.rest != icon
	engine.rest = icon
	flashing := engine.cancel != nil
	engine.mu.Unlock()

	if changed && !flashing && icon != nil {
		engine.updateIcon(icon)
	}
}

// Flashing reports whether a flash is playing.
func (engine *Engine) Flashing() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.cancel != nil
}

// Flash alternates between the two frames of spec, replacing any flash
// already playing.
func (engine *Engine) Flash(ctx context.Context, spec FlashSpec) {
	engine.start(ctx, func(runCtx context.Context) {
		frames := []fyne.Resource{spec.On, spec.Off}
		deadline := time.Time{}
		if engine.config.Duration > 0 {
			deadline = time.Now().Add(engine.config.Duration)
		}
		for i := 0; deadline.IsZero() || time.Now().Before(deadline); i++ {
			if frame := frames[i%len(frames)]; frame != nil {
				engine.updateIcon(frame)
			}
			if !sleepWithContext(runCtx, engine.config.Interval) {
				return
			}
		}
	})
}

// Stop ends any flash and restores the resting icon.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	cancel := engine.cancel
	engine.cancel = nil
	engine.generation++
	rest := engine.rest
	engine.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if rest != nil {
		engine.updateIcon(rest)
	}
}

func (engine *Engine) start(parent context.Context, run func(context.Context)) {
	engine.mu.Lock()
	if engine.cancel != nil {
		engine.cancel()
	}
	runCtx, cancel := context.WithCancel(parent)
	engine.cancel = cancel
	engine.generation++
	generation := engine.generation
	engine.mu.Unlock()

	go func() {
		run(runCtx)
		engine.finish(generation)
	}()
}

// finish restores the resting icon when the flash that just ended is still
// the current one.
func (engine *Engine) finish(generation uint64) {
	engine.mu.Lock()
	if engine.generation != generation {
		engine.mu.Unlock()
		return
	}
	engine.cancel()
	engine.cancel = nil
	rest := engine.rest
	engine.mu.Unlock()

	if rest != nil {
		engine.updateIcon(rest)
	}
}

func sleepWithContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
