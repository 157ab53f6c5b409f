package clock

import (
	"sync"
	"time"
)

// Source delivers periodic ticks to a single consumer.
type Source interface {
	Start(interval time.Duration)
	C() <-chan time.Time
	Stop()
}

// Ticker is a Source backed by time.Ticker.
// Starting it again replaces the running ticker instead of adding a second one.
type Ticker struct {
	mu     sync.Mutex
	ticker *time.Ticker
	ticks  chan time.Time
	done   chan struct{}
}

// NewTicker creates a stopped Ticker.
func NewTicker() *Ticker {
	return &Ticker{ticks: make(chan time.Time, 1)}
}

// Start begins ticking every interval, stopping any previous ticker first.
func (source *Ticker) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	source.stopLocked()

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	source.ticker = ticker
	source.done = done

	go func() {
		for {
			select {
			case <-done:
				return
			case tickTime := <-ticker.C:
				select {
				case source.ticks <- tickTime:
				default:
				}
			}
		}
	}()
}

// C returns the tick channel. It stays valid across restarts.
func (source *Ticker) C() <-chan time.Time {
	return source.ticks
}

// Stop halts ticking. It is safe to call on a stopped Ticker.
func (source *Ticker) Stop() {
	source.mu.Lock()
	defer source.mu.Unlock()
	source.stopLocked()
}

// Running reports whether a ticker is active.
func (source *Ticker) Running() bool {
	source.mu.Lock()
	defer source.mu.Unlock()
	return source.ticker != nil
}

func (source *Ticker) stopLocked() {
	if source.ticker == nil {
		return
	}
	source.ticker.Stop()
	close(source.done)
	source.ticker = nil
	source.done = nil
}

// Manual is a Source that only ticks when Fire is called.
type Manual struct {
	ticks chan time.Time
}

// NewManual creates a Manual source.
func NewManual() *Manual {
	return &Manual{ticks: make(chan time.Time, 1)}
}

func (source *Manual) Start(time.Duration) {}

func (source *Manual) C() <-chan time.Time { return source.ticks }

func (source *Manual) Stop() {}

// Fire delivers one tick.
func (source *Manual) Fire(at time.Time) {
	source.ticks <- at
}
