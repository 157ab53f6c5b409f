package clock

import (
	"testing"
	"time"
)

func TestTickerDelivers(t *testing.T) {
	source := NewTicker()
	source.Start(5 * time.Millisecond)
	defer source.Stop()

	select {
	case <-source.C():
	case <-time.After(time.Second):
		t.Fatal("no tick within 1s")
	}
}

func TestTickerRestartKeepsSingleLoop(t *testing.T) {
	source := NewTicker()
	source.Start(time.Hour)
	first := source.ticker
	source.Start(time.Hour)
	if source.ticker == first {
		t.Fatal("restart did not replace the ticker")
	}
	if !source.Running() {
		t.Fatal("Running() = false after restart")
	}
	source.Stop()
	source.Stop()
	if source.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestManualFire(t *testing.T) {
	source := NewManual()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	source.Fire(at)
	if got := <-source.C(); !got.Equal(at) {
		t.Errorf("tick = %v, want %v", got, at)
	}
}
