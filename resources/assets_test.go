package resources

import (
	"bytes"
	"image/png"
	"testing"
)

func TestIcon(t *testing.T) {
	for _, state := range []IconState{IconIdle, IconRunning, IconPaused, IconFinished} {
		resource, err := Icon(state)
		if err != nil {
			t.Fatalf("Icon(%s) error = %v", state, err)
		}
		img, err := png.Decode(bytes.NewReader(resource.Content()))
		if err != nil {
			t.Fatalf("decode %s icon: %v", state, err)
		}
		if img.Bounds().Dx() != iconSize || img.Bounds().Dy() != iconSize {
			t.Errorf("%s icon bounds = %v", state, img.Bounds())
		}
		again, _ := Icon(state)
		if again != resource {
			t.Errorf("Icon(%s) not cached", state)
		}
	}

	if _, err := Icon("blinking"); err == nil {
		t.Error("expected error for unknown state")
	}
}
