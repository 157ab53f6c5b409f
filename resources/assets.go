package resources

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"

	"fyne.io/fyne/v2"
)

// IconState selects the tray icon variant.
type IconState string

const (
	IconIdle     IconState = "idle"
	IconRunning  IconState = "running"
	IconPaused   IconState = "paused"
	IconFinished IconState = "finished"
)

const iconSize = 64

var iconColors = map[IconState]color.NRGBA{
	IconIdle:     {R: 140, G: 140, B: 150, A: 255},
	IconRunning:  {R: 232, G: 190, B: 66, A: 255},
	IconPaused:   {R: 120, G: 150, B: 200, A: 255},
	IconFinished: {R: 224, G: 108, B: 117, A: 255},
}

var iconCache sync.Map

// Icon returns the tray icon for state, drawing it on first use.
func Icon(state IconState) (fyne.Resource, error) {
	if cached, ok := iconCache.Load(state); ok {
		return cached.(fyne.Resource), nil
	}
	fill, ok := iconColors[state]
	if !ok {
		return nil, fmt.Errorf("unknown icon state %q", state)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, drawClock(fill)); err != nil {
		return nil, fmt.Errorf("encode %s icon: %w", state, err)
	}

	resource := fyne.NewStaticResource(fmt.Sprintf("tasktray-%s.png", state), buf.Bytes())
	iconCache.Store(state, resource)
	return resource, nil
}

// MustIcon returns the icon or panics on error.
func MustIcon(state IconState) fyne.Resource {
	resource, err := Icon(state)
	if err != nil {
		panic(err)
	}
	return resource
}

// drawClock draws a filled dial with two hands.
func drawClock(fill color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	center := float64(iconSize) / 2
	radius := center - 2
	hand := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			if math.Hypot(dx, dy) <= radius {
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	// Minute hand straight up, hour hand towards three o'clock.
	for i := 0; i < int(radius*0.75); i++ {
		for w := -2; w <= 2; w++ {
			img.SetNRGBA(int(center)+w, int(center)-i, hand)
		}
	}
	for i := 0; i < int(radius*0.5); i++ {
		for w := -2; w <= 2; w++ {
			img.SetNRGBA(int(center)+i, int(center)+w, hand)
		}
	}
	return img
}
