package animation

import "fyne.io/fyne/v2"

// FlashSpec defines the two frames of a flash.
type FlashSpec struct {
	On  fyne.Resource
	Off fyne.Resource
}
