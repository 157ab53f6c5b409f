// Package notify sends desktop notifications using the native mechanism of
// each platform, falling back to the fyne notification API.
package notify

import "fyne.io/fyne/v2"

// Notification is a single desktop notification.
// OnClick runs when the user activates the notification, where supported.
type Notification struct {
	Title   string
	Body    string
	Sound   bool
	OnClick func()
}

// Notifier sends desktop notifications.
type Notifier interface {
	Send(notification Notification) error
	IsSupported() bool
}

// New returns the platform notifier, or fallback when the platform has none.
func New(appName string, fallback Notifier) Notifier {
	platform := newPlatformNotifier(appName)
	if platform != nil && platform.IsSupported() {
		return platform
	}
	if fallback != nil {
		return fallback
	}
	return noopNotifier{}
}

type noopNotifier struct{}

func (noopNotifier) Send(Notification) error { return nil }

func (noopNotifier) IsSupported() bool { return false }

// FyneNotifier sends notifications through a fyne application.
// Fyne offers no activation callback, so OnClick is never called.
type FyneNotifier struct {
	app fyne.App
}

func NewFyne(app fyne.App) *FyneNotifier {
	return &FyneNotifier{app: app}
}

func (notifier *FyneNotifier) Send(notification Notification) error {
	notifier.app.SendNotification(fyne.NewNotification(notification.Title, notification.Body))
	return nil
}

func (notifier *FyneNotifier) IsSupported() bool {
	return notifier.app != nil
}
