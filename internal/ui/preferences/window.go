package preferences

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window        fyne.Window
	settings      Settings
	onSave        func(Settings)
	notifications *widget.Check
	sound         *widget.Check
	showCount     *widget.Check
	idleCheck     *widget.Check
	idleMinutes   *widget.Entry
	driftSeconds  *widget.Entry
}

// New creates a preferences window.
func New(app fyne.App, title string, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow(title + " Settings")

	prefs := &Window{
		window:        window,
		settings:      settings,
		onSave:        onSave,
		notifications: widget.NewCheck("Notify when a timer finishes", nil),
		sound:         widget.NewCheck("Play a sound with notifications", nil),
		showCount:     widget.NewCheck("Show unfinished task count in the tray", nil),
		idleCheck:     widget.NewCheck("Pause the running task when I am away", nil),
		idleMinutes:   widget.NewEntry(),
		driftSeconds:  widget.NewEntry(),
	}
	prefs.UpdateSettings(settings)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Notifications", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.notifications,
		prefs.sound,
		widget.NewLabelWithStyle("Tray", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.showCount,
		widget.NewLabelWithStyle("Idle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.idleCheck,
		container.NewHBox(widget.NewLabel("Away after"), prefs.idleMinutes, widget.NewLabel("min")),
		widget.NewLabelWithStyle("Advanced", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Log clock drift over"), prefs.driftSeconds, widget.NewLabel("sec")),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		prefs.UpdateSettings(prefs.settings)
		window.Hide()
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 380))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.notifications.SetChecked(settings.NotificationsEnabled)
	prefs.sound.SetChecked(settings.NotificationSound)
	prefs.showCount.SetChecked(settings.ShowUncompletedCount)
	prefs.idleCheck.SetChecked(settings.IdlePauseEnabled)
	prefs.idleMinutes.SetText(fmt.Sprintf("%d", int(settings.IdlePauseAfter.Minutes())))
	prefs.driftSeconds.SetText(fmt.Sprintf("%d", int(settings.DriftWarnThreshold.Seconds())))
}

func (prefs *Window) handleSave() {
	settings := prefs.read()
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func (prefs *Window) read() Settings {
	settings := prefs.settings
	settings.NotificationsEnabled = prefs.notifications.Checked
	settings.NotificationSound = prefs.sound.Checked
	settings.ShowUncompletedCount = prefs.showCount.Checked
	settings.IdlePauseEnabled = prefs.idleCheck.Checked

	if minutes, ok := parsePositiveInt(prefs.idleMinutes.Text); ok {
		settings.IdlePauseAfter = time.Duration(minutes) * time.Minute
	}
	if seconds, ok := parsePositiveInt(prefs.driftSeconds.Text); ok && seconds >= MinDriftWarnSeconds {
		settings.DriftWarnThreshold = time.Duration(seconds) * time.Second
	}
	return settings
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
