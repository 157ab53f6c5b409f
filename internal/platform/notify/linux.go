//go:build linux

package notify

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

const openAction = "default"

type linuxNotifier struct {
	appName string
	path    string
}

func newPlatformNotifier(appName string) Notifier {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return nil
	}
	return &linuxNotifier{appName: appName, path: path}
}

func (notifier *linuxNotifier) IsSupported() bool {
	return notifier.path != ""
}

// Send shows the notification. With an OnClick handler notify-send waits for
// the notification to close, so the wait happens in the background.
func (notifier *linuxNotifier) Send(notification Notification) error {
	cmd := exec.Command(notifier.path, notifySendArgs(notifier.appName, notification)...)
	if notification.OnClick == nil {
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("notify-send failed: %w", err)
		}
		return nil
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("notify-send failed: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			return
		}
		if strings.TrimSpace(stdout.String()) == openAction {
			notification.OnClick()
		}
	}()
	return nil
}

func notifySendArgs(appName string, notification Notification) []string {
	args := []string{"--app-name=" + appName}
	if notification.Sound {
		args = append(args, "--hint=string:sound-name:complete")
	}
	if notification.OnClick != nil {
		args = append(args, "--wait", "--action="+openAction+"=Open")
	}
	return append(args, notification.Title, notification.Body)
}
