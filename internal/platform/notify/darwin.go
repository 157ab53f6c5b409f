//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

// darwinNotifier uses osascript, which cannot report clicks.
type darwinNotifier struct{}

func newPlatformNotifier(string) Notifier {
	return &darwinNotifier{}
}

func (notifier *darwinNotifier) IsSupported() bool {
	_, err := exec.LookPath("osascript")
	return err == nil
}

func (notifier *darwinNotifier) Send(notification Notification) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`,
		escapeAppleScript(notification.Body), escapeAppleScript(notification.Title))
	if notification.Sound {
		script += ` sound name "default"`
	}
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript failed: %w", err)
	}
	return nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
