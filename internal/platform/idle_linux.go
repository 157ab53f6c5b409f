package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// xprintidleProvider asks the X server through xprintidle. Wayland sessions
// without XWayland report unsupported.
type xprintidleProvider struct {
	path string
}

func newIdleProvider() IdleProvider {
	if strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland") && os.Getenv("DISPLAY") == "" {
		return unsupportedIdleProvider{}
	}
	path, err := exec.LookPath("xprintidle")
	if err != nil {
		return unsupportedIdleProvider{}
	}
	return &xprintidleProvider{path: path}
}

func (provider *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(provider.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	return parseIdleMillis(string(output))
}

func parseIdleMillis(raw string) (time.Duration, error) {
	millis, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	return time.Duration(max(millis, 0)) * time.Millisecond, nil
}
