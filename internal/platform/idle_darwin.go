package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"tasktray/internal/core/coordinator"
)

// ioregIdleProvider reads HIDIdleTime (nanoseconds) from the IOHIDSystem registry entry.
type ioregIdleProvider struct{}

func newIdleProvider() IdleProvider {
	if _, err := exec.LookPath("ioreg"); err != nil {
		return unsupportedIdleProvider{}
	}
	return ioregIdleProvider{}
}

func (ioregIdleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command("ioreg", "-c", "IOHIDSystem", "-d", "4").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	return parseHIDIdleTime(output)
}

func parseHIDIdleTime(output []byte) (time.Duration, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, `"HIDIdleTime"`) {
			continue
		}
		_, value, ok := strings.Cut(line, "=")
		if !ok {
			break
		}
		nanos, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		return time.Duration(nanos), nil
	}
	return 0, coordinator.ErrIdleUnsupported
}
