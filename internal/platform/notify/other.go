//go:build !darwin && !linux

package notify

func newPlatformNotifier(string) Notifier {
	return nil
}
