package notify

import "testing"

type recordingNotifier struct {
	sent []Notification
}

func (notifier *recordingNotifier) Send(notification Notification) error {
	notifier.sent = append(notifier.sent, notification)
	return nil
}

func (notifier *recordingNotifier) IsSupported() bool { return true }

func TestNewNeverReturnsNil(t *testing.T) {
	if New("test", nil) == nil {
		t.Fatal("New() returned nil")
	}
}

func TestNewUsesFallbackWhenUnsupported(t *testing.T) {
	fallback := &recordingNotifier{}
	notifier := New("test", fallback)
	if notifier == Notifier(fallback) {
		return
	}
	if !notifier.IsSupported() {
		t.Error("platform notifier chosen but reports unsupported")
	}
}

func TestNoopNotifier(t *testing.T) {
	var notifier Notifier = noopNotifier{}
	if notifier.IsSupported() {
		t.Error("noop notifier reports supported")
	}
	if err := notifier.Send(Notification{Title: "t"}); err != nil {
		t.Errorf("Send() error: %v", err)
	}
}
