//go:build linux

package notify

import (
	"reflect"
	"testing"
)

func TestNotifySendArgs(t *testing.T) {
	tests := []struct {
		name         string
		notification Notification
		want         []string
	}{
		{
			name:         "plain",
			notification: Notification{Title: "Done", Body: "Write report"},
			want:         []string{"--app-name=TaskTray", "Done", "Write report"},
		},
		{
			name:         "clickable with sound",
			notification: Notification{Title: "Done", Body: "Write report", Sound: true, OnClick: func() {}},
			want: []string{
				"--app-name=TaskTray",
				"--hint=string:sound-name:complete",
				"--wait", "--action=default=Open",
				"Done", "Write report",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := notifySendArgs("TaskTray", tc.notification)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("notifySendArgs() = %q, want %q", got, tc.want)
			}
		})
	}
}
