package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktray/internal/config"
	"tasktray/internal/core/clock"
	"tasktray/internal/core/coordinator"
	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
	"tasktray/internal/ipc"
	"tasktray/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticReader struct {
	cfg config.Config
}

func (reader staticReader) Read() (*config.Config, error) {
	cfg := reader.cfg
	return &cfg, nil
}

// runningInstance serves the control API over a coordinator backed by the
// task store in dir.
func runningInstance(t *testing.T, dir string) (*coordinator.Coordinator, string) {
	t.Helper()
	store, err := storage.OpenTaskStore(dir)
	if err != nil {
		t.Fatalf("OpenTaskStore() error = %v", err)
	}
	c := coordinator.New(model.CoordinatorConfig{}, coordinator.Options{
		Store:  store,
		Clock:  clock.NewManual(),
		Logger: zerolog.Nop(),
	})
	c.Start()
	ts := httptest.NewServer(ipc.NewServer(c, nil, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		ts.Close()
		c.Stop()
		store.Close()
	})
	return c, strings.TrimPrefix(ts.URL, "http://")
}

func execute(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	cfg.Env = config.EnvProd
	cfg.LogLevel = "error"
	root := NewRootCommand(staticReader{cfg: cfg}, &bytes.Buffer{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTasksAddAndList(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{DataDir: dir, ControlAddr: "127.0.0.1:1"}

	out, err := execute(t, cfg, "tasks", "add", "Write report", "--duration", "10m", "--category", "work")
	if err != nil {
		t.Fatalf("tasks add error = %v", err)
	}
	if !strings.Contains(out, "Added Write report") {
		t.Errorf("tasks add output = %q", out)
	}
	if _, err := execute(t, cfg, "tasks", "add", "Reading", "--count-up"); err != nil {
		t.Fatalf("tasks add --count-up error = %v", err)
	}

	out, err = execute(t, cfg, "tasks", "list")
	if err != nil {
		t.Fatalf("tasks list error = %v", err)
	}
	for _, want := range []string{"Write report", "work", "10:00", "Reading", "00:00", string(model.StatusNotStarted)} {
		if !strings.Contains(out, want) {
			t.Errorf("tasks list missing %q:\n%s", want, out)
		}
	}
}

func TestTasksAddRejectsEmptyCountdown(t *testing.T) {
	cfg := config.Config{DataDir: t.TempDir(), ControlAddr: "127.0.0.1:1"}
	if _, err := execute(t, cfg, "tasks", "add", "Nothing", "--duration", "0s"); err == nil {
		t.Error("expected an error for a countdown task without a duration")
	}
}

func TestTimerCommandsAgainstRunningInstance(t *testing.T) {
	dir := t.TempDir()
	c, address := runningInstance(t, dir)
	cfg := config.Config{DataDir: dir, ControlAddr: address}

	if _, err := execute(t, cfg, "tasks", "add", "Write report", "--duration", "25m"); err != nil {
		t.Fatalf("tasks add error = %v", err)
	}
	snapshot, err := c.CurrentSnapshot(context.Background())
	if err != nil {
		t.Fatalf("CurrentSnapshot() error = %v", err)
	}
	if snapshot.UncompletedTaskCount != 1 {
		t.Errorf("UncompletedTaskCount = %d, want 1 after add", snapshot.UncompletedTaskCount)
	}

	out, err := execute(t, cfg, "start", "write report")
	if err != nil {
		t.Fatalf("start error = %v", err)
	}
	if !strings.Contains(out, "Write report  25:00  running") {
		t.Errorf("start output = %q", out)
	}

	if out, err = execute(t, cfg, "pause"); err != nil {
		t.Fatalf("pause error = %v", err)
	}
	if !strings.Contains(out, "paused") {
		t.Errorf("pause output = %q", out)
	}

	out, err = execute(t, cfg, "status", "--json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	var status statusOutput
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status --json output %q: %v", out, err)
	}
	if status.Task == nil || status.Task.Name != "Write report" || status.Snapshot.Timer.Mode != timer.ModePaused {
		t.Errorf("status = %+v", status)
	}

	if _, err := execute(t, cfg, "complete"); err != nil {
		t.Fatalf("complete error = %v", err)
	}
	_, err = execute(t, cfg, "start", "Write report")
	if !errors.Is(err, coordinator.ErrTaskFinished) {
		t.Errorf("start finished task error = %v, want ErrTaskFinished", err)
	}

	if out, err = execute(t, cfg, "count", "4"); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if !strings.Contains(out, "4 unfinished tasks") {
		t.Errorf("count output = %q", out)
	}
}

func TestCommandsReportMissingInstance(t *testing.T) {
	cfg := config.Config{DataDir: t.TempDir(), ControlAddr: "127.0.0.1:1"}
	for _, args := range [][]string{{"status"}, {"pause"}, {"count", "2"}} {
		if _, err := execute(t, cfg, args...); !errors.Is(err, errNotRunning) {
			t.Errorf("%v error = %v, want errNotRunning", args, err)
		}
	}
}

func TestResolveTask(t *testing.T) {
	tasks := []model.Task{
		{ID: "0f3c2a9e-1111", Name: "Write report"},
		{ID: "0f3c2a9e-2222", Name: "Inbox"},
		{ID: "7a11b0c4-3333", Name: "inbox"},
	}
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "0f3c2a9e-2222", want: "0f3c2a9e-2222"},
		{ref: "7a11", want: "7a11b0c4-3333"},
		{ref: "WRITE REPORT", want: "0f3c2a9e-1111"},
		{ref: "0f3c", wantErr: true},
		{ref: "inbox", wantErr: true},
		{ref: "unknown", want: "unknown"},
	}
	for _, tc := range tests {
		got, err := resolveTask(tasks, tc.ref)
		if (err != nil) != tc.wantErr {
			t.Errorf("resolveTask(%q) error = %v, wantErr %v", tc.ref, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("resolveTask(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}
