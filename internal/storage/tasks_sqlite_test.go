package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

func openTestStore(t *testing.T) *TaskStore {
	t.Helper()
	store, err := OpenTaskStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenTaskStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateTask(ctx, model.Task{Name: "  Write report ", Category: "work", DurationSeconds: 1500})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateTask() did not assign an id")
	}
	if created.Status != model.StatusNotStarted || created.Timer.RemainingSeconds != 1500 {
		t.Errorf("created = %s/%+v", created.Status, created.Timer)
	}

	got, err := store.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if got.Name != "Write report" || got.Category != "work" || got.DurationSeconds != 1500 {
		t.Errorf("GetTask() = %+v", got)
	}
	if got.Timer.Mode != timer.ModeIdle {
		t.Errorf("timer mode = %s, want idle", got.Timer.Mode)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		task model.Task
	}{
		{"empty name", model.Task{Name: " ", DurationSeconds: 60}},
		{"negative duration", model.Task{Name: "x", DurationSeconds: -1}},
		{"countdown without duration", model.Task{Name: "x"}},
	}
	for _, tc := range tests {
		if _, err := store.CreateTask(ctx, tc.task); err == nil {
			t.Errorf("%s: CreateTask() returned nil error", tc.name)
		}
	}

	if _, err := store.CreateTask(ctx, model.Task{Name: "open ended", CountingUp: true}); err != nil {
		t.Errorf("count-up task without duration rejected: %v", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetTask(context.Background(), "nope")
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("GetTask() error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	created, err := store.CreateTask(ctx, model.Task{Name: "Read", DurationSeconds: 600})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	state := timer.State{Mode: timer.ModePaused, RemainingSeconds: 420, LastTickAt: at}
	if err := store.UpdateTask(ctx, model.TaskUpdate{ID: created.ID, Status: model.StatusPaused, Timer: state}); err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}

	got, err := store.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if got.Status != model.StatusPaused || got.Timer.RemainingSeconds != 420 || !got.Timer.LastTickAt.Equal(at) {
		t.Errorf("updated task = %s/%+v", got.Status, got.Timer)
	}

	err = store.UpdateTask(ctx, model.TaskUpdate{ID: "missing", Status: model.StatusPaused})
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("UpdateTask(missing) error = %v, want ErrTaskNotFound", err)
	}
}

func TestListAndCountUncompleted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i, name := range []string{"one", "two", "three"} {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		task, err := store.CreateTask(ctx, model.Task{Name: name, DurationSeconds: 60})
		if err != nil {
			t.Fatalf("CreateTask(%s) error: %v", name, err)
		}
		ids = append(ids, task.ID)
	}

	done := timer.State{Mode: timer.ModeFinished}
	if err := store.UpdateTask(ctx, model.TaskUpdate{ID: ids[1], Status: model.StatusCompleted, Timer: done}); err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if len(tasks) != 3 || tasks[0].Name != "one" || tasks[2].Name != "three" {
		t.Errorf("ListTasks() order = %v", tasks)
	}

	count, err := store.CountUncompleted(ctx)
	if err != nil {
		t.Fatalf("CountUncompleted() error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountUncompleted() = %d, want 2", count)
	}
}
