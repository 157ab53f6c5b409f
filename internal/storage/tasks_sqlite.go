package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tasktray/internal/core/model"
	"tasktray/internal/core/timer"
)

const tasksFileName = "tasks.db"

// TaskStore keeps tasks in a local SQLite database.
type TaskStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenTaskStore opens or creates the task database in dir.
func OpenTaskStore(dir string) (*TaskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, tasksFileName)+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open task database: %w", err)
	}

	store := &TaskStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate task database: %w", err)
	}
	return store, nil
}

func (store *TaskStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			counting_up INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			timer TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	`
	_, err := store.db.Exec(schema)
	return err
}

// Close closes the database.
func (store *TaskStore) Close() error {
	return store.db.Close()
}

// CreateTask inserts a task, assigning an id and an idle timer.
func (store *TaskStore) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return model.Task{}, errors.New("create task: name is empty")
	}
	if task.DurationSeconds < 0 {
		return model.Task{}, errors.New("create task: negative duration")
	}
	if !task.CountingUp && task.DurationSeconds == 0 {
		return model.Task{}, errors.New("create task: countdown task needs a duration")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.Timer = timer.New(task.DurationSeconds, task.CountingUp)
	task.Status = model.StatusFor(task.Timer.Mode)
	now := store.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	timerJSON, err := json.Marshal(task.Timer)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: encode timer: %w", err)
	}

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, category, duration_seconds, counting_up, status, timer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Name, task.Category, task.DurationSeconds, boolToInt(task.CountingUp),
		string(task.Status), string(timerJSON), formatTime(now), formatTime(now))
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// GetTask returns the task with the given id.
func (store *TaskStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := store.db.QueryRowContext(ctx, `
		SELECT id, name, category, duration_seconds, counting_up, status, timer, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("get task %s: %w", id, model.ErrTaskNotFound)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// UpdateTask writes the status and timer of a task.
func (store *TaskStore) UpdateTask(ctx context.Context, update model.TaskUpdate) error {
	timerJSON, err := json.Marshal(update.Timer)
	if err != nil {
		return fmt.Errorf("update task %s: encode timer: %w", update.ID, err)
	}

	result, err := store.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, timer = ?, updated_at = ? WHERE id = ?
	`, string(update.Status), string(timerJSON), formatTime(store.now().UTC()), update.ID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", update.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", update.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update task %s: %w", update.ID, model.ErrTaskNotFound)
	}
	return nil
}

// ListTasks returns all tasks, oldest first.
func (store *TaskStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT id, name, category, duration_seconds, counting_up, status, timer, created_at, updated_at
		FROM tasks ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountUncompleted returns the number of tasks that are not completed.
func (store *TaskStore) CountUncompleted(ctx context.Context) (int, error) {
	var count int
	err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status != ?`, string(model.StatusCompleted)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count uncompleted tasks: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (model.Task, error) {
	var (
		task       model.Task
		countingUp int
		status     string
		timerJSON  string
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&task.ID, &task.Name, &task.Category, &task.DurationSeconds, &countingUp,
		&status, &timerJSON, &createdAt, &updatedAt); err != nil {
		return model.Task{}, err
	}
	if err := json.Unmarshal([]byte(timerJSON), &task.Timer); err != nil {
		return model.Task{}, fmt.Errorf("decode timer of %s: %w", task.ID, err)
	}
	task.CountingUp = countingUp != 0
	task.Status = model.Status(status)
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)
	return task, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
