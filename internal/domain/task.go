package domain

import "time"

// TaskKind is how a task reports progress.
type TaskKind string

const (
	TaskKindPercent TaskKind = "percent"
	TaskKindBoolean TaskKind = "boolean"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// TaskFailure is one error recorded against a task.
type TaskFailure struct {
	Error     string `json:"error"`
	ContextID string `json:"contextId,omitempty"`
}

// Task tracks a long-running wizard invocation.
type Task struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Kind      TaskKind      `json:"kind"`
	Status    TaskStatus    `json:"status"`
	Value     int           `json:"value"`
	Failures  []TaskFailure `json:"failures"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Finished reports whether the task reached a terminal status.
func (t *Task) Finished() bool {
	return t.Status == TaskDone || t.Status == TaskFailed
}
