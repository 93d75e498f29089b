// Package tasks tracks long-running wizard invocations in memory and
// broadcasts their progress.
package tasks

import (
	"cmp"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/id"
	"github.com/aresapp/ares-server/internal/sse"
)

// Task types.
const (
	TypeWizard      = "wizard"
	TypeWizardBatch = "wizard-batch"
)

// Emitter receives task events. *sse.Manager satisfies it.
type Emitter interface {
	Emit(event sse.Event)
}

// Tracker holds every task created since startup.
type Tracker struct {
	mu      sync.RWMutex
	tasks   map[string]*domain.Task
	emitter Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewTracker creates a tracker. emitter may be nil.
func NewTracker(emitter Emitter, logger *slog.Logger) *Tracker {
	return &Tracker{
		tasks:   make(map[string]*domain.Task),
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}
}

// Create registers a running task.
func (t *Tracker) Create(taskType string, kind domain.TaskKind, name string) (domain.Task, error) {
	if kind != domain.TaskKindPercent && kind != domain.TaskKindBoolean {
		return domain.Task{}, errors.Validationf("unknown task kind %q", kind)
	}
	taskID, err := id.Generate(id.PrefixTask)
	if err != nil {
		return domain.Task{}, err
	}

	now := t.now()
	task := &domain.Task{
		ID:        taskID,
		Name:      name,
		Type:      taskType,
		Kind:      kind,
		Status:    domain.TaskRunning,
		Failures:  []domain.TaskFailure{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	t.tasks[taskID] = task
	snapshot := clone(task)
	t.mu.Unlock()

	t.logger.Info("task created",
		slog.String("task_id", taskID),
		slog.String("type", taskType),
		slog.String("name", name))
	t.emit(sse.NewTaskCreatedEvent(snapshot))
	return snapshot, nil
}

// UpdateProgress sets the percentage of a percent task, rounded to the
// nearest integer.
func (t *Tracker) UpdateProgress(taskID string, percent float64) error {
	snapshot, err := t.update(taskID, func(task *domain.Task) error {
		if task.Kind != domain.TaskKindPercent {
			return errors.Validationf("task %s does not report percent progress", taskID)
		}
		if percent < 0 || percent > 100 {
			return errors.Validationf("progress %.2f out of range", percent)
		}
		task.Value = int(math.Round(percent))
		return nil
	})
	if err != nil {
		return err
	}
	t.emit(sse.NewTaskProgressEvent(snapshot))
	return nil
}

// AddError records a failure against a task without ending it. contextID
// names what failed, typically a game name.
func (t *Tracker) AddError(taskID string, cause error, contextID string) error {
	failure := domain.TaskFailure{Error: cause.Error(), ContextID: contextID}
	_, err := t.update(taskID, func(task *domain.Task) error {
		task.Failures = append(task.Failures, failure)
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Warn("task error recorded",
		slog.String("task_id", taskID),
		slog.String("context", contextID),
		slog.String("error", failure.Error))
	t.emit(sse.NewTaskErrorEvent(taskID, failure))
	return nil
}

// Complete marks a task done. Percent tasks jump to 100.
func (t *Tracker) Complete(taskID string) error {
	return t.finish(taskID, domain.TaskDone)
}

// Fail marks a task failed and records the cause.
func (t *Tracker) Fail(taskID string, cause error) error {
	if cause != nil {
		if err := t.AddError(taskID, cause, ""); err != nil {
			return err
		}
	}
	return t.finish(taskID, domain.TaskFailed)
}

func (t *Tracker) finish(taskID string, status domain.TaskStatus) error {
	snapshot, err := t.update(taskID, func(task *domain.Task) error {
		if task.Finished() {
			return errors.Validationf("task %s already %s", taskID, task.Status)
		}
		task.Status = status
		if status == domain.TaskDone && task.Kind == domain.TaskKindPercent {
			task.Value = 100
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.logger.Info("task finished",
		slog.String("task_id", taskID),
		slog.String("status", string(status)),
		slog.Int("failures", len(snapshot.Failures)))
	t.emit(sse.NewTaskFinishedEvent(snapshot))
	return nil
}

// Get returns a copy of a task.
func (t *Tracker) Get(taskID string) (domain.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return domain.Task{}, errors.NotFoundf("task %s not found", taskID)
	}
	return clone(task), nil
}

// List returns every task, newest first.
func (t *Tracker) List() []domain.Task {
	t.mu.RLock()
	out := make([]domain.Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, clone(task))
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Delete forgets a task.
func (t *Tracker) Delete(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tasks[taskID]; !ok {
		return errors.NotFoundf("task %s not found", taskID)
	}
	delete(t.tasks, taskID)
	return nil
}

func (t *Tracker) update(taskID string, fn func(*domain.Task) error) (domain.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return domain.Task{}, errors.NotFoundf("task %s not found", taskID)
	}
	if err := fn(task); err != nil {
		return domain.Task{}, err
	}
	task.UpdatedAt = t.now()
	return clone(task), nil
}

func (t *Tracker) emit(event sse.Event) {
	if t.emitter != nil {
		t.emitter.Emit(event)
	}
}

func clone(task *domain.Task) domain.Task {
	c := *task
	c.Failures = slices.Clone(task.Failures)
	return c
}
