package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/sse"
)

type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestTracker() (*Tracker, *recorder) {
	rec := &recorder{}
	return NewTracker(rec, logger.Discard()), rec
}

func TestTracker_Lifecycle(t *testing.T) {
	tr, rec := newTestTracker()

	task, err := tr.Create(TypeWizardBatch, domain.TaskKindPercent, "3 games")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskRunning, task.Status)
	assert.Contains(t, task.ID, "task-")

	require.NoError(t, tr.UpdateProgress(task.ID, 100.0/3))
	got, err := tr.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, got.Value)

	require.NoError(t, tr.AddError(task.ID, errors.NoMatch("no game found"), "Unknown Game"))
	require.NoError(t, tr.Complete(task.ID))

	got, err = tr.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskDone, got.Status)
	assert.Equal(t, 100, got.Value)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "Unknown Game", got.Failures[0].ContextID)
	assert.True(t, got.Finished())

	assert.Equal(t, []sse.EventType{
		sse.EventTaskCreated,
		sse.EventTaskProgress,
		sse.EventTaskError,
		sse.EventTaskFinished,
	}, rec.types())
	for _, e := range rec.events {
		assert.Equal(t, task.ID, e.TaskID)
	}
}

func TestTracker_ProgressValidation(t *testing.T) {
	tr, _ := newTestTracker()

	pct, err := tr.Create(TypeWizard, domain.TaskKindPercent, "x")
	require.NoError(t, err)
	assert.ErrorIs(t, tr.UpdateProgress(pct.ID, 101), errors.ErrValidation)
	assert.ErrorIs(t, tr.UpdateProgress(pct.ID, -1), errors.ErrValidation)

	flag, err := tr.Create(TypeWizard, domain.TaskKindBoolean, "y")
	require.NoError(t, err)
	assert.ErrorIs(t, tr.UpdateProgress(flag.ID, 50), errors.ErrValidation)

	require.NoError(t, tr.Complete(flag.ID))
	got, err := tr.Get(flag.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Value)

	_, err = tr.Create(TypeWizard, "bogus", "z")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestTracker_FailAndDoubleFinish(t *testing.T) {
	tr, _ := newTestTracker()

	task, err := tr.Create(TypeWizard, domain.TaskKindBoolean, "Okami")
	require.NoError(t, err)
	require.NoError(t, tr.Fail(task.ID, errors.Download("abc", assert.AnError)))

	got, err := tr.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskFailed, got.Status)
	require.Len(t, got.Failures, 1)

	assert.ErrorIs(t, tr.Complete(task.ID), errors.ErrValidation)
}

func TestTracker_UnknownTask(t *testing.T) {
	tr, _ := newTestTracker()

	_, err := tr.Get("task-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.ErrorIs(t, tr.UpdateProgress("task-missing", 1), errors.ErrNotFound)
	assert.ErrorIs(t, tr.Delete("task-missing"), errors.ErrNotFound)
}

func TestTracker_ListNewestFirst(t *testing.T) {
	tr, _ := newTestTracker()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	tr.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := tr.Create(TypeWizard, domain.TaskKindBoolean, "first")
	require.NoError(t, err)
	second, err := tr.Create(TypeWizard, domain.TaskKindBoolean, "second")
	require.NoError(t, err)

	list := tr.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, tr.Delete(first.ID))
	assert.Len(t, tr.List(), 1)
}

func TestTracker_SnapshotsAreCopies(t *testing.T) {
	tr, _ := newTestTracker()

	task, err := tr.Create(TypeWizard, domain.TaskKindBoolean, "copy")
	require.NoError(t, err)
	require.NoError(t, tr.AddError(task.ID, assert.AnError, "a"))

	got, err := tr.Get(task.ID)
	require.NoError(t, err)
	got.Failures[0].Error = "mutated"

	again, err := tr.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, assert.AnError.Error(), again.Failures[0].Error)
}
