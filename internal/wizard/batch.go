package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/id"
)

// Progress receives batch progress. *tasks.Tracker satisfies it.
type Progress interface {
	UpdateProgress(taskID string, percent float64) error
	AddError(taskID string, cause error, contextID string) error
	Complete(taskID string) error
	Fail(taskID string, cause error) error
}

// Batch runs the wizard over several games in sequence.
type Batch struct {
	wizard   *Wizard
	reports  *Reports
	progress Progress
	logger   *slog.Logger
	now      func() time.Time
}

// NewBatch creates a batch driver. progress may be nil.
func NewBatch(w *Wizard, reports *Reports, progress Progress, logger *slog.Logger) *Batch {
	return &Batch{wizard: w, reports: reports, progress: progress, logger: logger, now: time.Now}
}

// Run processes names in order. A failed game is recorded and the batch
// moves on; the report is saved after every game. Cancelling ctx stops the
// batch between games and fails the task.
func (b *Batch) Run(ctx context.Context, taskID string, names []string) (*domain.Report, error) {
	report := &domain.Report{
		ReportID:     id.Report(),
		NTotal:       len(names),
		CreationDate: b.now().UTC(),
		Games:        []domain.ReportGame{},
	}
	log := b.logger.With(slog.String("report_id", report.ReportID), slog.String("task_id", taskID))
	log.Info("batch started", slog.Int("games", len(names)))

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", slog.Int("done", i))
			b.track(func(p Progress) error { return p.Fail(taskID, err) })
			return report, err
		}

		res, err := b.wizard.Execute(ctx, Request{Name: name, TaskID: taskID})
		game := domain.ReportGame{GameName: name, Status: domain.ReportSuccess}
		if res != nil {
			game.GameID = res.GameID
		}
		if err != nil {
			game.Status = domain.ReportError
			game.Code = errors.UserCode(err)
			game.Error = err.Error()
			if res != nil {
				game.Error = res.Message()
			}
			b.track(func(p Progress) error { return p.AddError(taskID, err, name) })
		}

		report.Add(game)
		if err := b.reports.Save(report); err != nil {
			log.Error("failed to save report", slog.Any("error", err))
		}

		current := i + 1
		b.track(func(p Progress) error {
			return p.UpdateProgress(taskID, float64(current*100)/float64(len(names)))
		})
	}

	b.track(func(p Progress) error { return p.Complete(taskID) })
	log.Info("batch finished",
		slog.Int("success", report.NSuccess),
		slog.Int("error", report.NError))
	return report, nil
}

func (b *Batch) track(fn func(Progress) error) {
	if b.progress == nil {
		return
	}
	if err := fn(b.progress); err != nil {
		b.logger.Warn("task update failed", slog.Any("error", err))
	}
}
