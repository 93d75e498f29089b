package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/domain"
	domainerrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/wizard"
)

func (s *Server) registerWizardRoutes() {
	var middlewares huma.Middlewares
	if s.deps.WizardLimiter != nil {
		middlewares = append(middlewares, s.rateLimit(s.deps.WizardLimiter))
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "startWizard",
		Method:        http.MethodPost,
		Path:          "/api/v1/wizard",
		Summary:       "Start the wizard for one game",
		Description:   "Runs game matching, chapter extraction, download, alignment and segmentation in the background. Progress is published on the event stream under the returned task id.",
		Tags:          []string{"Wizard"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   middlewares,
	}, s.handleStartWizard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "startWizardBatch",
		Method:        http.MethodPost,
		Path:          "/api/v1/wizard/batch",
		Summary:       "Start the wizard for many games",
		Description:   "Processes the games in order and writes a report. A failed game does not stop the batch.",
		Tags:          []string{"Wizard"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   middlewares,
	}, s.handleStartBatch)
}

// WizardRequest selects what the wizard starts from. With only a name the
// game and the media are discovered. gameId skips game matching and a media
// skips candidate search.
type WizardRequest struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=200" doc:"Game name, optionally suffixed with the release year, e.g. 'Okami (2006)'"`
	GameID    int64  `json:"gameId,omitempty" validate:"omitempty,gt=0" doc:"IGDB id of a game to (re)build"`
	MediaID   string `json:"mediaId,omitempty" validate:"omitempty,ytid" doc:"YouTube video or playlist id to use instead of searching"`
	MediaType string `json:"mediaType,omitempty" validate:"omitempty,mediatype" enum:"video,playlist" doc:"Kind of mediaId"`
}

// StartWizardInput wraps the wizard request for Huma.
type StartWizardInput struct {
	Body WizardRequest
}

// BatchRequest lists the games of a batch.
type BatchRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=500,dive,required,max=200" doc:"Game names, processed in order"`
}

// StartBatchInput wraps the batch request for Huma.
type StartBatchInput struct {
	Body BatchRequest
}

// TaskOutput wraps a task for Huma.
type TaskOutput struct {
	Body domain.Task
}

func (s *Server) handleStartWizard(_ context.Context, input *StartWizardInput) (*TaskOutput, error) {
	if s.deps.Wizard == nil || s.deps.Tracker == nil {
		return nil, huma.Error503ServiceUnavailable("wizard not configured")
	}

	body := input.Body
	body.Name = strings.TrimSpace(body.Name)
	if err := s.validator.Validate(body); err != nil {
		return nil, toHTTPError(err)
	}
	if body.Name == "" && body.GameID == 0 {
		return nil, toHTTPError(domainerrors.Validation("name or gameId is required"))
	}
	if (body.MediaID == "") != (body.MediaType == "") {
		return nil, toHTTPError(domainerrors.Validation("mediaId and mediaType go together"))
	}

	req := wizard.Request{Name: body.Name, GameID: body.GameID}
	if body.MediaID != "" {
		req.Media = &domain.MediaReference{MediaID: body.MediaID, MediaType: domain.MediaType(body.MediaType)}
	}

	taskName := body.Name
	if taskName == "" {
		taskName = fmt.Sprintf("game %d", body.GameID)
	}
	task, err := s.deps.Tracker.Create(tasks.TypeWizard, domain.TaskKindBoolean, taskName)
	if err != nil {
		return nil, toHTTPError(err)
	}
	req.TaskID = task.ID

	s.background(func(ctx context.Context) { s.runWizard(ctx, req) })
	return &TaskOutput{Body: task}, nil
}

// runWizard executes one request and records its outcome on the task.
func (s *Server) runWizard(ctx context.Context, req wizard.Request) {
	log := s.logger.With(slog.String("task_id", req.TaskID))

	res, err := s.deps.Wizard.Execute(ctx, req)
	if err == nil {
		if res.Warning != "" {
			log.Warn("wizard finished with warning", slog.String("warning", res.Warning))
		}
		if err := s.deps.Tracker.Complete(req.TaskID); err != nil {
			log.Warn("task update failed", slog.Any("error", err))
		}
		return
	}

	msg := err.Error()
	if res != nil {
		msg = res.Message()
	}
	log.Error("wizard failed", slog.String("code", domainerrors.UserCode(err)), slog.String("error", msg))

	contextID := req.Name
	if contextID == "" {
		contextID = fmt.Sprint(req.GameID)
	}
	if err := s.deps.Tracker.AddError(req.TaskID, errors.New(msg), contextID); err != nil {
		log.Warn("task update failed", slog.Any("error", err))
	}
	if err := s.deps.Tracker.Fail(req.TaskID, nil); err != nil {
		log.Warn("task update failed", slog.Any("error", err))
	}
}

func (s *Server) handleStartBatch(_ context.Context, input *StartBatchInput) (*TaskOutput, error) {
	if s.deps.Batch == nil || s.deps.Tracker == nil {
		return nil, huma.Error503ServiceUnavailable("wizard not configured")
	}

	names := make([]string, 0, len(input.Body.Names))
	for _, n := range input.Body.Names {
		names = append(names, strings.TrimSpace(n))
	}
	body := BatchRequest{Names: names}
	if err := s.validator.Validate(body); err != nil {
		return nil, toHTTPError(err)
	}

	task, err := s.deps.Tracker.Create(tasks.TypeWizardBatch, domain.TaskKindPercent, fmt.Sprintf("%d games", len(names)))
	if err != nil {
		return nil, toHTTPError(err)
	}

	s.background(func(ctx context.Context) {
		report, err := s.deps.Batch.Run(ctx, task.ID, names)
		if err != nil {
			s.logger.Warn("batch stopped", slog.String("task_id", task.ID), slog.Any("error", err))
			return
		}
		s.logger.Info("batch report written",
			slog.String("task_id", task.ID),
			slog.String("report_id", report.ReportID))
	})
	return &TaskOutput{Body: task}, nil
}
