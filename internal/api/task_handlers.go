package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/domain"
)

func (s *Server) registerTaskRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTasks",
		Method:      http.MethodGet,
		Path:        "/api/v1/tasks",
		Summary:     "List tasks",
		Description: "Returns every known task, newest first",
		Tags:        []string{"Tasks"},
	}, s.handleListTasks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTask",
		Method:      http.MethodGet,
		Path:        "/api/v1/tasks/{id}",
		Summary:     "Get task",
		Tags:        []string{"Tasks"},
	}, s.handleGetTask)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTask",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tasks/{id}",
		Summary:     "Forget a task",
		Description: "Removes the task from the tracker. A running wizard keeps running.",
		Tags:        []string{"Tasks"},
	}, s.handleDeleteTask)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReports",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports",
		Summary:     "List batch reports",
		Tags:        []string{"Tasks"},
	}, s.handleListReports)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReport",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/{id}",
		Summary:     "Get batch report",
		Tags:        []string{"Tasks"},
	}, s.handleGetReport)
}

// TaskIDInput identifies a task.
type TaskIDInput struct {
	ID string `path:"id" maxLength:"64" doc:"Task ID"`
}

// ListTasksOutput wraps the task list for Huma.
type ListTasksOutput struct {
	Body struct {
		Tasks []domain.Task `json:"tasks"`
	}
}

// ReportIDInput identifies a report.
type ReportIDInput struct {
	ID string `path:"id" format:"uuid" doc:"Report ID"`
}

// ReportOutput wraps a report for Huma.
type ReportOutput struct {
	Body *domain.Report
}

// ReportSummary is a report without its per-game lines.
type ReportSummary struct {
	ReportID     string `json:"report_id"`
	NSuccess     int    `json:"n_success"`
	NError       int    `json:"n_error"`
	NTotal       int    `json:"n_total"`
	CreationDate string `json:"creation_date"`
}

// ListReportsOutput wraps the report list for Huma.
type ListReportsOutput struct {
	Body struct {
		Reports []ReportSummary `json:"reports"`
	}
}

func (s *Server) handleListTasks(_ context.Context, _ *struct{}) (*ListTasksOutput, error) {
	if s.deps.Tracker == nil {
		return nil, huma.Error503ServiceUnavailable("task tracker not configured")
	}
	out := &ListTasksOutput{}
	out.Body.Tasks = s.deps.Tracker.List()
	return out, nil
}

func (s *Server) handleGetTask(_ context.Context, input *TaskIDInput) (*TaskOutput, error) {
	if s.deps.Tracker == nil {
		return nil, huma.Error503ServiceUnavailable("task tracker not configured")
	}
	task, err := s.deps.Tracker.Get(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &TaskOutput{Body: task}, nil
}

func (s *Server) handleDeleteTask(_ context.Context, input *TaskIDInput) (*struct{}, error) {
	if s.deps.Tracker == nil {
		return nil, huma.Error503ServiceUnavailable("task tracker not configured")
	}
	if err := s.deps.Tracker.Delete(input.ID); err != nil {
		return nil, toHTTPError(err)
	}
	return nil, nil
}

func (s *Server) handleListReports(_ context.Context, _ *struct{}) (*ListReportsOutput, error) {
	if s.deps.Reports == nil {
		return nil, huma.Error503ServiceUnavailable("reports not configured")
	}
	reports, err := s.deps.Reports.List()
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &ListReportsOutput{}
	out.Body.Reports = make([]ReportSummary, 0, len(reports))
	for _, r := range reports {
		out.Body.Reports = append(out.Body.Reports, ReportSummary{
			ReportID:     r.ReportID,
			NSuccess:     r.NSuccess,
			NError:       r.NError,
			NTotal:       r.NTotal,
			CreationDate: r.CreationDate.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *Server) handleGetReport(_ context.Context, input *ReportIDInput) (*ReportOutput, error) {
	if s.deps.Reports == nil {
		return nil, huma.Error503ServiceUnavailable("reports not configured")
	}
	report, err := s.deps.Reports.Load(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &ReportOutput{Body: report}, nil
}
