package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/tasks"
)

func TestTasks_ListGetDelete(t *testing.T) {
	ts := setupTestServer(t)
	task, err := ts.tracker.Create(tasks.TypeWizardBatch, domain.TaskKindPercent, "3 games")
	require.NoError(t, err)
	require.NoError(t, ts.tracker.UpdateProgress(task.ID, 33.4))

	resp := ts.api.Get("/api/v1/tasks")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeEnvelope[struct {
		Tasks []domain.Task `json:"tasks"`
	}](t, resp.Body.Bytes()).Data.Tasks
	require.Len(t, list, 1)
	assert.Equal(t, 33, list[0].Value)

	resp = ts.api.Get("/api/v1/tasks/" + task.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, task.ID, decodeEnvelope[domain.Task](t, resp.Body.Bytes()).Data.ID)

	resp = ts.api.Delete("/api/v1/tasks/" + task.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/tasks/" + task.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, http.StatusNotFound, ts.api.Delete("/api/v1/tasks/"+task.ID).Code)
}

func TestReports(t *testing.T) {
	ts := setupTestServer(t)
	report := &domain.Report{
		ReportID:     "0b9a5c3e-1f43-4a43-9a0e-1c8f2b7d6a01",
		NTotal:       2,
		CreationDate: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	report.Add(domain.ReportGame{GameName: "Okami", GameID: 1033, Status: domain.ReportSuccess})
	report.Add(domain.ReportGame{GameName: "Nothing", Status: domain.ReportError, Code: "NO_MATCH", Error: "[Matching game] no matching game found"})
	require.NoError(t, ts.reports.Save(report))

	resp := ts.api.Get("/api/v1/reports")
	require.Equal(t, http.StatusOK, resp.Code)
	summaries := decodeEnvelope[struct {
		Reports []ReportSummary `json:"reports"`
	}](t, resp.Body.Bytes()).Data.Reports
	require.Len(t, summaries, 1)
	assert.Equal(t, ReportSummary{
		ReportID:     report.ReportID,
		NSuccess:     1,
		NError:       1,
		NTotal:       2,
		CreationDate: "2026-05-01T08:00:00Z",
	}, summaries[0])

	resp = ts.api.Get("/api/v1/reports/" + report.ReportID)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeEnvelope[domain.Report](t, resp.Body.Bytes()).Data
	require.Len(t, got.Games, 2)
	assert.Equal(t, "NO_MATCH", got.Games[1].Code)

	assert.Equal(t, http.StatusNotFound, ts.api.Get("/api/v1/reports/3f0c2b1a-9d8e-4c7b-a6f5-e4d3c2b1a009").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, ts.api.Get("/api/v1/reports/not-a-uuid").Code)
}

func TestEvents_Mounted(t *testing.T) {
	ts := setupTestServer(t)

	w := httptest.NewRecorder()
	ts.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
