package wizard

import (
	"cmp"
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
)

// Reports stores batch reports as {dir}/{reportID}.json.
type Reports struct {
	dir string
}

// NewReports creates the report directory if needed.
func NewReports(dir string) (*Reports, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &Reports{dir: dir}, nil
}

// Path returns the file of a report.
func (s *Reports) Path(reportID string) string {
	return filepath.Join(s.dir, reportID+".json")
}

// Save replaces the report file atomically.
func (s *Reports) Save(r *domain.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tmp := s.Path(r.ReportID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, s.Path(r.ReportID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// Load reads one report.
func (s *Reports) Load(reportID string) (*domain.Report, error) {
	if _, err := uuid.Parse(reportID); err != nil {
		return nil, errors.Validationf("invalid report id %q", reportID)
	}

	data, err := os.ReadFile(s.Path(reportID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundf("report %s not found", reportID)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}

	var r domain.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", reportID, err)
	}
	return &r, nil
}

// List returns every readable report, newest first.
func (s *Reports) List() ([]*domain.Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var out []*domain.Report
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		r, err := s.Load(name)
		if err != nil {
			continue
		}
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b *domain.Report) int {
		if c := b.CreationDate.Compare(a.CreationDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ReportID, b.ReportID)
	})
	return out, nil
}
