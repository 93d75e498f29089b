package chapters

import (
	"os"
	"strings"
	"testing"

	"github.com/aresapp/ares-server/internal/domain"
)

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	file := domain.ChaptersFile{
		GameID: 1234,
		Chapters: []Chapter{
			{Title: "Opening", Timestamp: 0},
			{Title: "Field", Timestamp: 95.5, CorrectedTimestamp: ptr(96.25)},
		},
	}

	if err := Save(dir, "vid123", file); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir, "vid123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.GameID != 1234 || len(got.Chapters) != 2 {
		t.Fatalf("Load = %+v", got)
	}
	if got.Chapters[1].CorrectedTimestamp == nil || *got.Chapters[1].CorrectedTimestamp != 96.25 {
		t.Errorf("corrected timestamp not preserved: %+v", got.Chapters[1])
	}

	data, _ := os.ReadFile(Path(dir, "vid123"))
	if !strings.Contains(string(data), `"gameID":1234`) {
		t.Errorf("file does not use gameID key: %s", data)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	file := domain.ChaptersFile{Chapters: []Chapter{{Title: "B", Timestamp: 10}, {Title: "A", Timestamp: 1}}}
	if err := Save(t.TempDir(), "x", file); err == nil {
		t.Error("expected error for unordered chapters")
	}
}

func TestRemoveMissing(t *testing.T) {
	if err := Remove(t.TempDir(), "nope"); err != nil {
		t.Errorf("Remove missing = %v", err)
	}
}
