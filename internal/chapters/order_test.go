package chapters

import (
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestValidate(t *testing.T) {
	ok := []Chapter{{Title: "A", Timestamp: 0}, {Title: "B", Timestamp: 10}}
	if err := Validate(ok); err != nil {
		t.Errorf("Validate(ok) = %v", err)
	}

	bad := map[string][]Chapter{
		"negative":   {{Title: "A", Timestamp: -1}},
		"decreasing": {{Title: "A", Timestamp: 10}, {Title: "B", Timestamp: 5}},
		"equal":      {{Title: "A", Timestamp: 10}, {Title: "B", Timestamp: 10}},
	}
	for name, chs := range bad {
		if err := Validate(chs); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAccepted(t *testing.T) {
	if Accepted(make([]Chapter, 3)) {
		t.Error("3 chapters should not be accepted")
	}
	if !Accepted(make([]Chapter, 4)) {
		t.Error("4 chapters should be accepted")
	}
}

func TestFromDurations(t *testing.T) {
	entries := []Chapter{
		{ID: "a", Title: "One", Duration: ptr(60)},
		{ID: "b", Title: "Two", Duration: ptr(30)},
		{ID: "a", Title: "One again", Duration: ptr(60)},
		{ID: "c", Title: "Three", Duration: ptr(45)},
	}

	got := FromDurations(entries)
	if len(got) != 3 {
		t.Fatalf("got %d chapters, want 3", len(got))
	}

	wantTS := []float64{0, 60, 90}
	for i, ch := range got {
		if ch.Timestamp != wantTS[i] {
			t.Errorf("chapter %d timestamp = %v, want %v", i, ch.Timestamp, wantTS[i])
		}
		if ch.Duration != nil {
			t.Errorf("chapter %d still carries a duration", i)
		}
	}
	if got[2].ID != "c" {
		t.Errorf("third chapter ID = %q, want c", got[2].ID)
	}
}

func TestDurations(t *testing.T) {
	chs := []Chapter{
		{Title: "A", Timestamp: 0},
		{Title: "B", Timestamp: 100, CorrectedTimestamp: ptr(102)},
		{Title: "C", Timestamp: 200},
	}

	got := Durations(chs, 300)
	want := []float64{102, 98, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("duration %d = %v, want %v", i, got[i], want[i])
		}
	}
}
