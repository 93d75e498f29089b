package chapters

import (
	"strings"
	"testing"
)

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0:00 Main Theme", "Main Theme"},
		{"1:02:03 - Boss Battle (Phase 2)", "Boss Battle"},
		{"03. Title Screen!", "Title Screen"},
		{"\n\n  Stage 1\nextra line", "Stage 1"},
		{"Gerudo   Valley   12:30", "Gerudo Valley"},
		{"Café del Mar ♪", "Café del Mar"},
		{"12:34", ""},
		{"", ""},
		{"Area 51", "Area 51"},
		{"Song 1:23_", "Song"},
		{"-- 12 --", ""},
		{"1. 0:00", ""},
	}

	for _, tt := range tests {
		got := CleanLine(tt.in)
		if got != tt.want {
			t.Errorf("CleanLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanLineIdempotent(t *testing.T) {
	inputs := []string{
		"0:00 Main Theme",
		"1:02:03 - Boss Battle (Phase 2)",
		"[12] Final Dungeon ~ Part II",
		"★ Ending ★",
		"(intro) 00:00 Prelude",
		"Song 1:23_",
		"Battle 2:05a",
		"-- 12 --",
		"1. 0:00",
	}

	for _, in := range inputs {
		once := CleanLine(in)
		if twice := CleanLine(once); twice != once {
			t.Errorf("CleanLine not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func linkAt(content, marker string, seconds float64) Link {
	return Link{Start: strings.Index(content, marker), Length: len(marker), Seconds: seconds}
}

func TestCollect(t *testing.T) {
	content := "Tracklist:\n0:00 Opening\n1:30 Field (Day)\n1:30 Field (Day)\n3:00 Field (Day)\n4:10 Boss\n"
	a := Annotated{
		Content: content,
		Links: []Link{
			linkAt(content, "0:00", 0),
			linkAt(content, "1:30", 90),
			{Start: strings.LastIndex(content, "1:30"), Length: 4, Seconds: 90},
			linkAt(content, "3:00", 180),
			linkAt(content, "4:10", 250),
		},
	}

	got := Collect(a)
	want := []Chapter{
		{Title: "Opening", Timestamp: 0},
		{Title: "Field", Timestamp: 90},
		{Title: "Boss", Timestamp: 250},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d chapters, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Title != want[i].Title || got[i].Timestamp != want[i].Timestamp {
			t.Errorf("chapter %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if err := Validate(got); err != nil {
		t.Errorf("collected chapters invalid: %v", err)
	}
}

func TestCollectUTF16Offsets(t *testing.T) {
	// Each emoji is two UTF-16 units.
	content := "🎵🎵 OST\n1:00 Théme\n"
	a := Annotated{Content: content, Links: []Link{{Start: 9, Length: 4, Seconds: 60}}}

	got := Collect(a)
	if len(got) != 1 || got[0].Title != "Théme" {
		t.Fatalf("Collect = %+v, want one chapter titled Théme", got)
	}
}

func TestCollectOutOfRangeLink(t *testing.T) {
	a := Annotated{Content: "0:00 Only", Links: []Link{{Start: 500, Length: 4, Seconds: 1}}}

	got := Collect(a)
	if len(got) != 1 || got[0].Title != "Only" {
		t.Errorf("Collect = %+v", got)
	}
}

func TestFromRuns(t *testing.T) {
	sec := func(v float64) *float64 { return &v }
	runs := []Run{
		{Text: "Tracklist:\n"},
		{Text: "0:00", Seconds: sec(0)},
		{Text: " Intro\n"},
		{Text: "2:15", Seconds: sec(135)},
		{Text: " Forest Temple\n"},
		{Text: "see "},
		{Text: "#shorts"},
	}

	got := Collect(FromRuns(runs))
	if len(got) != 2 {
		t.Fatalf("got %d chapters, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Intro" || got[1].Title != "Forest Temple" || got[1].Timestamp != 135 {
		t.Errorf("unexpected chapters %+v", got)
	}
}
