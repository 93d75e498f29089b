package normalize

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Pokémon", "pokemon"},
		{"ÔKAMI", "okami"},
		{"Café\x00", "cafe"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.expected {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDetectYear(t *testing.T) {
	tests := []struct {
		input    string
		wantYear int
		wantName string
	}{
		{"Halo (2001)", 2001, "Halo"},
		{"doom (2016) ", 2016, "doom"},
		{"Prey (2017) deluxe", 2017, "Prey deluxe"},
		{"Hades", 0, "Hades"},
		{"Year (20) ", 0, "Year (20)"},
	}

	for _, tt := range tests {
		year, name := DetectYear(tt.input)
		if year != tt.wantYear || name != tt.wantName {
			t.Errorf("DetectYear(%q) = (%d, %q), want (%d, %q)", tt.input, year, name, tt.wantYear, tt.wantName)
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"halo", "halo", 100},
		{"halo", "", 0},
		// lengths 4 + 3, distance 1 -> 6/7
		{"halo", "hal", 86},
		// kitten/sitting: LCS 4, total 13, distance 5 -> 8/13
		{"kitten", "sitting", 62},
		{"abc", "xyz", 0},
	}

	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRatioIsSymmetric(t *testing.T) {
	pairs := [][2]string{{"the legend of zelda", "legend of zelda"}, {"doom", "doom eternal"}}
	for _, p := range pairs {
		if Ratio(p[0], p[1]) != Ratio(p[1], p[0]) {
			t.Errorf("Ratio not symmetric for %q / %q", p[0], p[1])
		}
	}
}
