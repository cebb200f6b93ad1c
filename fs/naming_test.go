package fs

import (
	"testing"
	"time"
)

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local)
	if got := SnapshotName("kickdrum", ts); got != "kickdrum_2024-03-01_09-05.flp" {
		t.Errorf("SnapshotName = %q", got)
	}
	if got := NoteName("kickdrum_2024-03-01_09-05.flp"); got != "kickdrum_2024-03-01_09-05.txt" {
		t.Errorf("NoteName = %q", got)
	}
	if got := NoteName(PresentName("kickdrum")); got != "kickdrum.txt" {
		t.Errorf("NoteName(present) = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		want time.Time
	}{
		{"kick_2024-03-01_09-05.flp", true, time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local)},
		{"my_beat_2023-12-31_23-59.flp", true, time.Date(2023, 12, 31, 23, 59, 0, 0, time.Local)},
		{"kick.flp", false, time.Time{}},
		{"kick_old.flp", false, time.Time{}},
		{"kick_2024-13-45_99-99.flp", false, time.Time{}},
		{"kick_2024-03-01_09-05_copy.flp", true, time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local)},
		{"kick_2024-01-01_10-00 (copy).flp", true, time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)},
		{"kick_2024-03-01.flp", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.name)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"kickdrum", true},
		{"Lead Synth 2", true},
		{"", false},
		{"   ", false},
		{"..", false},
		{".hidden", false},
		{"a/b", false},
		{`a\b`, false},
	}

	for _, tt := range tests {
		err := ValidateProjectName(tt.name)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateProjectName(%q) err = %v, want valid=%v", tt.name, err, tt.valid)
		}
	}
}

func TestProjectNameFromFile(t *testing.T) {
	if got := ProjectNameFromFile("/tmp/stems/lead.flp"); got != "lead" {
		t.Errorf("got %q, want lead", got)
	}
}
