package models

import (
	"testing"
	"time"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plus country code", "+919704612333", "9704612333"},
		{"bare ten digits", "9704612333", "9704612333"},
		{"country code no plus", "919704612333", "9704612333"},
		{"formatted", "+91 97046-12333", "9704612333"},
		{"thirteen digits with 91", "9109704612333", "9704612333"},
		{"long foreign number keeps last ten", "0014155552671999", "5552671999"},
		{"short number untouched", "12345", "12345"},
		{"empty", "", ""},
		{"letters only", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{
		"+919704612333", "919704612333", "9704612333", "00919704612333",
		"+1 (415) 555-2671", "9109704612333", "1234", "", "+91-12",
	}

	for _, in := range inputs {
		once := NormalizePhone(in)
		twice := NormalizePhone(once)
		if once != twice {
			t.Errorf("NormalizePhone not idempotent for %q: %q then %q", in, once, twice)
		}
		if len(once) > 10 {
			t.Errorf("NormalizePhone(%q) = %q, longer than 10 digits", in, once)
		}
	}
}

func TestParseDate(t *testing.T) {
	utc := time.UTC
	secs := time.Date(2025, 3, 14, 10, 0, 0, 0, utc).Unix()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"epoch seconds", secs, "2025-03-14"},
		{"epoch seconds float", float64(secs), "2025-03-14"},
		{"epoch millis", secs * 1000, "2025-03-14"},
		{"iso string", "2025-03-14T10:00:00.000Z", "2025-03-14"},
		{"date only", "2025-03-14", "2025-03-14"},
		{"short string", "2025-03", ""},
		{"garbage string", "not a date at all", ""},
		{"nil", nil, ""},
		{"bool", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDate(tt.input, utc); got != tt.want {
				t.Errorf("ParseDate(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_MillisThreshold(t *testing.T) {
	// 10,000,000,000 seconds is year 2286; just above it is read as millis (1970).
	if got := ParseDate(int64(10_000_000_000), time.UTC); got != "2286-11-20" {
		t.Errorf("threshold value should be seconds, got %q", got)
	}
	if got := ParseDate(int64(10_000_000_001), time.UTC); got != "1970-04-26" {
		t.Errorf("value above threshold should be millis, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	secs := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Unix()
	if got := FormatTimestamp(secs, time.UTC); got != "2025-01-02T03:04:05" {
		t.Errorf("FormatTimestamp(seconds) = %q", got)
	}
	if got := FormatTimestamp("2025-01-02 03:04", time.UTC); got != "2025-01-02 03:04" {
		t.Errorf("strings should pass through, got %q", got)
	}
	if got := FormatTimestamp(nil, time.UTC); got != "" {
		t.Errorf("nil should be empty, got %q", got)
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2025, 2, 27, 15, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 1, 0, 0, 0, time.UTC)
	got := DateRange(start, end)
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	if len(got) != len(want) {
		t.Fatalf("DateRange returned %d days, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %s, want %s", i, got[i], want[i])
		}
	}
}
