package dateparse

import (
	"testing"
	"time"
)

// Wednesday 2025-03-12 10:30 local
var ref = time.Date(2025, time.March, 12, 10, 30, 0, 0, time.Local)

func TestParseDateFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-01-31", "2025-01-31"},
		{"today", "2025-03-12"},
		{" Today ", "2025-03-12"},
		{"hari-ini", "2025-03-12"},
		{"yesterday", "2025-03-11"},
		{"kemarin", "2025-03-11"},
		{"tomorrow", "2025-03-13"},
		{"-7d", "2025-03-05"},
		{"+7d", "2025-03-19"},
		{"-2w", "2025-02-26"},
		{"-1m", "2025-02-12"},
		{"+1m", "2025-04-12"},
		{"-0d", "2025-03-12"},
	}
	for _, tc := range tests {
		got, err := ParseDateFrom(tc.input, ref)
		if err != nil {
			t.Errorf("ParseDateFrom(%q) error: %v", tc.input, err)
			continue
		}
		if FormatDate(got) != tc.want {
			t.Errorf("ParseDateFrom(%q) = %s, want %s", tc.input, FormatDate(got), tc.want)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Errorf("ParseDateFrom(%q) not at midnight: %v", tc.input, got)
		}
	}
}

func TestParseDateFromErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "someday", "-7y", "+xd", "2025-13-01", "-d"} {
		if _, err := ParseDateFrom(input, ref); err == nil {
			t.Errorf("ParseDateFrom(%q) expected error", input)
		}
	}
}

func TestParseRangeFrom(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
	}{
		{"this-month", "2025-03-01", "2025-03-12"},
		{"bulan-ini", "2025-03-01", "2025-03-12"},
		{"last-month", "2025-02-01", "2025-02-28"},
		{"this-week", "2025-03-10", "2025-03-12"},
		{"-7d", "2025-03-05", "2025-03-12"},
		{"+3d", "2025-03-12", "2025-03-15"},
		{"2025-01-01..2025-01-31", "2025-01-01", "2025-01-31"},
		{"-1m..today", "2025-02-12", "2025-03-12"},
	}
	for _, tc := range tests {
		start, end, err := ParseRangeFrom(tc.input, ref)
		if err != nil {
			t.Errorf("ParseRangeFrom(%q) error: %v", tc.input, err)
			continue
		}
		if FormatDate(start) != tc.wantStart || FormatDate(end) != tc.wantEnd {
			t.Errorf("ParseRangeFrom(%q) = %s..%s, want %s..%s",
				tc.input, FormatDate(start), FormatDate(end), tc.wantStart, tc.wantEnd)
		}
	}
}

func TestParseRangeFromLastMonthAcrossYear(t *testing.T) {
	jan := time.Date(2025, time.January, 15, 9, 0, 0, 0, time.Local)
	start, end, err := ParseRangeFrom("last-month", jan)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if FormatDate(start) != "2024-12-01" || FormatDate(end) != "2024-12-31" {
		t.Errorf("got %s..%s", FormatDate(start), FormatDate(end))
	}
}

func TestParseRangeFromErrors(t *testing.T) {
	for _, input := range []string{"2025-02-01..2025-01-01", "soon..today", "today..later", "nope"} {
		if _, _, err := ParseRangeFrom(input, ref); err == nil {
			t.Errorf("ParseRangeFrom(%q) expected error", input)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-06-01")
	if err != nil || got != "2025-06-01" {
		t.Errorf("ParseDate = %q, %v", got, err)
	}
}
