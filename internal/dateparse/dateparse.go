// Package dateparse parses the relative and absolute date inputs used for
// report ranges and transaction dates.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02"

// ParseDate parses a date input and returns it as YYYY-MM-DD, relative to
// the current time.
func ParseDate(input string) (string, error) {
	t, err := ParseDateFrom(input, time.Now())
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

// ParseDateFrom parses a date input relative to now and returns midnight of
// that day in now's location.
//
// Supported formats:
//   - Exact dates: "2025-01-31"
//   - Keywords: "today", "yesterday", "tomorrow" (also "hari-ini", "kemarin", "besok")
//   - Relative offsets: "-7d", "+7d", "-2w", "-1m"
func ParseDateFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty date input")
	}
	today := startOfDay(now)

	if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
		return t, nil
	}

	switch input {
	case "today", "hari-ini":
		return today, nil
	case "yesterday", "kemarin":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow", "besok":
		return today.AddDate(0, 0, 1), nil
	}

	if (input[0] == '+' || input[0] == '-') && len(input) >= 3 {
		sign := 1
		if input[0] == '-' {
			sign = -1
		}
		suffix := input[len(input)-1]
		n, err := strconv.Atoi(input[1 : len(input)-1])
		if err == nil && n >= 0 {
			n *= sign
			switch suffix {
			case 'd':
				return today.AddDate(0, 0, n), nil
			case 'w':
				return today.AddDate(0, 0, n*7), nil
			case 'm':
				return today.AddDate(0, n, 0), nil
			default:
				return time.Time{}, fmt.Errorf("unknown relative unit %q in %q (use d, w, or m)", string(suffix), input)
			}
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", input)
}

// ParseRangeFrom parses a report range relative to now. Both bounds are
// midnight of their day; end is inclusive.
//
// Supported formats:
//   - "this-month", "last-month", "this-week"
//   - "A..B" with A and B in any ParseDateFrom format
//   - a single date: the range between it and today
func ParseRangeFrom(input string, now time.Time) (start, end time.Time, err error) {
	input = strings.TrimSpace(strings.ToLower(input))
	today := startOfDay(now)
	year, month, _ := today.Date()

	switch input {
	case "this-month", "bulan-ini":
		return time.Date(year, month, 1, 0, 0, 0, 0, now.Location()), today, nil
	case "last-month", "bulan-lalu":
		first := time.Date(year, month-1, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, -1), nil
	case "this-week", "minggu-ini":
		offset := (int(today.Weekday()) - int(time.Monday) + 7) % 7
		return today.AddDate(0, 0, -offset), today, nil
	}

	if a, b, ok := strings.Cut(input, ".."); ok {
		if start, err = ParseDateFrom(a, now); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end, err = ParseDateFrom(b, now); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("range end %s is before start %s", FormatDate(end), FormatDate(start))
		}
		return start, end, nil
	}

	d, err := ParseDateFrom(input, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if d.After(today) {
		return today, d, nil
	}
	return d, today, nil
}

// FormatDate formats t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(layout)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
