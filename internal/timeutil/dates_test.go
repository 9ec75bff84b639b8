package timeutil

import (
	"testing"
	"time"
)

func TestParseDateAcceptedFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-15", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-06-15 14:30:00", time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)},
		{"2025-06-15T14:30:00Z", time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseDate(c.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", c.in, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "yesterday", "15/06/2025"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q) expected error", in)
		}
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	mid := time.Date(2025, 6, 15, 14, 30, 45, 123, time.UTC)

	start := StartOfDay(mid)
	if start != time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("StartOfDay = %v", start)
	}

	end := EndOfDay(mid)
	if end.Day() != 15 || end.Hour() != 23 || end.Minute() != 59 {
		t.Errorf("EndOfDay = %v", end)
	}
	if !end.Before(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("EndOfDay must stay within the day")
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC))
	if start != time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("month start = %v", start)
	}
	if end.Month() != time.February || end.Day() != 28 {
		t.Errorf("month end = %v", end)
	}
}
