package core

import (
	"testing"
	"time"
)

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	ref := time.Date(2024, 3, 15, 14, 30, 0, 0, loc)
	start, end := DayBounds(ref)

	wantStart := time.Date(2024, 3, 15, 0, 0, 0, 0, loc).UnixMilli()
	wantEnd := time.Date(2024, 3, 15, 23, 59, 59, 999000000, loc).UnixMilli()

	if start != wantStart {
		t.Fatalf("start: expected %d, got %d", wantStart, start)
	}
	if end != wantEnd {
		t.Fatalf("end: expected %d, got %d", wantEnd, end)
	}
	if end-start != 86399999 {
		t.Fatalf("expected 86399999ms span, got %d", end-start)
	}

	// The reference value is untouched.
	if !ref.Equal(time.Date(2024, 3, 15, 14, 30, 0, 0, loc)) {
		t.Fatalf("reference time was mutated: %v", ref)
	}
}

func TestDayBoundsYearBoundary(t *testing.T) {
	loc := time.UTC
	ref := time.Date(2023, 12, 31, 23, 59, 0, 0, loc)

	start, end := DayBounds(ref)

	if got := time.UnixMilli(start).In(loc); got.Year() != 2023 || got.Month() != 12 || got.Day() != 31 {
		t.Fatalf("start fell outside the day: %v", got)
	}
	if got := time.UnixMilli(end).In(loc); got.Year() != 2023 || got.Day() != 31 {
		t.Fatalf("end fell outside the day: %v", got)
	}
	if next := time.UnixMilli(end + 1).In(loc); next.Year() != 2024 || next.Month() != 1 || next.Day() != 1 {
		t.Fatalf("end+1ms should be new year's day, got %v", next)
	}
}
