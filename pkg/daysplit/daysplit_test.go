package daysplit

import (
	"testing"
	"time"
)

func jst(year int, month time.Month, day, hour, min int) time.Time {
	// Build the instant from local wall-clock time by subtracting the offset.
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC).Add(-Offset)
}

func TestSplit_SingleDay(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	end := jst(2024, time.January, 10, 10, 30)

	segments, err := Split(start, end, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}

	seg := segments[0]
	if seg.Date.String() != "2024-01-10" {
		t.Errorf("expected date 2024-01-10, got %s", seg.Date)
	}
	if !seg.Start.Equal(start) || !seg.End.Equal(end) {
		t.Errorf("segment does not span full interval: %v - %v", seg.Start, seg.End)
	}
	if seg.Minutes != 90 {
		t.Errorf("expected 90 minutes, got %d", seg.Minutes)
	}
}

func TestSplit_MidnightCrossing(t *testing.T) {
	// 2024-01-10 23:00 JST to 2024-01-11 01:30 JST
	start := jst(2024, time.January, 10, 23, 0)
	end := jst(2024, time.January, 11, 1, 30)

	segments, err := Split(start, end, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	first, second := segments[0], segments[1]
	if first.Date.String() != "2024-01-10" || first.Minutes != 60 {
		t.Errorf("first segment: expected 2024-01-10 / 60 min, got %s / %d min", first.Date, first.Minutes)
	}
	if second.Date.String() != "2024-01-11" || second.Minutes != 90 {
		t.Errorf("second segment: expected 2024-01-11 / 90 min, got %s / %d min", second.Date, second.Minutes)
	}
	if !first.End.Equal(second.Start) {
		t.Errorf("segments are not contiguous: %v != %v", first.End, second.Start)
	}
}

func TestSplit_MultiDayPartition(t *testing.T) {
	// Three full day boundaries crossed.
	start := jst(2024, time.March, 30, 18, 45)
	end := jst(2024, time.April, 2, 7, 10)

	segments, err := Split(start, end, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}

	// Partition: contiguous, no gaps, spanning exactly [start, end).
	if !segments[0].Start.Equal(start) {
		t.Errorf("first segment must start at interval start")
	}
	if !segments[len(segments)-1].End.Equal(end) {
		t.Errorf("last segment must end at interval end")
	}
	var total time.Duration
	for i, seg := range segments {
		if i > 0 && !seg.Start.Equal(segments[i-1].End) {
			t.Errorf("gap between segment %d and %d", i-1, i)
		}
		if seg.Minutes < 1 {
			t.Errorf("segment %d has non-positive minutes: %d", i, seg.Minutes)
		}
		total += seg.End.Sub(seg.Start)
	}
	if total != end.Sub(start) {
		t.Errorf("segments do not sum to interval length: %v != %v", total, end.Sub(start))
	}

	// Month boundary: segment dates roll 2024-03 into 2024-04.
	if segments[1].Date.YearMonth() != "202403" {
		t.Errorf("expected 202403, got %s", segments[1].Date.YearMonth())
	}
	if segments[3].Date.YearMonth() != "202404" {
		t.Errorf("expected 202404, got %s", segments[3].Date.YearMonth())
	}
}

func TestSplit_ZeroLengthInterval(t *testing.T) {
	at := jst(2024, time.January, 10, 9, 0)
	segments, err := Split(at, at, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %d", len(segments))
	}
}

func TestSplit_EndBeforeStart(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	if _, err := Split(start, start.Add(-time.Minute), Offset); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestSplit_SubMinuteRoundsUp(t *testing.T) {
	start := jst(2024, time.January, 10, 9, 0)
	end := start.Add(25 * time.Second)

	segments, err := Split(start, end, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Minutes != 1 {
		t.Errorf("expected single 1-minute segment, got %+v", segments)
	}
}

func TestSplit_ExactMidnightBoundary(t *testing.T) {
	// Ending exactly at local midnight must not produce a zero-length
	// segment for the next day.
	start := jst(2024, time.January, 10, 23, 0)
	end := jst(2024, time.January, 11, 0, 0)

	segments, err := Split(start, end, Offset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Date.String() != "2024-01-10" || segments[0].Minutes != 60 {
		t.Errorf("expected 2024-01-10 / 60 min, got %s / %d", segments[0].Date, segments[0].Minutes)
	}
}

func TestDate_Half(t *testing.T) {
	cases := []struct {
		day  int
		want Half
	}{
		{1, FirstHalf},
		{15, FirstHalf},
		{16, SecondHalf},
		{31, SecondHalf},
	}
	for _, tc := range cases {
		d := Date{Year: 2024, Month: time.January, Day: tc.day}
		if got := d.Half(); got != tc.want {
			t.Errorf("day %d: expected %s, got %s", tc.day, tc.want, got)
		}
	}
}

func TestDateOf_OffsetShiftsDay(t *testing.T) {
	// 2024-01-10 16:30 UTC is 2024-01-11 01:30 local.
	at := time.Date(2024, time.January, 10, 16, 30, 0, 0, time.UTC)
	d := DateOf(at, Offset)
	if d.String() != "2024-01-11" {
		t.Errorf("expected 2024-01-11, got %s", d)
	}
}
