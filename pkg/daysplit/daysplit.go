// Package daysplit splits rental intervals across local calendar-day
// boundaries. The building bills usage per local day under a fixed
// UTC offset, so all date arithmetic here is plain offset shifting
// with no timezone database and no DST rules.
package daysplit

import (
	"fmt"
	"time"
)

// Offset is the building's local UTC offset (+9:00). There are no
// daylight-saving transitions at this offset.
const Offset = 9 * time.Hour

// Date is a local calendar date under the fixed offset.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the local calendar date containing the instant t.
func DateOf(t time.Time, offset time.Duration) Date {
	local := t.UTC().Add(offset)
	year, month, day := local.Date()
	return Date{Year: year, Month: month, Day: day}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// YearMonth returns the billing bucket the date belongs to, e.g. "202401".
func (d Date) YearMonth() string {
	return fmt.Sprintf("%04d%02d", d.Year, int(d.Month))
}

// Half identifies which half of a calendar month a date falls in.
type Half string

const (
	FirstHalf  Half = "first"  // days 1-15
	SecondHalf Half = "second" // day 16 through end of month
)

// Half returns the half-month bucket for the date.
func (d Date) Half() Half {
	if d.Day <= 15 {
		return FirstHalf
	}
	return SecondHalf
}

// Segment is the part of an interval that falls within a single local
// calendar day. Start and End are instants (UTC); Minutes is the
// billable duration, rounded up to whole minutes.
type Segment struct {
	Date    Date
	Start   time.Time
	End     time.Time
	Minutes int
}

// Split partitions [start, end) into per-local-day segments. Segments
// are returned in chronological order, contiguous, with no gaps or
// overlaps. A zero-length interval yields no segments. end before
// start is an error.
func Split(start, end time.Time, offset time.Duration) ([]Segment, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("interval end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	start = start.UTC()
	end = end.UTC()

	var segments []Segment
	cursor := start
	for cursor.Before(end) {
		segEnd := endOfLocalDay(cursor, offset)
		if end.Before(segEnd) {
			segEnd = end
		}
		segments = append(segments, Segment{
			Date:    DateOf(cursor, offset),
			Start:   cursor,
			End:     segEnd,
			Minutes: ceilMinutes(segEnd.Sub(cursor)),
		})
		cursor = segEnd
	}
	return segments, nil
}

// endOfLocalDay returns the instant at which the local calendar day
// containing t rolls over to the next day.
func endOfLocalDay(t time.Time, offset time.Duration) time.Time {
	local := t.UTC().Add(offset)
	year, month, day := local.Date()
	nextMidnightLocal := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return nextMidnightLocal.Add(-offset)
}

func ceilMinutes(d time.Duration) int {
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}
