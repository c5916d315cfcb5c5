package availability

import (
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
)

// Interval is an occupied [Start, End) span in absolute time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Instants are compared absolutely, so values in
// different zones compare correctly. Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Query describes one availability computation. StartDate must be midnight
// of the first day in Loc; Busy holds the confirmed bookings intersecting
// the window (already filtered of any excluded booking).
type Query struct {
	Hours     schedule.Template
	Blocked   schedule.DateSet
	StartDate time.Time
	Days      int
	SlotLen   time.Duration
	Lead      time.Duration
	Loc       *time.Location
	Now       time.Time
	Busy      []Interval
}

// Free returns the bookable slots for the query, ascending by start time.
// A candidate survives when its date is not blocked, its start is at or
// after now+lead (lead time gates the start, not the end), and it overlaps
// no busy interval.
func Free(q Query) []schedule.Slot {
	if q.Days <= 0 || q.SlotLen <= 0 {
		return nil
	}
	cutoff := q.Now.In(q.Loc).Add(q.Lead)

	var free []schedule.Slot
	for i := 0; i < q.Days; i++ {
		day := q.StartDate.AddDate(0, 0, i)
		if q.Blocked.Contains(day) {
			continue
		}
		for _, s := range q.Hours.SlotsForDate(day, q.Loc, q.SlotLen) {
			if s.Start.Before(cutoff) {
				continue
			}
			if overlapsAny(s.Start, s.End, q.Busy) {
				continue
			}
			free = append(free, s)
		}
	}
	return free
}

// Window returns the absolute bounds of the candidate window, for the
// bounded range query that loads intersecting bookings. Any booking that
// overlaps a candidate slot starts strictly before the returned end, so the
// query never needs a scan of the whole table.
func Window(startDate time.Time, days int) (time.Time, time.Time) {
	return startDate.UTC(), startDate.AddDate(0, 0, days).UTC()
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
