package schedule

import "time"

// Slot is a candidate bookable interval in local time. Slots are transient:
// they are recomputed on every availability query and never persisted.
type Slot struct {
	Start time.Time
	End   time.Time
}

// SlotsForDate expands the template ranges for date's weekday into
// fixed-length slots in loc, ordered by start time.
//
// The loop allows one extra minute past the nominal range end. That is not
// general slack: ParseRange rewrites a 24:00 end to 23:59, and without the
// tolerance the final slot of a run-to-midnight range would be dropped.
// Slots therefore never start later than the nominal end time, but the last
// slot of such a range may end at next-day 00:00.
func (t Template) SlotsForDate(date time.Time, loc *time.Location, slotLen time.Duration) []Slot {
	if slotLen <= 0 {
		return nil
	}
	year, month, day := date.Date()
	var slots []Slot
	for _, r := range t[date.Weekday()] {
		cur := time.Date(year, month, day, r.Start.Hour, r.Start.Minute, 0, 0, loc)
		end := time.Date(year, month, day, r.End.Hour, r.End.Minute, 0, 0, loc)
		for !cur.Add(slotLen).After(end.Add(time.Minute)) {
			slots = append(slots, Slot{Start: cur, End: cur.Add(slotLen)})
			cur = cur.Add(slotLen)
		}
	}
	return slots
}
