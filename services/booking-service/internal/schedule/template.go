package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Clock is a wall-clock time within one calendar day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) before(o Clock) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	return c.Minute < o.Minute
}

// Range is a half-open [Start, End) window of local time. Ranges never span
// midnight; a template that is meant to cross a date boundary must list
// explicit per-day ranges.
type Range struct {
	Start Clock
	End   Clock
}

// Template maps weekdays to the ordered open ranges of the recurring weekly
// schedule. It is built once at startup and treated as immutable afterwards.
type Template map[time.Weekday][]Range

var weekdayKeys = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseRange parses "HH:MM-HH:MM". An end time of exactly 24:00 is replaced
// with 23:59 so that slot generation still emits the final slot of a day
// whose range runs to midnight (the generator compensates with a one-minute
// tolerance). Malformed input is a configuration error.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("range %q: want HH:MM-HH:MM", s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	if end.Hour == 24 && end.Minute == 0 {
		end = Clock{Hour: 23, Minute: 59}
	}
	if end.Hour > 23 {
		return Range{}, fmt.Errorf("range %q: end past midnight", s)
	}
	if !start.before(end) {
		return Range{}, fmt.Errorf("range %q: start not before end", s)
	}
	return Range{Start: start, End: end}, nil
}

func parseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("clock %q: want HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &h, &m); err != nil {
		return Clock{}, fmt.Errorf("clock %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("clock %q: out of bounds", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// ParseTemplate builds a Template from weekday-keyed range strings
// (keys mon..sun, as in {"mon": ["09:00-17:00"]}). Unknown keys and
// malformed ranges fail fast; the template is static configuration.
func ParseTemplate(raw map[string][]string) (Template, error) {
	t := Template{}
	for key, ranges := range raw {
		day, ok := weekdayKeys[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday key %q", key)
		}
		parsed := make([]Range, 0, len(ranges))
		for _, r := range ranges {
			pr, err := ParseRange(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			parsed = append(parsed, pr)
		}
		sort.Slice(parsed, func(i, j int) bool { return parsed[i].Start.before(parsed[j].Start) })
		t[day] = parsed
	}
	return t, nil
}

// ParseTemplateJSON parses the BUSINESS_HOURS_JSON configuration value.
func ParseTemplateJSON(data []byte) (Template, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("business hours json: %w", err)
	}
	return ParseTemplate(raw)
}

// DateSet is a set of calendar dates (YYYY-MM-DD) blocked from availability
// regardless of the weekly template.
type DateSet map[string]struct{}

// ParseDates parses a comma-separated list of YYYY-MM-DD dates.
func ParseDates(csv string) (DateSet, error) {
	set := DateSet{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", part); err != nil {
			return nil, fmt.Errorf("blocked date %q: %w", part, err)
		}
		set[part] = struct{}{}
	}
	return set, nil
}

// Contains reports whether the calendar date of t (in t's own location) is
// blocked.
func (s DateSet) Contains(t time.Time) bool {
	_, ok := s[t.Format("2006-01-02")]
	return ok
}
