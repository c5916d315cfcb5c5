package schedule

import "time"

// ResolveLocation maps a user-supplied IANA zone name to a *time.Location,
// falling back to def when the name is empty or unknown. Timezone mistakes
// must never block a booking flow, so this never returns an error.
func ResolveLocation(name string, def *time.Location) *time.Location {
	if name == "" {
		return def
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return def
	}
	return loc
}
