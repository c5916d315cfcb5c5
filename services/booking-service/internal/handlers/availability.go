package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/availability"
	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
)

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type availabilityDay struct {
	Date  string     `json:"date"`
	Slots []slotItem `json:"slots"`
}

type availabilityResponse struct {
	Timezone string            `json:"timezone"`
	Days     []availabilityDay `json:"days"`
}

// localISO is the wire format for local timestamps: ISO-8601 without a zone
// suffix. The zone is carried separately so naive values are never silently
// reinterpreted.
const localISO = "2006-01-02T15:04:05"

// Availability serves GET /api/v1/availability. An unparseable start date
// falls back to today in the resolved zone rather than failing, matching
// the tolerance applied to zone names.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	loc := schedule.ResolveLocation(strings.TrimSpace(r.URL.Query().Get("tz")), h.cfg.DefaultZone)
	now := h.now()

	startDate := todayIn(now, loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		if d, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
			startDate = d
		}
	}

	days := h.cfg.DaysAhead
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= h.cfg.DaysAhead {
			days = n
		}
	}

	excludeID := strings.TrimSpace(r.URL.Query().Get("exclude_booking_id"))

	from, to := availability.Window(startDate, days)
	busy, err := h.store.ConfirmedIntervals(r.Context(), from, to, excludeID)
	if err != nil {
		h.logger.Error("load confirmed intervals failed", "err", err)
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}

	free := availability.Free(availability.Query{
		Hours:     h.cfg.Hours,
		Blocked:   h.cfg.Blocked,
		StartDate: startDate,
		Days:      days,
		SlotLen:   h.cfg.SlotLen,
		Lead:      h.cfg.Lead,
		Loc:       loc,
		Now:       now,
		Busy:      busy,
	})

	resp := availabilityResponse{Timezone: loc.String(), Days: []availabilityDay{}}
	for _, s := range free {
		date := s.Start.Format("2006-01-02")
		if n := len(resp.Days); n == 0 || resp.Days[n-1].Date != date {
			resp.Days = append(resp.Days, availabilityDay{Date: date})
		}
		day := &resp.Days[len(resp.Days)-1]
		day.Slots = append(day.Slots, slotItem{
			Start: s.Start.Format(localISO),
			End:   s.End.Format(localISO),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func todayIn(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
