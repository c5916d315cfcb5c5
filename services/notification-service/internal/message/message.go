package message

import (
	"fmt"
	"strings"
	"time"
)

// Payload mirrors the event body booking-service publishes on
// booking.notification.requested.v1. Each service owns its copy of the
// contract struct rather than importing the producer's internals.
type Payload struct {
	BookingID string `json:"booking_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	StartUTC  string `json:"start_utc"`
	EndUTC    string `json:"end_utc"`
	Timezone  string `json:"timezone"`
	ManageURL string `json:"manage_url"`
}

const (
	KindConfirmed   = "confirmed"
	KindRescheduled = "rescheduled"
	KindCanceled    = "canceled"
)

type Rendered struct {
	Subject   string
	EmailBody string
	SMSBody   string
}

// Render builds the customer-facing email and SMS text for one event.
// Times are shown in the booking's zone; an unknown zone name falls back
// to UTC rather than failing the delivery.
func Render(p Payload) (Rendered, error) {
	start, err := time.Parse(time.RFC3339, p.StartUTC)
	if err != nil {
		return Rendered{}, fmt.Errorf("invalid start_utc %q: %w", p.StartUTC, err)
	}
	end, err := time.Parse(time.RFC3339, p.EndUTC)
	if err != nil {
		return Rendered{}, fmt.Errorf("invalid end_utc %q: %w", p.EndUTC, err)
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil || p.Timezone == "" {
		loc = time.UTC
	}
	when := fmt.Sprintf("%s until %s",
		start.In(loc).Format("Mon, Jan 2 2006 at 3:04 PM MST"),
		end.In(loc).Format("3:04 PM"),
	)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "there"
	}

	var r Rendered
	switch p.Kind {
	case KindConfirmed:
		r.Subject = "Your booking is confirmed"
		r.EmailBody = fmt.Sprintf(
			"Hi %s,\n\nYour booking is confirmed for %s.\n\nManage or cancel here: %s\n",
			name, when, p.ManageURL,
		)
		r.SMSBody = fmt.Sprintf("Booking confirmed: %s. Manage: %s", when, p.ManageURL)
	case KindRescheduled:
		r.Subject = "Your booking was rescheduled"
		r.EmailBody = fmt.Sprintf(
			"Hi %s,\n\nYour booking was moved to %s.\n\nManage or cancel here: %s\n",
			name, when, p.ManageURL,
		)
		r.SMSBody = fmt.Sprintf("Booking moved to %s. Manage: %s", when, p.ManageURL)
	case KindCanceled:
		r.Subject = "Your booking was canceled"
		r.EmailBody = fmt.Sprintf(
			"Hi %s,\n\nYour booking for %s has been canceled.\n",
			name, when,
		)
		r.SMSBody = fmt.Sprintf("Booking for %s canceled.", when)
	default:
		return Rendered{}, fmt.Errorf("unknown notification kind %q", p.Kind)
	}
	return r, nil
}
