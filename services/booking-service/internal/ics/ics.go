// Package ics renders a booking as an iCalendar event. This is a read-only
// projection of the persisted record; nothing here touches booking state.
package ics

import (
	"fmt"

	ical "github.com/arran4/golang-ical"

	"github.com/rentaear/bookings/services/booking-service/internal/model"
)

// Render produces the text/calendar document for one booking. The UID is
// derived from the booking id alone, so re-exports of the same booking
// update the same event in a subscriber's calendar.
func Render(b model.Booking) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//rentaear//bookings//EN")

	ev := cal.AddEvent(b.ID + "@bookings.rentaear")
	ev.SetCreatedTime(b.CreatedAt)
	ev.SetDtStampTime(b.CreatedAt)
	ev.SetStartAt(b.StartUTC)
	ev.SetEndAt(b.EndUTC)
	ev.SetSummary(fmt.Sprintf("Booked session for %s", b.Name))
	ev.SetDescription(fmt.Sprintf("Session booked by %s (%s). Status: %s.", b.Name, b.Email, b.Status))
	if b.Status == model.StatusCanceled {
		ev.SetStatus(ical.ObjectStatusCancelled)
	} else {
		ev.SetStatus(ical.ObjectStatusConfirmed)
	}

	return cal.Serialize()
}
