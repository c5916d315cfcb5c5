package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/model"
	"github.com/rentaear/bookings/services/booking-service/internal/outbox"
)

// TopicNotificationRequested carries one event per booking state change;
// notification-service consumes it and delivers email/SMS best-effort.
const TopicNotificationRequested = "booking.notification.requested.v1"

const (
	NotifyConfirmed   = "confirmed"
	NotifyRescheduled = "rescheduled"
	NotifyCanceled    = "canceled"
)

type notificationPayload struct {
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

func notificationEvent(kind string, b model.Booking, tzName, baseURL string) (outbox.Event, error) {
	payload, err := json.Marshal(notificationPayload{
		BookingID: b.ID,
		Kind:      kind,
		Name:      b.Name,
		Email:     b.Email,
		Phone:     b.Phone,
		StartUTC:  b.StartUTC.UTC().Format(time.RFC3339),
		EndUTC:    b.EndUTC.UTC().Format(time.RFC3339),
		Timezone:  tzName,
		ManageURL: manageURL(baseURL, b.ManageToken),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     TopicNotificationRequested,
		Payload:       payload,
	}, nil
}

func manageURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/manage/" + token
}
