package handlers

import (
	"context"
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/availability"
	"github.com/rentaear/bookings/services/booking-service/internal/model"
	"github.com/rentaear/bookings/services/booking-service/internal/outbox"
	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
	"github.com/rentaear/bookings/services/booking-service/internal/storage"
)

// Store is the persistence contract the handlers run against. The pgx
// repository implements it in production; handler tests substitute an
// in-memory store with the same conflict semantics.
type Store interface {
	CreateBooking(ctx context.Context, b *model.Booking, evt outbox.Event) error
	RescheduleBooking(ctx context.Context, token string, startUTC, endUTC time.Time, evt outbox.Event) (model.Booking, error)
	CancelBooking(ctx context.Context, token string, evt outbox.Event) (model.Booking, bool, error)
	BookingByToken(ctx context.Context, token string) (model.Booking, error)
	BookingByID(ctx context.Context, id string) (model.Booking, error)
	ConfirmedIntervals(ctx context.Context, from, to time.Time, excludeID string) ([]availability.Interval, error)
	ListBookings(ctx context.Context, limit int) ([]model.Booking, error)
}

var _ Store = (*storage.BookingRepository)(nil)

// Config is the immutable scheduling configuration, built once at startup
// and passed explicitly so the availability engine stays a pure function of
// (config, bookings snapshot, query parameters).
type Config struct {
	Hours         schedule.Template
	Blocked       schedule.DateSet
	DefaultZone   *time.Location
	SlotLen       time.Duration
	DaysAhead     int
	Lead          time.Duration
	PhoneRegion   string
	PublicBaseURL string
}
