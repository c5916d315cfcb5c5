package model

import "time"

const (
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
)

// Booking is a persisted reservation of an absolute time interval.
// StartUTC/EndUTC are instants; local wall-clock times exist only at the
// API boundary. ManageToken is the sole credential for viewing,
// rescheduling, or canceling the booking.
type Booking struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	StartUTC    time.Time
	EndUTC      time.Time
	Status      string
	ManageToken string
	CreatedAt   time.Time
}

func (b Booking) Confirmed() bool {
	return b.Status == StatusConfirmed
}
