package storage

import (
	"context"
	"encoding/json"

	"github.com/rentaear/bookings/libs/db"
)

// Notification is one delivery attempt on one channel. The raw event
// payload rides along for audit.
type Notification struct {
	BookingID string
	Kind      string
	Channel   string
	Recipient string
	Status    string
	Error     string
	Payload   json.RawMessage
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	var errText *string
	if n.Error != "" {
		errText = &n.Error
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, kind, channel, recipient, status, error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.BookingID, n.Kind, n.Channel, n.Recipient, n.Status, errText, []byte(n.Payload))
	return err
}
