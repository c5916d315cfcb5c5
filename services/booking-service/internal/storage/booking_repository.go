package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rentaear/bookings/libs/db"
	"github.com/rentaear/bookings/services/booking-service/internal/availability"
	"github.com/rentaear/bookings/services/booking-service/internal/model"
	"github.com/rentaear/bookings/services/booking-service/internal/outbox"
)

// BookingRepository owns the booking transactions. Each write method runs
// the conflict check, the row change, and the outbox event in one
// transaction; the exclusion constraint on bookings (tstzrange overlap,
// confirmed rows only) closes the race between the check and the write, so
// two concurrent requests for intersecting intervals cannot both commit.
type BookingRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, events *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, events: events}
}

const bookingColumns = `id, name, email, phone, start_utc, end_utc, status, manage_token, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.StartUTC, &b.EndUTC, &b.Status, &b.ManageToken, &b.CreatedAt)
	return b, err
}

// CreateBooking inserts a confirmed booking unless its interval overlaps an
// existing confirmed one. Returns model.ErrConflict without inserting when
// it does.
func (r *BookingRepository) CreateBooking(ctx context.Context, b *model.Booking, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	conflict, err := r.hasConflict(ctx, tx, b.StartUTC, b.EndUTC, "")
	if err != nil {
		return err
	}
	if conflict {
		return model.ErrConflict
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, name, email, phone, start_utc, end_utc, status, manage_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, b.ID, b.Name, b.Email, b.Phone, b.StartUTC, b.EndUTC, model.StatusConfirmed, b.ManageToken).Scan(&createdAt)
	if err != nil {
		return mapConflict(err)
	}
	b.Status = model.StatusConfirmed
	b.CreatedAt = createdAt

	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RescheduleBooking moves a confirmed booking to a new interval. The
// conflict check excludes the booking's own row so moving to the same or an
// adjacent interval never self-conflicts.
func (r *BookingRepository) RescheduleBooking(ctx context.Context, token string, startUTC, endUTC time.Time, evt outbox.Event) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE manage_token = $1 FOR UPDATE
	`, token))
	if err != nil {
		return model.Booking{}, mapNotFound(err)
	}
	if !b.Confirmed() {
		return model.Booking{}, model.ErrInvalidState
	}

	conflict, err := r.hasConflict(ctx, tx, startUTC, endUTC, b.ID)
	if err != nil {
		return model.Booking{}, err
	}
	if conflict {
		return model.Booking{}, model.ErrConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bookings SET start_utc = $2, end_utc = $3 WHERE id = $1
	`, b.ID, startUTC, endUTC); err != nil {
		return model.Booking{}, mapConflict(err)
	}
	b.StartUTC = startUTC
	b.EndUTC = endUTC

	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// CancelBooking marks the booking canceled. Canceling an already-canceled
// booking reports alreadyCanceled=true and performs no write; callers give
// it a distinct user-facing message, not an error.
func (r *BookingRepository) CancelBooking(ctx context.Context, token string, evt outbox.Event) (model.Booking, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE manage_token = $1 FOR UPDATE
	`, token))
	if err != nil {
		return model.Booking{}, false, mapNotFound(err)
	}
	if b.Status == model.StatusCanceled {
		return b, true, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2 WHERE id = $1
	`, b.ID, model.StatusCanceled); err != nil {
		return model.Booking{}, false, err
	}
	b.Status = model.StatusCanceled

	if err := r.events.Insert(ctx, tx, evt); err != nil {
		return model.Booking{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, false, err
	}
	return b, false, nil
}

func (r *BookingRepository) BookingByToken(ctx context.Context, token string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE manage_token = $1
	`, token))
	if err != nil {
		return model.Booking{}, mapNotFound(err)
	}
	return b, nil
}

func (r *BookingRepository) BookingByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = $1
	`, id))
	if err != nil {
		return model.Booking{}, mapNotFound(err)
	}
	return b, nil
}

// ConfirmedIntervals loads the confirmed bookings intersecting [from, to)
// with one bounded range query. excludeID removes the booking being
// rescheduled from the comparison set; pass "" otherwise.
func (r *BookingRepository) ConfirmedIntervals(ctx context.Context, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_utc, end_utc
		FROM bookings
		WHERE status = $1
			AND start_utc < $3
			AND end_utc > $2
			AND ($4 = '' OR id <> $4)
		ORDER BY start_utc ASC
	`, model.StatusConfirmed, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		busy = append(busy, iv)
	}
	return busy, rows.Err()
}

func (r *BookingRepository) ListBookings(ctx context.Context, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings ORDER BY start_utc DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &b.StartUTC, &b.EndUTC, &b.Status, &b.ManageToken, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepository) hasConflict(ctx context.Context, tx pgx.Tx, startUTC, endUTC time.Time, excludeID string) (bool, error) {
	var conflict bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE status = $1
				AND start_utc < $3
				AND end_utc > $2
				AND ($4 = '' OR id <> $4)
		)
	`, model.StatusConfirmed, startUTC, endUTC, excludeID).Scan(&conflict)
	return conflict, err
}

// mapConflict translates an exclusion-constraint violation (SQLSTATE 23P01)
// into model.ErrConflict. The constraint is the backstop for the in-tx
// check when two transactions race.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return model.ErrConflict
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
