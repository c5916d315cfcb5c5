package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/ics"
	"github.com/rentaear/bookings/services/booking-service/internal/model"
	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
	"github.com/rentaear/bookings/services/booking-service/internal/validate"
)

type BookingHandler struct {
	store  Store
	logger *slog.Logger
	cfg    Config
	now    func() time.Time
}

func NewBookingHandler(store Store, logger *slog.Logger, cfg Config) *BookingHandler {
	return &BookingHandler{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

type createBookingRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	SlotStart string `json:"slot_start" validate:"required"`
	SlotEnd   string `json:"slot_end" validate:"required"`
	Timezone  string `json:"tz"`
}

type createBookingResponse struct {
	BookingID   string `json:"booking_id"`
	ManageToken string `json:"manage_token"`
	ManageURL   string `json:"manage_url"`
}

type rescheduleRequest struct {
	Token     string `json:"token" validate:"required"`
	SlotStart string `json:"slot_start" validate:"required"`
	SlotEnd   string `json:"slot_end" validate:"required"`
	Timezone  string `json:"tz"`
}

type cancelRequest struct {
	Token string `json:"token" validate:"required"`
}

type cancelResponse struct {
	BookingID       string `json:"booking_id"`
	Status          string `json:"status"`
	AlreadyCanceled bool   `json:"already_canceled"`
	Message         string `json:"message"`
}

type bookingItem struct {
	BookingID  string `json:"booking_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Start      string `json:"start"`
	End        string `json:"end"`
	StartLocal string `json:"start_local,omitempty"`
	EndLocal   string `json:"end_local,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// Create serves POST /api/v1/bookings. Validation failures and conflicts
// are distinct statuses (400 vs 409) so the caller knows whether to fix
// input or re-query availability.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	phone, err := validate.NormalizePhone(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		http.Error(w, "phone number is not valid", http.StatusBadRequest)
		return
	}

	loc := schedule.ResolveLocation(strings.TrimSpace(req.Timezone), h.cfg.DefaultZone)
	startUTC, endUTC, err := parseSlot(req.SlotStart, req.SlotEnd, loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := &model.Booking{
		ID:          model.NewID(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       phone,
		StartUTC:    startUTC,
		EndUTC:      endUTC,
		Status:      model.StatusConfirmed,
		ManageToken: model.NewManageToken(),
	}

	evt, err := notificationEvent(NotifyConfirmed, *b, loc.String(), h.cfg.PublicBaseURL)
	if err != nil {
		http.Error(w, "failed to build notification", http.StatusInternalServerError)
		return
	}

	if err := h.store.CreateBooking(r.Context(), b, evt); err != nil {
		if errors.Is(err, model.ErrConflict) {
			http.Error(w, "that time overlaps an existing booking", http.StatusConflict)
			return
		}
		h.logger.Error("create booking failed", "err", err)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createBookingResponse{
		BookingID:   b.ID,
		ManageToken: b.ManageToken,
		ManageURL:   manageURL(h.cfg.PublicBaseURL, b.ManageToken),
	})
}

// Manage serves GET /api/v1/bookings/manage?token=. Possession of the token
// is the only credential.
func (h *BookingHandler) Manage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	b, err := h.store.BookingByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "manage link not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load booking failed", "err", err)
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	loc := schedule.ResolveLocation(strings.TrimSpace(r.URL.Query().Get("tz")), h.cfg.DefaultZone)
	writeJSON(w, http.StatusOK, bookingToItem(b, loc))
}

// Reschedule serves POST /api/v1/bookings/reschedule. The conflict check
// excludes the booking itself, so moving to the currently held interval
// succeeds.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loc := schedule.ResolveLocation(strings.TrimSpace(req.Timezone), h.cfg.DefaultZone)
	startUTC, endUTC, err := parseSlot(req.SlotStart, req.SlotEnd, loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	current, err := h.store.BookingByToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "manage link not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load booking failed", "err", err)
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	moved := current
	moved.StartUTC = startUTC
	moved.EndUTC = endUTC
	evt, err := notificationEvent(NotifyRescheduled, moved, loc.String(), h.cfg.PublicBaseURL)
	if err != nil {
		http.Error(w, "failed to build notification", http.StatusInternalServerError)
		return
	}

	b, err := h.store.RescheduleBooking(r.Context(), req.Token, startUTC, endUTC, evt)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			http.Error(w, "manage link not found", http.StatusNotFound)
		case errors.Is(err, model.ErrInvalidState):
			http.Error(w, "booking is canceled and cannot be rescheduled", http.StatusUnprocessableEntity)
		case errors.Is(err, model.ErrConflict):
			http.Error(w, "that time overlaps another booking", http.StatusConflict)
		default:
			h.logger.Error("reschedule failed", "err", err)
			http.Error(w, "failed to reschedule booking", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, bookingToItem(b, loc))
}

// Cancel serves POST /api/v1/bookings/cancel. Canceling twice is not an
// error; the response says the booking was already canceled.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	current, err := h.store.BookingByToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "manage link not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load booking failed", "err", err)
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	evt, err := notificationEvent(NotifyCanceled, current, h.cfg.DefaultZone.String(), h.cfg.PublicBaseURL)
	if err != nil {
		http.Error(w, "failed to build notification", http.StatusInternalServerError)
		return
	}

	b, already, err := h.store.CancelBooking(r.Context(), req.Token, evt)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "manage link not found", http.StatusNotFound)
			return
		}
		h.logger.Error("cancel failed", "err", err)
		http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}

	msg := "booking canceled"
	if already {
		msg = "booking was already canceled"
	}
	writeJSON(w, http.StatusOK, cancelResponse{
		BookingID:       b.ID,
		Status:          b.Status,
		AlreadyCanceled: already,
		Message:         msg,
	})
}

// AdminList serves GET /api/v1/admin/bookings: every booking, newest
// interval first. Manage tokens are not included.
func (h *BookingHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	items, err := h.store.ListBookings(r.Context(), limit)
	if err != nil {
		h.logger.Error("list bookings failed", "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	out := make([]bookingItem, 0, len(items))
	for _, b := range items {
		out = append(out, bookingToItem(b, h.cfg.DefaultZone))
	}
	writeJSON(w, http.StatusOK, out)
}

// Calendar serves GET /api/v1/bookings/calendar?id= as text/calendar.
func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	b, err := h.store.BookingByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load booking failed", "err", err)
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="booking.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.Render(b)))
}

// parseSlot interprets the local ISO timestamps in loc and converts to UTC.
func parseSlot(startRaw, endRaw string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseLocal(startRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid slot_start")
	}
	end, err := parseLocal(endRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid slot_end")
	}
	startUTC := start.UTC()
	endUTC := end.UTC()
	if !endUTC.After(startUTC) {
		return time.Time{}, time.Time{}, errors.New("slot end must be after slot start")
	}
	return startUTC, endUTC, nil
}

func parseLocal(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(localISO, raw, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", raw, loc)
}

func bookingToItem(b model.Booking, loc *time.Location) bookingItem {
	return bookingItem{
		BookingID:  b.ID,
		Name:       b.Name,
		Email:      b.Email,
		Phone:      b.Phone,
		Start:      b.StartUTC.UTC().Format(time.RFC3339),
		End:        b.EndUTC.UTC().Format(time.RFC3339),
		StartLocal: b.StartUTC.In(loc).Format(localISO),
		EndLocal:   b.EndUTC.In(loc).Format(localISO),
		Timezone:   loc.String(),
		Status:     b.Status,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
}
