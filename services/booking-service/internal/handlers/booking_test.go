package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rentaear/bookings/services/booking-service/internal/availability"
	"github.com/rentaear/bookings/services/booking-service/internal/model"
	"github.com/rentaear/bookings/services/booking-service/internal/outbox"
	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
)

// fakeStore enforces the same conflict semantics as the pgx repository:
// a write commits only if no other confirmed booking overlaps it.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	events   []outbox.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[string]*model.Booking{}}
}

func (s *fakeStore) conflicts(start, end time.Time, excludeID string) bool {
	for _, b := range s.bookings {
		if b.ID == excludeID || !b.Confirmed() {
			continue
		}
		if availability.Overlaps(start, end, b.StartUTC, b.EndUTC) {
			return true
		}
	}
	return false
}

func (s *fakeStore) CreateBooking(_ context.Context, b *model.Booking, evt outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts(b.StartUTC, b.EndUTC, "") {
		return model.ErrConflict
	}
	b.CreatedAt = time.Now().UTC()
	cp := *b
	s.bookings[b.ID] = &cp
	s.events = append(s.events, evt)
	return nil
}

func (s *fakeStore) byToken(token string) *model.Booking {
	for _, b := range s.bookings {
		if b.ManageToken == token {
			return b
		}
	}
	return nil
}

func (s *fakeStore) RescheduleBooking(_ context.Context, token string, startUTC, endUTC time.Time, evt outbox.Event) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.byToken(token)
	if b == nil {
		return model.Booking{}, model.ErrNotFound
	}
	if !b.Confirmed() {
		return model.Booking{}, model.ErrInvalidState
	}
	if s.conflicts(startUTC, endUTC, b.ID) {
		return model.Booking{}, model.ErrConflict
	}
	b.StartUTC, b.EndUTC = startUTC, endUTC
	s.events = append(s.events, evt)
	return *b, nil
}

func (s *fakeStore) CancelBooking(_ context.Context, token string, evt outbox.Event) (model.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.byToken(token)
	if b == nil {
		return model.Booking{}, false, model.ErrNotFound
	}
	if !b.Confirmed() {
		return *b, true, nil
	}
	b.Status = model.StatusCanceled
	s.events = append(s.events, evt)
	return *b, false, nil
}

func (s *fakeStore) BookingByToken(_ context.Context, token string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.byToken(token); b != nil {
		return *b, nil
	}
	return model.Booking{}, model.ErrNotFound
}

func (s *fakeStore) BookingByID(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[id]; ok {
		return *b, nil
	}
	return model.Booking{}, model.ErrNotFound
}

func (s *fakeStore) ConfirmedIntervals(_ context.Context, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []availability.Interval
	for _, b := range s.bookings {
		if !b.Confirmed() || b.ID == excludeID {
			continue
		}
		if b.StartUTC.Before(to) && b.EndUTC.After(from) {
			out = append(out, availability.Interval{Start: b.StartUTC, End: b.EndUTC})
		}
	}
	return out, nil
}

func (s *fakeStore) ListBookings(_ context.Context, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		out = append(out, *b)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func testHandler(t *testing.T, store Store) *BookingHandler {
	t.Helper()
	hours, err := schedule.ParseTemplate(map[string][]string{
		"mon": {"09:00-17:00"},
		"tue": {"09:00-17:00"},
	})
	if err != nil {
		t.Fatalf("ParseTemplate failed: %v", err)
	}
	h := NewBookingHandler(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), Config{
		Hours:         hours,
		Blocked:       schedule.DateSet{},
		DefaultZone:   time.UTC,
		SlotLen:       time.Hour,
		DaysAhead:     7,
		Lead:          2 * time.Hour,
		PhoneRegion:   "US",
		PublicBaseURL: "https://book.example.com",
	})
	// Fixed clock: Sunday 2026-09-06 noon UTC.
	h.now = func() time.Time { return time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC) }
	return h
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func validCreate() map[string]string {
	return map[string]string{
		"name":       "Ada Lovelace",
		"email":      "ada@example.com",
		"phone":      "(312) 555-0175",
		"slot_start": "2026-09-07T10:00:00",
		"slot_end":   "2026-09-07T11:00:00",
		"tz":         "UTC",
	}
}

func TestCreate_Success(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)

	rec := postJSON(t, h.Create, validCreate())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.BookingID == "" || resp.ManageToken == "" {
		t.Fatalf("expected id and token, got %+v", resp)
	}
	if !strings.HasPrefix(resp.ManageURL, "https://book.example.com/manage/") {
		t.Fatalf("unexpected manage url %q", resp.ManageURL)
	}

	b := store.bookings[resp.BookingID]
	if b == nil {
		t.Fatal("booking not persisted")
	}
	if b.Phone != "+13125550175" {
		t.Fatalf("phone not normalized: %q", b.Phone)
	}
	if !b.StartUTC.Equal(time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", b.StartUTC)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(store.events))
	}
	if store.events[0].EventType != TopicNotificationRequested {
		t.Fatalf("unexpected event type %q", store.events[0].EventType)
	}
}

func TestCreate_Validation(t *testing.T) {
	h := testHandler(t, newFakeStore())

	bad := validCreate()
	bad["email"] = "nope"
	rec := postJSON(t, h.Create, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}

	bad = validCreate()
	bad["phone"] = "12"
	rec = postJSON(t, h.Create, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad phone, got %d", rec.Code)
	}

	bad = validCreate()
	bad["slot_end"] = bad["slot_start"]
	rec = postJSON(t, h.Create, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty interval, got %d", rec.Code)
	}
}

func TestCreate_Conflict(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)

	if rec := postJSON(t, h.Create, validCreate()); rec.Code != http.StatusCreated {
		t.Fatalf("first create failed: %d", rec.Code)
	}

	second := validCreate()
	second["name"] = "Grace Hopper"
	second["slot_start"] = "2026-09-07T10:30:00"
	second["slot_end"] = "2026-09-07T11:30:00"
	rec := postJSON(t, h.Create, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for overlap, got %d", rec.Code)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := postJSON(t, h.Create, validCreate())
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	created, conflicted := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 || conflicted != n-1 {
		t.Fatalf("expected exactly one winner, got %d created / %d conflicted", created, conflicted)
	}
}

func createBooking(t *testing.T, h *BookingHandler) createBookingResponse {
	t.Helper()
	rec := postJSON(t, h.Create, validCreate())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d: %s", rec.Code, rec.Body.String())
	}
	var resp createBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return resp
}

func TestManage(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	req := httptest.NewRequest(http.MethodGet, "/?token="+created.ManageToken, nil)
	rec := httptest.NewRecorder()
	h.Manage(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var item bookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if item.BookingID != created.BookingID || item.Status != model.StatusConfirmed {
		t.Fatalf("unexpected item %+v", item)
	}

	req = httptest.NewRequest(http.MethodGet, "/?token=bogus", nil)
	rec = httptest.NewRecorder()
	h.Manage(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}
}

func TestReschedule(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	rec := postJSON(t, h.Reschedule, map[string]string{
		"token":      created.ManageToken,
		"slot_start": "2026-09-08T14:00:00",
		"slot_end":   "2026-09-08T15:00:00",
		"tz":         "UTC",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var item bookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if item.Start != "2026-09-08T14:00:00Z" {
		t.Fatalf("booking not moved: %+v", item)
	}
}

func TestReschedule_ToOwnInterval(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	// Moving onto the interval the booking already holds must not conflict
	// with itself.
	rec := postJSON(t, h.Reschedule, map[string]string{
		"token":      created.ManageToken,
		"slot_start": "2026-09-07T10:00:00",
		"slot_end":   "2026-09-07T11:00:00",
		"tz":         "UTC",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReschedule_Conflict(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	first := createBooking(t, h)

	second := validCreate()
	second["slot_start"] = "2026-09-08T14:00:00"
	second["slot_end"] = "2026-09-08T15:00:00"
	if rec := postJSON(t, h.Create, second); rec.Code != http.StatusCreated {
		t.Fatalf("second create failed: %d", rec.Code)
	}

	rec := postJSON(t, h.Reschedule, map[string]string{
		"token":      first.ManageToken,
		"slot_start": "2026-09-08T14:00:00",
		"slot_end":   "2026-09-08T15:00:00",
		"tz":         "UTC",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestReschedule_Canceled(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	if rec := postJSON(t, h.Cancel, map[string]string{"token": created.ManageToken}); rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d", rec.Code)
	}

	rec := postJSON(t, h.Reschedule, map[string]string{
		"token":      created.ManageToken,
		"slot_start": "2026-09-08T14:00:00",
		"slot_end":   "2026-09-08T15:00:00",
		"tz":         "UTC",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	rec := postJSON(t, h.Cancel, map[string]string{"token": created.ManageToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp cancelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.AlreadyCanceled || resp.Status != model.StatusCanceled {
		t.Fatalf("unexpected first cancel response %+v", resp)
	}
	eventsAfterFirst := len(store.events)

	rec = postJSON(t, h.Cancel, map[string]string{"token": created.ManageToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat cancel, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.AlreadyCanceled {
		t.Fatalf("expected already_canceled on repeat, got %+v", resp)
	}
	if len(store.events) != eventsAfterFirst {
		t.Fatal("repeat cancel must not enqueue another notification")
	}
}

func TestAdminList(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	createBooking(t, h)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.AdminList(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "manage_token") {
		t.Fatal("admin list must not expose manage tokens")
	}
	var items []bookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(items))
	}
}

func TestCalendar(t *testing.T) {
	store := newFakeStore()
	h := testHandler(t, store)
	created := createBooking(t, h)

	req := httptest.NewRequest(http.MethodGet, "/?id="+created.BookingID, nil)
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VEVENT") {
		t.Fatal("expected an event in the calendar body")
	}
}
