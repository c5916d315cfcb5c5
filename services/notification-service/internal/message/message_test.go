package message

import (
	"strings"
	"testing"
)

func testPayload(kind string) Payload {
	return Payload{
		BookingID: "b-123",
		Kind:      kind,
		Name:      "Ada",
		Email:     "ada@example.com",
		Phone:     "+13125550175",
		StartUTC:  "2026-09-07T15:00:00Z",
		EndUTC:    "2026-09-07T16:00:00Z",
		Timezone:  "America/Chicago",
		ManageURL: "https://book.example.com/manage/tok",
	}
}

func TestRender_Confirmed(t *testing.T) {
	r, err := Render(testPayload(KindConfirmed))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.Subject != "Your booking is confirmed" {
		t.Fatalf("unexpected subject %q", r.Subject)
	}
	// 15:00 UTC is 10:00 AM in Chicago during daylight time.
	if !strings.Contains(r.EmailBody, "10:00 AM CDT") {
		t.Fatalf("email body should show local time:\n%s", r.EmailBody)
	}
	if !strings.Contains(r.EmailBody, "Hi Ada,") {
		t.Fatalf("email body should greet by name:\n%s", r.EmailBody)
	}
	if !strings.Contains(r.SMSBody, "https://book.example.com/manage/tok") {
		t.Fatalf("sms body should carry the manage link:\n%s", r.SMSBody)
	}
}

func TestRender_Canceled(t *testing.T) {
	r, err := Render(testPayload(KindCanceled))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.Subject != "Your booking was canceled" {
		t.Fatalf("unexpected subject %q", r.Subject)
	}
	if strings.Contains(r.SMSBody, "manage") {
		t.Fatalf("cancellation sms should not link to manage:\n%s", r.SMSBody)
	}
}

func TestRender_UnknownZoneFallsBackToUTC(t *testing.T) {
	p := testPayload(KindRescheduled)
	p.Timezone = "Not/AZone"
	r, err := Render(p)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(r.EmailBody, "3:00 PM UTC") {
		t.Fatalf("expected UTC fallback in body:\n%s", r.EmailBody)
	}
}

func TestRender_BadInput(t *testing.T) {
	p := testPayload(KindConfirmed)
	p.StartUTC = "not a time"
	if _, err := Render(p); err == nil {
		t.Fatal("expected error for bad start_utc")
	}

	p = testPayload("promoted")
	if _, err := Render(p); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRender_EmptyName(t *testing.T) {
	p := testPayload(KindConfirmed)
	p.Name = "  "
	r, err := Render(p)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(r.EmailBody, "Hi there,") {
		t.Fatalf("expected neutral greeting:\n%s", r.EmailBody)
	}
}
