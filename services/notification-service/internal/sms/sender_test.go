package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSender_Send(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "secret")
	if err := s.Send(context.Background(), "+13125550175", "Booking confirmed"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["to"] != "+13125550175" || gotBody["body"] != "Booking confirmed" {
		t.Fatalf("unexpected payload %v", gotBody)
	}
}

func TestWebhookSender_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "")
	if err := s.Send(context.Background(), "+13125550175", "hi"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookSender_NoURL(t *testing.T) {
	s := NewWebhookSender("", "")
	if err := s.Send(context.Background(), "+13125550175", "hi"); err == nil {
		t.Fatal("expected error when url is not configured")
	}
}

func TestProviderIDs(t *testing.T) {
	if got := NewWebhookSender("http://relay", "").ProviderID(); got != "sms-webhook" {
		t.Fatalf("unexpected webhook provider id %q", got)
	}
	if got := NewNoopSender().ProviderID(); got != "sms-noop" {
		t.Fatalf("unexpected noop provider id %q", got)
	}
	if err := NewNoopSender().Send(context.Background(), "+13125550175", "hi"); err != nil {
		t.Fatalf("noop send should never fail: %v", err)
	}
}
