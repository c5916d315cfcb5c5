package email

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@bookings.local", "ada@example.com", "Your booking is confirmed", "Hi Ada,\n\nSee you soon.\n")

	if !strings.HasPrefix(msg, "From: no-reply@bookings.local\r\n") {
		t.Fatalf("missing From header:\n%s", msg)
	}
	if !strings.Contains(msg, "To: ada@example.com\r\n") {
		t.Fatalf("missing To header:\n%s", msg)
	}
	if !strings.Contains(msg, "Subject: Your booking is confirmed\r\n") {
		t.Fatalf("missing Subject header:\n%s", msg)
	}
	if !strings.Contains(msg, "\r\n\r\nHi Ada,") {
		t.Fatalf("body not separated from headers:\n%s", msg)
	}
}
