package validate

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestStruct(t *testing.T) {
	if err := Struct(sample{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	err := Struct(sample{Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "name is required") {
		t.Fatalf("expected missing-name message, got %q", msg)
	}
	if !strings.Contains(msg, "email looks invalid") {
		t.Fatalf("expected bad-email message, got %q", msg)
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("(312) 555-0175", "US")
	if err != nil {
		t.Fatalf("NormalizePhone failed: %v", err)
	}
	if got != "+13125550175" {
		t.Fatalf("expected +13125550175, got %q", got)
	}

	// Explicit country code wins over the region default.
	got, err = NormalizePhone("+44 20 7946 0958", "US")
	if err != nil {
		t.Fatalf("NormalizePhone failed: %v", err)
	}
	if got != "+442079460958" {
		t.Fatalf("expected +442079460958, got %q", got)
	}

	if _, err := NormalizePhone("12", "US"); err == nil {
		t.Fatal("expected error for a number that is too short")
	}
	if _, err := NormalizePhone("not a phone", "US"); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
}
