package schedule

import (
	"testing"
	"time"
)

func TestResolveLocation(t *testing.T) {
	def, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}

	if got := ResolveLocation("", def); got != def {
		t.Fatalf("empty name should fall back to default, got %v", got)
	}
	if got := ResolveLocation("Not/AZone", def); got != def {
		t.Fatalf("unknown name should fall back to default, got %v", got)
	}
	if got := ResolveLocation("garbage zone!!", def); got != def {
		t.Fatalf("malformed name should fall back to default, got %v", got)
	}
	if got := ResolveLocation("Europe/Berlin", def); got.String() != "Europe/Berlin" {
		t.Fatalf("valid name should resolve, got %v", got)
	}
}
