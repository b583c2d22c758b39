package migrate

import (
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	applied, err := Run("", "up")
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if applied {
		t.Fatal("applied must be false on error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("error should name the missing variable, got %q", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	applied, err := Run("postgres://localhost/authgate", "sideways")
	if err == nil {
		t.Fatal("expected error for invalid direction")
	}
	if applied {
		t.Fatal("applied must be false on error")
	}
	if !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("error should echo the bad direction, got %q", err)
	}
}
