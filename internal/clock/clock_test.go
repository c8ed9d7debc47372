package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	want := time.Date(2026, 1, 15, 14, 5, 0, 0, time.UTC)
	c := Fixed(want)
	if !c.Now().Equal(want) {
		t.Fatalf("Fixed clock returned %v, want %v", c.Now(), want)
	}
}

func TestFromEnvPinned(t *testing.T) {
	t.Setenv("TEST_CLOCK_NOW", "2026-01-15T14:05:00Z")
	c := FromEnv("TEST_CLOCK_NOW")
	want := time.Date(2026, 1, 15, 14, 5, 0, 0, time.UTC)
	if !c.Now().Equal(want) {
		t.Fatalf("FromEnv returned %v, want %v", c.Now(), want)
	}
}

func TestFromEnvFirstSetWins(t *testing.T) {
	t.Setenv("TEST_CLOCK_A", "")
	t.Setenv("TEST_CLOCK_B", "2026-03-01T09:00:00Z")
	c := FromEnv("TEST_CLOCK_A", "TEST_CLOCK_B")
	if c.Now().Hour() != 9 {
		t.Fatalf("expected pinned 09:00, got %v", c.Now())
	}
}

func TestFromEnvInvalidFallsThrough(t *testing.T) {
	t.Setenv("TEST_CLOCK_BAD", "not-a-time")
	c := FromEnv("TEST_CLOCK_BAD")
	// Falls back to the system clock; just check it's sane.
	if time.Since(c.Now()) > time.Minute {
		t.Fatalf("expected system clock fallback, got %v", c.Now())
	}
}
