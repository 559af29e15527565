package config

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("CLINIC_TEST_STRING", "")
	if got := String("CLINIC_TEST_STRING", "dflt"); got != "dflt" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("CLINIC_TEST_STRING", "set")
	if got := String("CLINIC_TEST_STRING", "dflt"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
	if _, err := RequiredString("CLINIC_TEST_MISSING"); err == nil {
		t.Fatal("expected missing required value to fail")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("CLINIC_TEST_PORT", "70000")
	if _, err := Port("CLINIC_TEST_PORT", "8080"); err == nil {
		t.Fatal("expected out of range port to fail")
	}
	t.Setenv("CLINIC_TEST_PORT", "")
	if p, err := Port("CLINIC_TEST_PORT", "8080"); err != nil || p != "8080" {
		t.Fatalf("expected fallback port, got %q %v", p, err)
	}
}

func TestIntBoolDuration(t *testing.T) {
	t.Setenv("CLINIC_TEST_INT", "45")
	if n, err := Int("CLINIC_TEST_INT", 30); err != nil || n != 45 {
		t.Fatalf("unexpected int %d %v", n, err)
	}
	t.Setenv("CLINIC_TEST_INT", "abc")
	if _, err := Int("CLINIC_TEST_INT", 30); err == nil {
		t.Fatal("expected invalid int to fail")
	}

	t.Setenv("CLINIC_TEST_BOOL", "false")
	if b, err := Bool("CLINIC_TEST_BOOL", true); err != nil || b {
		t.Fatalf("unexpected bool %v %v", b, err)
	}
	t.Setenv("CLINIC_TEST_BOOL", "maybe")
	if _, err := Bool("CLINIC_TEST_BOOL", true); err == nil {
		t.Fatal("expected invalid bool to fail")
	}

	t.Setenv("CLINIC_TEST_DURATION", "")
	if d, err := Duration("CLINIC_TEST_DURATION", 2*time.Second); err != nil || d != 2*time.Second {
		t.Fatalf("unexpected duration %v %v", d, err)
	}
	t.Setenv("CLINIC_TEST_DURATION", "-1s")
	if _, err := Duration("CLINIC_TEST_DURATION", time.Second); err == nil {
		t.Fatal("expected negative duration to fail")
	}
}

func TestLocation(t *testing.T) {
	t.Setenv("CLINIC_TEST_TZ", "")
	loc, err := Location("CLINIC_TEST_TZ", "UTC")
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v %v", loc, err)
	}
	t.Setenv("CLINIC_TEST_TZ", "Not/AZone")
	if _, err := Location("CLINIC_TEST_TZ", "UTC"); err == nil {
		t.Fatal("expected unknown zone to fail")
	}
}
