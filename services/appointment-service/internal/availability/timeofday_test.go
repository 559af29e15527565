package availability

import (
	"errors"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"9:05", 545},
		{"23:59", 1439},
		{" 12:30 ", 750},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeOfDay_Rejects(t *testing.T) {
	for _, in := range []string{"", "0900", "ab:cd", "09:xx", "24:00", "12:60", "-1:00", "09:00:00"} {
		if _, err := ParseTimeOfDay(in); !errors.Is(err, ErrInvalidTimeFormat) {
			t.Fatalf("ParseTimeOfDay(%q): expected ErrInvalidTimeFormat, got %v", in, err)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	cases := map[TimeOfDay]string{
		0:    "00:00",
		5:    "00:05",
		545:  "09:05",
		1439: "23:59",
		1440: "TimeOfDay(1440)",
		-1:   "TimeOfDay(-1)",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Fatalf("TimeOfDay(%d).String() = %q, want %q", int(in), got, want)
		}
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	for m := TimeOfDay(0); m < MinutesPerDay; m++ {
		got, err := ParseTimeOfDay(m.String())
		if err != nil || got != m {
			t.Fatalf("round trip of %d failed: got %d err %v", int(m), got, err)
		}
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("09:00", "24:00")
	if err != nil {
		t.Fatalf("ParseWindow failed: %v", err)
	}
	if w.Start != 540 || w.End != MinutesPerDay {
		t.Fatalf("unexpected window %+v", w)
	}

	if _, err := ParseWindow("10:00", "10:00"); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for empty window, got %v", err)
	}
	if _, err := ParseWindow("11:00", "10:00"); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for inverted window, got %v", err)
	}
	if _, err := ParseWindow("9am", "10:00"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat, got %v", err)
	}
}
