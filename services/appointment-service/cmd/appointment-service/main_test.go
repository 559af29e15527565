package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestSlotsCommand(t *testing.T) {
	out, err := run(t, "slots", "--window-start", "09:00", "--window-end", "11:00", "--duration", "30", "--booked", "09:30-10:00")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	want := `[{"start":"09:00","end":"09:30"},{"start":"10:00","end":"10:30"},{"start":"10:30","end":"11:00"}]`
	if out != want {
		t.Fatalf("unexpected output\nwant %s\ngot  %s", want, out)
	}
}

func TestSlotsCommand_CompositeDuration(t *testing.T) {
	out, err := run(t, "slots", "--window-start", "09:00", "--window-end", "11:00", "--duration", "20", "--duration", "25")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	want := `[{"start":"09:00","end":"09:45"},{"start":"09:45","end":"10:30"}]`
	if out != want {
		t.Fatalf("unexpected output\nwant %s\ngot  %s", want, out)
	}
}

func TestSlotsCommand_FullyBookedPrintsEmptyList(t *testing.T) {
	out, err := run(t, "slots", "--window-start", "09:00", "--window-end", "10:00", "--booked", "09:00-10:00")
	if err != nil {
		t.Fatalf("slots failed: %v", err)
	}
	if out != "[]" {
		t.Fatalf("expected [], got %s", out)
	}
}

func TestSlotsCommand_InvalidInput(t *testing.T) {
	if _, err := run(t, "slots", "--window-start", "25:00"); !errors.Is(err, availability.ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat, got %v", err)
	}
	if _, err := run(t, "slots", "--window-start", "12:00", "--window-end", "09:00"); !errors.Is(err, availability.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := run(t, "slots", "--duration", "0"); !errors.Is(err, availability.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := run(t, "slots", "--booked", "0930"); !errors.Is(err, availability.ErrInvalidTimeFormat) {
		t.Fatalf("expected ErrInvalidTimeFormat for malformed booking, got %v", err)
	}
}

func TestNextCommand_SkipsBookedDayAndWeekend(t *testing.T) {
	// 2026-04-17 is a Friday.
	out, err := run(t, "next",
		"--from", "2026-04-17",
		"--window-start", "09:00", "--window-end", "10:00",
		"--booked", "2026-04-17=09:00-10:00",
	)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	want := `{"found":true,"date":"2026-04-20","start":"09:00","end":"09:30"}`
	if out != want {
		t.Fatalf("unexpected output\nwant %s\ngot  %s", want, out)
	}
}

func TestNextCommand_NoneFound(t *testing.T) {
	out, err := run(t, "next",
		"--from", "2026-04-17",
		"--lookahead", "3",
		"--window-start", "09:00", "--window-end", "10:00",
		"--booked", "2026-04-17=09:00-10:00",
	)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if out != `{"found":false}` {
		t.Fatalf("expected not found, got %s", out)
	}
}

func TestNextCommand_InvalidInput(t *testing.T) {
	if _, err := run(t, "next", "--from", "17-04-2026"); err == nil {
		t.Fatal("expected error for malformed --from")
	}
	if _, err := run(t, "next", "--from", "2026-04-17", "--days-off", "someday"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
	if _, err := run(t, "next", "--from", "2026-04-17", "--booked", "09:00-10:00"); err == nil {
		t.Fatal("expected error for booking without a date")
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays([]string{"Saturday", " sun ", ""})
	if err != nil {
		t.Fatalf("parseWeekdays failed: %v", err)
	}
	if len(days) != 2 || !days[6] || !days[0] {
		t.Fatalf("unexpected weekdays %v", days)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected list %v", got)
	}
}
