package booking

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
)

func TestHasExactBookingConflict(t *testing.T) {
	day := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	nine := availability.MustParseTimeOfDay("09:00")
	snapshot := []model.Appointment{
		{ID: "a1", ProviderID: "dr-1", Date: day, StartMinute: 540, EndMinute: 570, Status: model.StatusConfirmed},
		{ID: "a2", ProviderID: "dr-1", Date: day, StartMinute: 600, EndMinute: 630, Status: model.StatusCancelled},
		{ID: "a3", ProviderID: "dr-1", Date: day, StartMinute: 660, EndMinute: 690, Status: model.StatusRejected},
		{ID: "a4", ProviderID: "dr-2", Date: day, StartMinute: 720, EndMinute: 750, Status: model.StatusPending},
		{ID: "a5", ProviderID: "dr-1", Date: day, StartMinute: 780, EndMinute: 810, Status: model.StatusCompleted},
	}

	cases := []struct {
		name     string
		provider string
		date     time.Time
		start    availability.TimeOfDay
		want     bool
	}{
		{"active exact match", "dr-1", day, nine, true},
		{"same date different clock", "dr-1", day, nine + 15, false},
		{"cancelled does not block", "dr-1", day, 600, false},
		{"rejected does not block", "dr-1", day, 660, false},
		{"other provider", "dr-1", day, 720, false},
		{"completed still blocks", "dr-1", day, 780, true},
		{"next day", "dr-1", day.AddDate(0, 0, 1), nine, false},
		{"date with clock and zone", "dr-1", time.Date(2026, 4, 14, 18, 0, 0, 0, time.FixedZone("X", 3600)), nine, true},
	}
	for _, tc := range cases {
		if got := HasExactBookingConflict(tc.provider, tc.date, tc.start, snapshot); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if HasExactBookingConflict("dr-1", day, nine, nil) {
		t.Fatal("empty snapshot must not conflict")
	}
}
