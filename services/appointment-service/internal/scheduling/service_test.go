package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
)

var errMissing = errors.New("missing")

type fakeProviders struct {
	provider model.Provider
	hours    map[time.Weekday]model.WorkingHours
	services map[string]int
	whErr    error
}

func (f *fakeProviders) Provider(_ context.Context, clinicID, providerID string) (model.Provider, error) {
	if f.provider.ID != providerID || f.provider.ClinicID != clinicID {
		return model.Provider{}, errMissing
	}
	return f.provider, nil
}

func (f *fakeProviders) WorkingHours(_ context.Context, _, providerID string, weekday time.Weekday) (model.WorkingHours, error) {
	if f.whErr != nil {
		return model.WorkingHours{}, f.whErr
	}
	if wh, ok := f.hours[weekday]; ok {
		return wh, nil
	}
	return model.DefaultWorkingHours(providerID, weekday), nil
}

func (f *fakeProviders) ServiceDurations(_ context.Context, _ string, serviceIDs []string) ([]int, error) {
	out := make([]int, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		mins, ok := f.services[id]
		if !ok {
			return nil, errMissing
		}
		out = append(out, mins)
	}
	return out, nil
}

type fakeBooked map[string][]availability.BookedInterval

// Intervals tagged with an appointment id in the key "date/id" are dropped when excluded.
func (f fakeBooked) BookedIntervals(_ context.Context, _, _ string, date time.Time, excludeID string) ([]availability.BookedInterval, error) {
	day := date.Format(model.DateLayout)
	out := append([]availability.BookedInterval(nil), f[day]...)
	for key, ivs := range f {
		if id, ok := strings.CutPrefix(key, day+"/"); ok && id != excludeID {
			out = append(out, ivs...)
		}
	}
	return out, nil
}

func newTestService(booked fakeBooked, now time.Time) (*Service, *fakeProviders) {
	providers := &fakeProviders{
		provider: model.Provider{ID: "dr-1", ClinicID: "clinic-1", SlotDurationMinutes: 30, IsActive: true},
		hours: map[time.Weekday]model.WorkingHours{
			time.Tuesday: {ProviderID: "dr-1", Weekday: time.Tuesday, IsWorking: true, StartMinute: 540, EndMinute: 660},
		},
		services: map[string]int{"consult": 20, "xray": 25},
	}
	svc := NewService(providers, booked, Options{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	return svc, providers
}

// 2026-04-14 is a Tuesday.
var (
	tuesday   = time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)
	mondayEve = time.Date(2026, 4, 13, 20, 0, 0, 0, time.UTC)
)

func startStrings(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

func TestSlots_ProviderDefaultDuration(t *testing.T) {
	svc, _ := newTestService(fakeBooked{
		"2026-04-14": {{Start: "09:00", End: "09:30"}, {Start: "10:00", End: "10:30"}},
	}, mondayEve)

	slots, err := svc.Slots(context.Background(), SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	got := startStrings(slots)
	want := []string{"09:30", "10:30"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if slots[0].End.String() != "10:00" {
		t.Fatalf("expected slot end 10:00, got %s", slots[0].End)
	}
}

func TestSlots_CompositeServices(t *testing.T) {
	svc, _ := newTestService(fakeBooked{}, mondayEve)

	slots, err := svc.Slots(context.Background(), SlotQuery{
		ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday, ServiceIDs: []string{"consult", "xray"},
	})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	// 45 minute grid over 09:00-11:00.
	got := startStrings(slots)
	if len(got) != 2 || got[0] != "09:00" || got[1] != "09:45" {
		t.Fatalf("unexpected slots %v", got)
	}

	if _, err := svc.Slots(context.Background(), SlotQuery{
		ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday, ServiceIDs: []string{"unknown"},
	}); !errors.Is(err, errMissing) {
		t.Fatalf("expected missing service error, got %v", err)
	}
}

func TestSlots_DropsElapsedTimeToday(t *testing.T) {
	now := time.Date(2026, 4, 14, 9, 40, 0, 0, time.UTC)
	svc, _ := newTestService(fakeBooked{}, now)

	slots, err := svc.Slots(context.Background(), SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	got := startStrings(slots)
	if len(got) != 2 || got[0] != "10:00" || got[1] != "10:30" {
		t.Fatalf("expected [10:00 10:30], got %v", got)
	}

	past, err := svc.Slots(context.Background(), SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday.AddDate(0, 0, -1)})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if past == nil || len(past) != 0 {
		t.Fatalf("expected empty non-nil list for a past date, got %v", past)
	}
}

func TestSlots_NonWorkingDay(t *testing.T) {
	svc, _ := newTestService(fakeBooked{}, mondayEve)

	slots, err := svc.Slots(context.Background(), SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday.AddDate(0, 0, 4)})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on Saturday, got %v", startStrings(slots))
	}
}

func TestSlots_Errors(t *testing.T) {
	svc, providers := newTestService(fakeBooked{}, mondayEve)
	ctx := context.Background()

	if _, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", Date: tuesday}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-9", Date: tuesday}); !errors.Is(err, errMissing) {
		t.Fatalf("expected provider lookup error, got %v", err)
	}

	providers.hours[time.Tuesday] = model.WorkingHours{IsWorking: true, StartMinute: 540, EndMinute: 660}
	providers.provider.SlotDurationMinutes = 0
	if _, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday}); !errors.Is(err, availability.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	providers.provider.SlotDurationMinutes = 30
	providers.provider.IsActive = false
	if _, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday}); !errors.Is(err, ErrProviderInactive) {
		t.Fatalf("expected ErrProviderInactive, got %v", err)
	}
}

func TestNextAvailable_SkipsFullAndClosedDays(t *testing.T) {
	svc, _ := newTestService(fakeBooked{
		"2026-04-14": {{Start: "09:00", End: "11:00"}},
		"2026-04-15": {{Start: "09:00", End: "12:30"}},
	}, mondayEve)

	slot, found, err := svc.NextAvailable(context.Background(), NextQuery{
		ClinicID: "clinic-1", ProviderID: "dr-1", From: tuesday, LookaheadDays: 5,
	})
	if err != nil {
		t.Fatalf("NextAvailable failed: %v", err)
	}
	if !found {
		t.Fatal("expected a slot")
	}
	if slot.Date.Format(model.DateLayout) != "2026-04-15" || slot.Start.String() != "12:30" || slot.End.String() != "13:00" {
		t.Fatalf("unexpected slot %s %s-%s", slot.Date.Format(model.DateLayout), slot.Start, slot.End)
	}
}

func TestNextAvailable_PastFromStartsToday(t *testing.T) {
	now := time.Date(2026, 4, 14, 10, 50, 0, 0, time.UTC)
	svc, _ := newTestService(fakeBooked{}, now)

	slot, found, err := svc.NextAvailable(context.Background(), NextQuery{
		ClinicID: "clinic-1", ProviderID: "dr-1", From: tuesday.AddDate(0, 0, -7),
	})
	if err != nil || !found {
		t.Fatalf("expected a slot, got found=%v err=%v", found, err)
	}
	// Tuesday's window ends at 11:00 and 10:50 leaves no 30 minute slot.
	if slot.Date.Format(model.DateLayout) != "2026-04-15" || slot.Start.String() != "09:00" {
		t.Fatalf("unexpected slot %s %s", slot.Date.Format(model.DateLayout), slot.Start)
	}
}

func TestNextAvailable_NoneFoundAndErrors(t *testing.T) {
	svc, providers := newTestService(fakeBooked{
		"2026-04-14": {{Start: "09:00", End: "11:00"}},
	}, mondayEve)
	ctx := context.Background()

	_, found, err := svc.NextAvailable(ctx, NextQuery{ClinicID: "clinic-1", ProviderID: "dr-1", From: tuesday, LookaheadDays: 1})
	if err != nil || found {
		t.Fatalf("expected none found, got found=%v err=%v", found, err)
	}

	providers.whErr = errors.New("db down")
	if _, _, err := svc.NextAvailable(ctx, NextQuery{ClinicID: "clinic-1", ProviderID: "dr-1", From: tuesday}); err == nil {
		t.Fatal("expected working hours error to propagate")
	}
}

func TestSlots_ExcludesOwnBooking(t *testing.T) {
	svc, _ := newTestService(fakeBooked{
		"2026-04-14/appt-1": {{Start: "09:00", End: "10:00"}},
	}, mondayEve)
	ctx := context.Background()

	with, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	without, err := svc.Slots(ctx, SlotQuery{ClinicID: "clinic-1", ProviderID: "dr-1", Date: tuesday, Exclude: "appt-1"})
	if err != nil {
		t.Fatalf("Slots failed: %v", err)
	}
	if len(with) != 2 || len(without) != 4 {
		t.Fatalf("expected 2 slots with the booking and 4 without, got %v and %v", startStrings(with), startStrings(without))
	}
}
