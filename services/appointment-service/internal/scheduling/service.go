package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrProviderInactive = errors.New("provider is not accepting appointments")
	ErrInvalidQuery     = errors.New("invalid availability query")
)

// ProviderSource supplies a provider's configuration.
type ProviderSource interface {
	Provider(ctx context.Context, clinicID, providerID string) (model.Provider, error)
	WorkingHours(ctx context.Context, clinicID, providerID string, weekday time.Weekday) (model.WorkingHours, error)
	ServiceDurations(ctx context.Context, clinicID string, serviceIDs []string) ([]int, error)
}

// BookedSource supplies the intervals already taken on a provider's day.
type BookedSource interface {
	// BookedIntervals skips the appointment excludeID when it is set.
	BookedIntervals(ctx context.Context, clinicID, providerID string, date time.Time, excludeID string) ([]availability.BookedInterval, error)
}

type Options struct {
	// Location is the clinic's timezone; calendar dates and "now" are read in it.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	providers ProviderSource
	booked    BookedSource
	loc       *time.Location
	now       func() time.Time
	tracer    trace.Tracer
}

func NewService(providers ProviderSource, booked BookedSource, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		providers: providers,
		booked:    booked,
		loc:       opts.Location,
		now:       opts.Now,
		tracer:    otel.Tracer("appointment-service/scheduling"),
	}
}

type SlotQuery struct {
	ClinicID   string
	ProviderID string
	Date       time.Time
	ServiceIDs []string
	// Exclude ignores one appointment's own booking, for rescheduling it.
	Exclude string
}

type Slot struct {
	Date  time.Time
	Start availability.TimeOfDay
	End   availability.TimeOfDay
}

// Slots lists the provider's free slots on q.Date. Slots that already started are
// left out for the current date, and a past date has none.
func (s *Service) Slots(ctx context.Context, q SlotQuery) ([]Slot, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.slots", trace.WithAttributes(
		attribute.String("clinic.id", q.ClinicID),
		attribute.String("provider.id", q.ProviderID),
		attribute.String("date", q.Date.Format(model.DateLayout)),
	))
	defer span.End()

	slots, err := s.slots(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	return slots, nil
}

func (s *Service) slots(ctx context.Context, q SlotQuery) ([]Slot, error) {
	if err := validateIDs(q.ClinicID, q.ProviderID); err != nil {
		return nil, err
	}
	if q.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidQuery)
	}
	duration, err := s.duration(ctx, q.ClinicID, q.ProviderID, q.ServiceIDs)
	if err != nil {
		return nil, err
	}
	plan, err := s.planDay(ctx, q.ClinicID, q.ProviderID, duration, q.Date, q.Exclude)
	if err != nil {
		return nil, err
	}
	out := []Slot{}
	if !plan.Working {
		return out, nil
	}
	starts, err := availability.AvailableSlots(plan.Window, plan.DurationMins, plan.Booked)
	if err != nil {
		return nil, err
	}
	for _, start := range starts {
		out = append(out, Slot{Date: calendarDate(q.Date), Start: start, End: start + availability.TimeOfDay(duration)})
	}
	return out, nil
}

type NextQuery struct {
	ClinicID      string
	ProviderID    string
	From          time.Time
	LookaheadDays int
	ServiceIDs    []string
}

// NextAvailable finds the first free slot on or after q.From. A From in the past
// starts the search today.
func (s *Service) NextAvailable(ctx context.Context, q NextQuery) (Slot, bool, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.next_available", trace.WithAttributes(
		attribute.String("clinic.id", q.ClinicID),
		attribute.String("provider.id", q.ProviderID),
		attribute.String("from", q.From.Format(model.DateLayout)),
		attribute.Int("lookahead_days", q.LookaheadDays),
	))
	defer span.End()

	slot, found, err := s.nextAvailable(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Slot{}, false, err
	}
	span.SetAttributes(attribute.Bool("found", found))
	return slot, found, nil
}

func (s *Service) nextAvailable(ctx context.Context, q NextQuery) (Slot, bool, error) {
	if err := validateIDs(q.ClinicID, q.ProviderID); err != nil {
		return Slot{}, false, err
	}
	if q.From.IsZero() {
		return Slot{}, false, fmt.Errorf("%w: from date is required", ErrInvalidQuery)
	}
	duration, err := s.duration(ctx, q.ClinicID, q.ProviderID, q.ServiceIDs)
	if err != nil {
		return Slot{}, false, err
	}

	from := calendarDate(q.From)
	if today := s.today(); from.Before(today) {
		from = today
	}
	planner := availability.DayPlannerFunc(func(ctx context.Context, day time.Time) (availability.DayPlan, error) {
		return s.planDay(ctx, q.ClinicID, q.ProviderID, duration, day, "")
	})
	next, found, err := availability.FindNextAvailable(ctx, planner, from, q.LookaheadDays)
	if err != nil || !found {
		return Slot{}, false, err
	}
	return Slot{Date: next.Date, Start: next.Start, End: next.Start + availability.TimeOfDay(duration)}, true, nil
}

// duration is the provider's default slot length, or the sum of the requested
// services' durations when any are given.
func (s *Service) duration(ctx context.Context, clinicID, providerID string, serviceIDs []string) (int, error) {
	provider, err := s.providers.Provider(ctx, clinicID, providerID)
	if err != nil {
		return 0, fmt.Errorf("load provider %s: %w", providerID, err)
	}
	if !provider.IsActive {
		return 0, ErrProviderInactive
	}
	if len(serviceIDs) == 0 {
		return availability.CompositeDuration(provider.SlotDurationMinutes)
	}
	durations, err := s.providers.ServiceDurations(ctx, clinicID, serviceIDs)
	if err != nil {
		return 0, fmt.Errorf("load services: %w", err)
	}
	return availability.CompositeDuration(durations...)
}

func (s *Service) planDay(ctx context.Context, clinicID, providerID string, duration int, day time.Time, exclude string) (availability.DayPlan, error) {
	day = calendarDate(day)
	plan := availability.DayPlan{DurationMins: duration}

	today := s.today()
	if day.Before(today) {
		return plan, nil
	}
	wh, err := s.providers.WorkingHours(ctx, clinicID, providerID, day.Weekday())
	if err != nil {
		return availability.DayPlan{}, fmt.Errorf("load working hours: %w", err)
	}
	if !wh.IsWorking || wh.EndMinute <= wh.StartMinute {
		return plan, nil
	}
	booked, err := s.booked.BookedIntervals(ctx, clinicID, providerID, day, exclude)
	if err != nil {
		return availability.DayPlan{}, fmt.Errorf("load booked intervals: %w", err)
	}
	if day.Equal(today) {
		// Time already gone today is treated as taken.
		elapsed := s.minutesIntoToday()
		if elapsed > 0 {
			booked = append(booked, availability.BookedInterval{
				Start: availability.TimeOfDay(0).String(),
				End:   availability.FormatEnd(elapsed),
			})
		}
	}

	plan.Working = true
	plan.Window = availability.Window{
		Start: availability.TimeOfDay(wh.StartMinute),
		End:   availability.TimeOfDay(wh.EndMinute),
	}
	plan.Booked = booked
	return plan, nil
}

func (s *Service) today() time.Time {
	return calendarDate(s.now().In(s.loc))
}

func (s *Service) minutesIntoToday() availability.TimeOfDay {
	now := s.now().In(s.loc)
	return availability.TimeOfDay(now.Hour()*60 + now.Minute())
}

// calendarDate keeps the date as written and drops clock and zone.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateIDs(clinicID, providerID string) error {
	if strings.TrimSpace(clinicID) == "" || strings.TrimSpace(providerID) == "" {
		return fmt.Errorf("%w: clinic and provider are required", ErrInvalidQuery)
	}
	return nil
}
