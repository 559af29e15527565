package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/booking"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/scheduling"
)

const defaultMaxAttempts = 3

type SlotFinder interface {
	NextAvailable(ctx context.Context, q scheduling.NextQuery) (scheduling.Slot, bool, error)
}

type Booker interface {
	Book(ctx context.Context, req booking.NewAppointment) (model.Appointment, error)
}

type Scheduler struct {
	finder        SlotFinder
	booker        Booker
	logger        *slog.Logger
	lookaheadDays int
	maxAttempts   int
}

type SchedulerConfig struct {
	LookaheadDays int
	MaxAttempts   int
}

func NewScheduler(finder SlotFinder, booker Booker, logger *slog.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Scheduler{
		finder:        finder,
		booker:        booker,
		logger:        logger,
		lookaheadDays: cfg.LookaheadDays,
		maxAttempts:   cfg.MaxAttempts,
	}
}

// Schedule books the follow-up requested by a completed visit in the first free slot
// FollowUpAfterDays after the visit date. booked is false when no follow-up was asked
// for or no slot exists within the lookahead.
func (s *Scheduler) Schedule(ctx context.Context, visit booking.AppointmentEvent) (model.Appointment, bool, error) {
	if visit.FollowUpAfterDays <= 0 {
		return model.Appointment{}, false, nil
	}
	visitDate, err := model.ParseDate(visit.Date)
	if err != nil {
		return model.Appointment{}, false, fmt.Errorf("visit %s date: %w", visit.AppointmentID, err)
	}
	from := visitDate.AddDate(0, 0, visit.FollowUpAfterDays)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		slot, found, err := s.finder.NextAvailable(ctx, scheduling.NextQuery{
			ClinicID:      visit.ClinicID,
			ProviderID:    visit.ProviderID,
			From:          from,
			LookaheadDays: s.lookaheadDays,
			ServiceIDs:    visit.ServiceIDs,
		})
		if err != nil {
			return model.Appointment{}, false, err
		}
		if !found {
			s.logger.Info("no follow-up slot within lookahead",
				"appointment_id", visit.AppointmentID, "provider_id", visit.ProviderID,
				"from", from.Format(model.DateLayout), "lookahead_days", s.lookaheadDays)
			return model.Appointment{}, false, nil
		}

		appt, err := s.booker.Book(ctx, booking.NewAppointment{
			ClinicID:     visit.ClinicID,
			ProviderID:   visit.ProviderID,
			PatientID:    visit.PatientID,
			ServiceIDs:   visit.ServiceIDs,
			Date:         slot.Date,
			Start:        slot.Start,
			DurationMins: int(slot.End - slot.Start),
			FollowUpOf:   visit.AppointmentID,
		})
		if err == nil {
			s.logger.Info("follow-up booked",
				"appointment_id", appt.ID, "follow_up_of", visit.AppointmentID,
				"date", appt.DateString(), "start", slot.Start.String())
			return appt, true, nil
		}
		if !errors.Is(err, booking.ErrSlotTaken) {
			return model.Appointment{}, false, err
		}
		s.logger.Info("follow-up slot taken, searching again",
			"follow_up_of", visit.AppointmentID, "attempt", attempt, "date", slot.Date.Format(model.DateLayout), "start", slot.Start.String())
		from = slot.Date
	}
	return model.Appointment{}, false, fmt.Errorf("follow-up for %s: %w after %d attempts", visit.AppointmentID, booking.ErrSlotTaken, s.maxAttempts)
}
