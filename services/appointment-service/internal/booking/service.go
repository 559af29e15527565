package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/outbox"
)

var (
	ErrSlotTaken         = errors.New("time slot already booked")
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("appointment cannot change to the requested status")
	ErrInvalidRequest    = errors.New("invalid booking request")
)

// Tx is the transaction-scoped view of the appointments store.
type Tx interface {
	// ActiveAt returns active appointments of the provider starting exactly at date/start.
	ActiveAt(ctx context.Context, clinicID, providerID string, date time.Time, start availability.TimeOfDay) ([]model.Appointment, error)
	Insert(ctx context.Context, appt model.Appointment) error
	GetForUpdate(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error)
	UpdateSchedule(ctx context.Context, clinicID, appointmentID string, date time.Time, startMinute, endMinute int) error
	SetStatus(ctx context.Context, clinicID, appointmentID, status, reason string) (time.Time, error)
	Emit(ctx context.Context, evt outbox.Event) error
}

// TxRunner runs fn in a transaction that makes the guard's check-then-write atomic.
// fn's error aborts the transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Service struct {
	store  TxRunner
	logger *slog.Logger
}

func NewService(store TxRunner, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

type NewAppointment struct {
	ClinicID     string
	ProviderID   string
	PatientID    string
	ServiceIDs   []string
	Date         time.Time
	Start        availability.TimeOfDay
	DurationMins int
	FollowUpOf   string
	Notes        string
}

func (n NewAppointment) validate() error {
	if strings.TrimSpace(n.ClinicID) == "" || strings.TrimSpace(n.ProviderID) == "" || strings.TrimSpace(n.PatientID) == "" {
		return fmt.Errorf("%w: clinic, provider and patient are required", ErrInvalidRequest)
	}
	if n.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	if !n.Start.Valid() {
		return fmt.Errorf("%w: start %d", availability.ErrInvalidTimeFormat, int(n.Start))
	}
	if n.DurationMins <= 0 {
		return fmt.Errorf("%w: %d minutes", availability.ErrInvalidDuration, n.DurationMins)
	}
	if int(n.Start)+n.DurationMins > availability.MinutesPerDay {
		return fmt.Errorf("%w: appointment crosses midnight", ErrInvalidRequest)
	}
	return nil
}

// Book creates a confirmed appointment unless an active one already holds the exact slot.
func (s *Service) Book(ctx context.Context, req NewAppointment) (model.Appointment, error) {
	if err := req.validate(); err != nil {
		return model.Appointment{}, err
	}
	appt := model.Appointment{
		ID:          uuid.NewString(),
		ClinicID:    req.ClinicID,
		ProviderID:  req.ProviderID,
		PatientID:   req.PatientID,
		ServiceIDs:  req.ServiceIDs,
		Date:        req.Date,
		StartMinute: int(req.Start),
		EndMinute:   int(req.Start) + req.DurationMins,
		Status:      model.StatusConfirmed,
		FollowUpOf:  req.FollowUpOf,
		Notes:       req.Notes,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		snapshot, err := tx.ActiveAt(ctx, appt.ClinicID, appt.ProviderID, appt.Date, req.Start)
		if err != nil {
			return err
		}
		if HasExactBookingConflict(appt.ProviderID, appt.Date, req.Start, snapshot) {
			return ErrSlotTaken
		}
		if err := tx.Insert(ctx, appt); err != nil {
			return err
		}
		eventType := outbox.TopicAppointmentBooked
		if appt.FollowUpOf != "" {
			eventType = outbox.TopicFollowUpScheduled
		}
		evt, err := newEvent(eventType, appt, nil)
		if err != nil {
			return err
		}
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.logger.Info("booking rejected: slot taken",
				"provider_id", appt.ProviderID, "date", appt.DateString(), "start", req.Start.String())
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// Reschedule moves an active appointment to a new slot, keeping its duration.
func (s *Service) Reschedule(ctx context.Context, clinicID, appointmentID string, date time.Time, start availability.TimeOfDay) (model.Appointment, error) {
	if !start.Valid() {
		return model.Appointment{}, fmt.Errorf("%w: start %d", availability.ErrInvalidTimeFormat, int(start))
	}
	var out model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetForUpdate(ctx, clinicID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return fmt.Errorf("%w: %s appointment cannot be rescheduled", ErrInvalidTransition, appt.Status)
		}
		duration := appt.EndMinute - appt.StartMinute
		if int(start)+duration > availability.MinutesPerDay {
			return fmt.Errorf("%w: appointment crosses midnight", ErrInvalidRequest)
		}

		snapshot, err := tx.ActiveAt(ctx, clinicID, appt.ProviderID, date, start)
		if err != nil {
			return err
		}
		others := snapshot[:0:0]
		for _, a := range snapshot {
			if a.ID != appt.ID {
				others = append(others, a)
			}
		}
		if HasExactBookingConflict(appt.ProviderID, date, start, others) {
			return ErrSlotTaken
		}

		previous := appt.DateString() + " " + availability.TimeOfDay(appt.StartMinute).String()
		appt.Date = date
		appt.StartMinute = int(start)
		appt.EndMinute = int(start) + duration
		if err := tx.UpdateSchedule(ctx, clinicID, appt.ID, appt.Date, appt.StartMinute, appt.EndMinute); err != nil {
			return err
		}
		evt, err := newEvent(outbox.TopicAppointmentRescheduled, appt, func(e *AppointmentEvent) {
			e.Reason = "moved from " + previous
		})
		if err != nil {
			return err
		}
		out = appt
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Cancel releases the appointment's slot. Cancelling twice returns the original cancellation.
func (s *Service) Cancel(ctx context.Context, clinicID, appointmentID, reason string) (model.Appointment, error) {
	var out model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetForUpdate(ctx, clinicID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status == model.StatusCancelled {
			out = appt
			return nil
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return fmt.Errorf("%w: %s appointment cannot be cancelled", ErrInvalidTransition, appt.Status)
		}
		cancelledAt, err := tx.SetStatus(ctx, clinicID, appt.ID, model.StatusCancelled, reason)
		if err != nil {
			return err
		}
		appt.Status = model.StatusCancelled
		appt.CancelledAt = &cancelledAt
		appt.CancelReason = reason
		evt, err := newEvent(outbox.TopicAppointmentCancelled, appt, func(e *AppointmentEvent) {
			e.Reason = reason
		})
		if err != nil {
			return err
		}
		out = appt
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}

// Complete marks the visit done. A positive followUpAfterDays asks the follow-up
// scheduler to book the next visit that many days later.
func (s *Service) Complete(ctx context.Context, clinicID, appointmentID string, followUpAfterDays int) (model.Appointment, error) {
	if followUpAfterDays < 0 {
		return model.Appointment{}, fmt.Errorf("%w: negative follow-up interval", ErrInvalidRequest)
	}
	var out model.Appointment
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := tx.GetForUpdate(ctx, clinicID, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != model.StatusPending && appt.Status != model.StatusConfirmed {
			return fmt.Errorf("%w: %s appointment cannot be completed", ErrInvalidTransition, appt.Status)
		}
		if _, err := tx.SetStatus(ctx, clinicID, appt.ID, model.StatusCompleted, ""); err != nil {
			return err
		}
		appt.Status = model.StatusCompleted
		evt, err := newEvent(outbox.TopicAppointmentCompleted, appt, func(e *AppointmentEvent) {
			e.FollowUpAfterDays = followUpAfterDays
		})
		if err != nil {
			return err
		}
		out = appt
		return tx.Emit(ctx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return out, nil
}
