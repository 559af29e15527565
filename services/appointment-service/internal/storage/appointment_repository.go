package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicdesk/libs/db"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
)

const appointmentColumns = `id::text, clinic_id, provider_id, patient_id, service_ids, appointment_date,
	start_minute, end_minute, status, COALESCE(follow_up_of::text, ''), notes,
	cancelled_at, COALESCE(cancellation_reason, ''), created_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// BookedIntervals returns the active appointments of the provider on date as booked intervals,
// leaving out excludeID when it is set.
func (r *AppointmentRepository) BookedIntervals(ctx context.Context, clinicID, providerID string, date time.Time, excludeID string) ([]availability.BookedInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE clinic_id = $1
			AND provider_id = $2
			AND appointment_date = $3
			AND status NOT IN ('cancelled', 'rejected')
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_minute ASC
	`, clinicID, providerID, dateOnly(date), excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.BookedInterval
	for rows.Next() {
		var start, end int
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		out = append(out, availability.BookedInterval{
			Start: availability.TimeOfDay(start).String(),
			End:   availability.FormatEnd(availability.TimeOfDay(end)),
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID)
	return scanAppointment(row)
}

func (r *AppointmentRepository) ListByProviderDate(ctx context.Context, clinicID, providerID string, date time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1 AND provider_id = $2 AND appointment_date = $3
		ORDER BY start_minute ASC, created_at ASC
	`, clinicID, providerID, dateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.ClinicID,
		&appt.ProviderID,
		&appt.PatientID,
		&appt.ServiceIDs,
		&appt.Date,
		&appt.StartMinute,
		&appt.EndMinute,
		&appt.Status,
		&appt.FollowUpOf,
		&appt.Notes,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
