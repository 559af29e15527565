package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicdesk/libs/db"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/booking"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/outbox"
)

const maxSerializableAttempts = 3

// Store runs booking transactions at serializable isolation. It satisfies booking.TxRunner.
type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

// InTx retries transactions aborted by a serialization failure; the retry then sees the
// competing commit and the booking guard rejects the slot.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxSerializableAttempts; attempt++ {
		err = s.pool.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
			return fn(ctx, &txStore{tx: tx, outbox: s.outbox})
		})
		if !db.IsSerializationFailure(err) {
			break
		}
	}
	if IsConflict(err) {
		return booking.ErrSlotTaken
	}
	return err
}

type txStore struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *txStore) ActiveAt(ctx context.Context, clinicID, providerID string, date time.Time, start availability.TimeOfDay) ([]model.Appointment, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
			AND provider_id = $2
			AND appointment_date = $3
			AND start_minute = $4
			AND status NOT IN ('cancelled', 'rejected')
	`, clinicID, providerID, dateOnly(date), int(start))
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

func (t *txStore) Insert(ctx context.Context, appt model.Appointment) error {
	var followUpOf *string
	if appt.FollowUpOf != "" {
		followUpOf = &appt.FollowUpOf
	}
	serviceIDs := appt.ServiceIDs
	if serviceIDs == nil {
		serviceIDs = []string{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, clinic_id, provider_id, patient_id, service_ids, appointment_date, start_minute, end_minute,
			 status, follow_up_of, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, appt.ID, appt.ClinicID, appt.ProviderID, appt.PatientID, serviceIDs, dateOnly(appt.Date),
		appt.StartMinute, appt.EndMinute, appt.Status, followUpOf, appt.Notes, appt.CreatedAt)
	if IsConflict(err) {
		return booking.ErrSlotTaken
	}
	return err
}

func (t *txStore) GetForUpdate(ctx context.Context, clinicID, appointmentID string) (model.Appointment, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, appointmentID, clinicID)
	appt, err := scanAppointment(row)
	if IsNotFound(err) {
		return model.Appointment{}, booking.ErrNotFound
	}
	return appt, err
}

func (t *txStore) UpdateSchedule(ctx context.Context, clinicID, appointmentID string, date time.Time, startMinute, endMinute int) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $3,
			start_minute = $4,
			end_minute = $5,
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
	`, appointmentID, clinicID, dateOnly(date), startMinute, endMinute)
	if IsConflict(err) {
		return booking.ErrSlotTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *txStore) SetStatus(ctx context.Context, clinicID, appointmentID, status, reason string) (time.Time, error) {
	var changedAt time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
			cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END,
			cancellation_reason = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancellation_reason END,
			updated_at = now()
		WHERE id = $1 AND clinic_id = $2
		RETURNING updated_at
	`, appointmentID, clinicID, status, reason).Scan(&changedAt)
	if IsNotFound(err) {
		return time.Time{}, booking.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("set status %s: %w", status, err)
	}
	return changedAt, nil
}

func (t *txStore) Emit(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
