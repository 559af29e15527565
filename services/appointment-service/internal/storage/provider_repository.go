package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/libs/db"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
)

type ProviderRepository struct {
	pool *db.Pool
}

func NewProviderRepository(pool *db.Pool) *ProviderRepository {
	return &ProviderRepository{pool: pool}
}

func (r *ProviderRepository) Provider(ctx context.Context, clinicID, providerID string) (model.Provider, error) {
	var p model.Provider
	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, name, slot_duration_minutes, is_active
		FROM providers
		WHERE clinic_id = $1 AND id = $2
	`, clinicID, providerID).Scan(&p.ID, &p.ClinicID, &p.Name, &p.SlotDurationMinutes, &p.IsActive)
	return p, err
}

func (r *ProviderRepository) WorkingHours(ctx context.Context, clinicID, providerID string, weekday time.Weekday) (model.WorkingHours, error) {
	wh := model.WorkingHours{ProviderID: providerID, Weekday: weekday}
	err := r.pool.QueryRow(ctx, `
		SELECT h.is_working, h.start_minute, h.end_minute
		FROM provider_working_hours h
		JOIN providers p ON p.id = h.provider_id
		WHERE p.clinic_id = $1 AND h.provider_id = $2 AND h.weekday = $3
	`, clinicID, providerID, int(weekday)).Scan(&wh.IsWorking, &wh.StartMinute, &wh.EndMinute)
	if err == nil {
		return wh, nil
	}
	if IsNotFound(err) {
		return model.DefaultWorkingHours(providerID, weekday), nil
	}
	return model.WorkingHours{}, err
}

// ServiceDurations returns the duration of each requested service, in request order.
// A service missing from the clinic's catalogue is reported as pgx.ErrNoRows.
func (r *ProviderRepository) ServiceDurations(ctx context.Context, clinicID string, serviceIDs []string) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, duration_minutes
		FROM clinic_services
		WHERE clinic_id = $1 AND id = ANY($2)
	`, clinicID, serviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]int, len(serviceIDs))
	for rows.Next() {
		var id string
		var mins int
		if err := rows.Scan(&id, &mins); err != nil {
			return nil, err
		}
		byID[id] = mins
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	out := make([]int, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		mins, ok := byID[id]
		if !ok {
			return nil, errServiceNotFound(id)
		}
		out = append(out, mins)
	}
	return out, nil
}
