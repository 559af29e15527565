package booking

import (
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
)

// HasExactBookingConflict reports whether the snapshot holds an active appointment for the
// provider starting at exactly date/start. It is a point lookup, not an overlap test: bookings
// are made on the provider's slot grid, so two bookings for the same slot share a start.
//
// Callers must take the snapshot and insert the new appointment inside one transaction
// (serializable, backed by the unique index on provider/date/start for active rows);
// this function does no locking of its own.
func HasExactBookingConflict(providerID string, date time.Time, start availability.TimeOfDay, snapshot []model.Appointment) bool {
	for _, a := range snapshot {
		if a.ProviderID != providerID || !a.IsActive() {
			continue
		}
		if model.SameDate(a.Date, date) && a.StartMinute == int(start) {
			return true
		}
	}
	return false
}
