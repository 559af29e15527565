package booking

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/availability"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/model"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/outbox"
)

// AppointmentEvent is the payload of every clinic.appointment.* topic.
type AppointmentEvent struct {
	AppointmentID     string   `json:"appointment_id"`
	ClinicID          string   `json:"clinic_id"`
	ProviderID        string   `json:"provider_id"`
	PatientID         string   `json:"patient_id"`
	ServiceIDs        []string `json:"service_ids,omitempty"`
	Date              string   `json:"date"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	Status            string   `json:"status"`
	FollowUpOf        string   `json:"follow_up_of,omitempty"`
	FollowUpAfterDays int      `json:"follow_up_after_days,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	OccurredAt        string   `json:"occurred_at"`
}

func newEvent(eventType string, appt model.Appointment, mutate func(*AppointmentEvent)) (outbox.Event, error) {
	evt := AppointmentEvent{
		AppointmentID: appt.ID,
		ClinicID:      appt.ClinicID,
		ProviderID:    appt.ProviderID,
		PatientID:     appt.PatientID,
		ServiceIDs:    appt.ServiceIDs,
		Date:          appt.DateString(),
		Start:         availability.TimeOfDay(appt.StartMinute).String(),
		End:           availability.FormatEnd(availability.TimeOfDay(appt.EndMinute)),
		Status:        appt.Status,
		FollowUpOf:    appt.FollowUpOf,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(&evt)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: outbox.AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
