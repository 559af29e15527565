package outbox

// Event types double as Kafka topic names.
const (
	TopicAppointmentBooked      = "clinic.appointment.booked.v1"
	TopicAppointmentRescheduled = "clinic.appointment.rescheduled.v1"
	TopicAppointmentCancelled   = "clinic.appointment.cancelled.v1"
	TopicAppointmentCompleted   = "clinic.appointment.completed.v1"
	TopicFollowUpScheduled      = "clinic.appointment.followup_scheduled.v1"
)

const AggregateAppointment = "appointment"

// Event is the envelope written to the outbox table inside the business transaction.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
