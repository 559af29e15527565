package outbox

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/clinicdesk/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestToMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	rec := Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "appt-1",
		EventType:   TopicAppointmentBooked,
		Payload:     []byte(`{"appointment_id":"appt-1"}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := toMessage(context.Background(), rec)

	if msg.Topic != TopicAppointmentBooked || string(msg.Key) != "appt-1" || string(msg.Value) != string(rec.Payload) {
		t.Fatalf("unexpected message %+v", msg)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != TopicAppointmentBooked {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Traceparent {
		t.Fatalf("expected stored trace context on the message, got %q", got)
	}
}

func TestToMessage_WithoutTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	msg := toMessage(context.Background(), Record{EventID: "evt-2", AggregateID: "appt-2", EventType: TopicAppointmentCancelled})
	if kafkax.HeaderValue(msg.Headers, "traceparent") != "" {
		t.Fatal("no trace context expected")
	}
}
