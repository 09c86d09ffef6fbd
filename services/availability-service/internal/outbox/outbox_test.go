package outbox

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/md-rashed-zaman/sitteravail/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestNewEvent(t *testing.T) {
	evt, err := NewEvent("prov-1", EventOverrideAdded, map[string]string{"date": "2024-06-10"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if evt.EventID == "" || evt.AggregateID != "prov-1" || evt.AggregateType != AggregateProvider {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	var body map[string]string
	if err := json.Unmarshal(evt.Payload, &body); err != nil || body["date"] != "2024-06-10" {
		t.Fatalf("unexpected payload %s (%v)", evt.Payload, err)
	}
}

func TestToMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	r := Record{
		ID:          7,
		EventID:     "evt-7",
		AggregateID: "prov-1",
		EventType:   EventWeeklySaved,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := toMessage(context.Background(), r)
	if msg.Topic != EventWeeklySaved || string(msg.Key) != "prov-1" {
		t.Fatalf("unexpected routing %s/%s", msg.Topic, msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-7" {
		t.Fatalf("missing event id header: %v", msg.Headers)
	}
	if kafkax.HeaderValue(msg.Headers, "traceparent") != r.Traceparent {
		t.Fatalf("expected stored trace context to be propagated, got %v", msg.Headers)
	}
}
