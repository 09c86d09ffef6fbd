package outbox

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event types published for availability changes. The Kafka topic equals the event type.
const (
	EventWeeklySaved     = "availability.weekly.saved.v1"
	EventOverrideAdded   = "availability.override.added.v1"
	EventOverrideRemoved = "availability.override.removed.v1"
	EventBoardingSaved   = "availability.boarding.saved.v1"
)

const AggregateProvider = "provider_availability"

// Event is the envelope written to the outbox table.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent encodes payload as JSON and assigns a fresh event id.
func NewEvent(providerID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Event{
		EventID:       uuid.NewString(),
		AggregateType: AggregateProvider,
		AggregateID:   providerID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
