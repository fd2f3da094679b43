package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event raised after a committed workflow change
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	TenantID      int64                  `json:"tenantId"`
	EntityID      int64                  `json:"entityId"`
	ActorID       int64                  `json:"actorId"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlationId"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, tenantID, entityID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, tenantID, entityID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain,
// usually the request id of the HTTP call that caused it
func NewEventWithCorrelation(eventType Type, tenantID, entityID int64, payload map[string]interface{}, correlationID string) *Event {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		TenantID:      tenantID,
		EntityID:      entityID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithActor returns a copy of the event attributed to actorID
func (e *Event) WithActor(actorID int64) *Event {
	cp := *e
	cp.ActorID = actorID
	return &cp
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayload retrieves a raw value from the payload
func (e *Event) GetPayload(key string) (interface{}, bool) {
	val, ok := e.Payload[key]
	return val, ok
}
