package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

// EnvelopeVersion is the layout written by Emit.
const EnvelopeVersion = 2

// Actor is whoever caused the event. Both fields are optional.
type Actor struct {
	Reference      string     `json:"reference,omitempty"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
}

// Envelope is stored in outbox_events.payload and forwarded as-is by the
// publisher, so consumers can read it without the row columns.
type Envelope struct {
	Version     int                   `json:"version"`
	EventID     uuid.UUID             `json:"eventId"`
	EventType   enums.OutboxEventType `json:"eventType"`
	AggregateID uuid.UUID             `json:"aggregateId"`
	Source      string                `json:"source,omitempty"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *Actor                `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload. Version 1 rows predate the event
// type and aggregate fields and are accepted without them.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch {
	case env.Version < 1 || env.Version > EnvelopeVersion:
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	case env.EventID == uuid.Nil:
		return Envelope{}, errors.New("envelope missing event id")
	case env.Version >= 2 && !env.EventType.IsValid():
		return Envelope{}, fmt.Errorf("envelope has unknown event type %q", env.EventType)
	}
	return env, nil
}

// DecodeData unmarshals the event data into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return errors.New("envelope has no data")
	}
	return json.Unmarshal(e.Data, v)
}
