package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the only event envelope version this consumer understands.
const SchemaVersion = 1

// Event types.
const (
	EventEntityUpserted = "talentmatch.entity.upserted"
	EventEntityDeleted  = "talentmatch.entity.deleted"
)

// Event is the versioned envelope published by the upstream entity store.
type Event struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Entity        EntityPayload `json:"entity"`
}

// EntityPayload is the entity body of an event. Deletes only need ID.
type EntityPayload struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind,omitempty"`
	Vector     []float32          `json:"vector,omitempty"`
	Text       string             `json:"text,omitempty"`
	Attributes []string           `json:"attributes,omitempty"`
	Weights    map[string]float64 `json:"weights,omitempty"`
	MinScore   float64            `json:"min_score,omitempty"`
}

// decodeEvent parses and checks the envelope. Errors mean the message can never be applied.
func decodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.SchemaVersion != SchemaVersion {
		return Event{}, fmt.Errorf("unsupported schema_version %d", ev.SchemaVersion)
	}
	switch ev.EventType {
	case EventEntityUpserted, EventEntityDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event_type %q", ev.EventType)
	}
	if ev.Entity.ID == "" {
		return Event{}, fmt.Errorf("event %s: missing entity id", ev.EventID)
	}
	return ev, nil
}
