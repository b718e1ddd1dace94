package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// Topic constants for dataset lifecycle events.
const (
	TopicDatasetReloaded = "ortho.dataset.reloaded"
	TopicDatasetDegraded = "ortho.dataset.degraded"
)

// EventEnvelope is the wire frame around every published event: identity,
// provenance, then the typed payload.
type EventEnvelope struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`

	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion string    `json:"schema_version"`
	TraceID       string    `json:"trace_id,omitempty"`

	Payload  json.RawMessage   `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DatasetReloadedPayload describes a successful dataset (re)load.
type DatasetReloadedPayload struct {
	DatasetVersion string    `json:"dataset_version"`
	Source         string    `json:"source"`
	Orthogroups    int       `json:"orthogroups"`
	Species        int       `json:"species"`
	TreeLeaves     int       `json:"tree_leaves"`
	Degraded       bool      `json:"degraded"`
	LoadedAt       time.Time `json:"loaded_at"`
	DurationMS     int64     `json:"duration_ms"`
}

// DatasetDegradedPayload describes a load that fell back to the placeholder
// tree after a parse failure.
type DatasetDegradedPayload struct {
	DatasetVersion string    `json:"dataset_version"`
	Reason         string    `json:"reason"`
	Detail         string    `json:"detail"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewEventEnvelope wraps a payload in a versioned envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshalling event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "unmarshalling event payload")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// EventPublisher
// ─────────────────────────────────────────────────────────────────────────────

// EventPublisher emits dataset lifecycle events.  A nil *EventPublisher is a
// valid no-op sink, so callers never need to guard event emission on whether
// messaging is configured.
type EventPublisher struct {
	producer *Producer
	source   string
}

// NewEventPublisher wraps a producer.  source identifies the emitting
// process, e.g. "orthoatlas-apiserver".
func NewEventPublisher(producer *Producer, source string) *EventPublisher {
	return &EventPublisher{producer: producer, source: source}
}

// DatasetReloaded publishes a reload event keyed by dataset version.
func (e *EventPublisher) DatasetReloaded(ctx context.Context, payload DatasetReloadedPayload) error {
	return e.publish(ctx, TopicDatasetReloaded, payload.DatasetVersion, payload)
}

// DatasetDegraded publishes a degraded-state event keyed by dataset version.
func (e *EventPublisher) DatasetDegraded(ctx context.Context, payload DatasetDegradedPayload) error {
	return e.publish(ctx, TopicDatasetDegraded, payload.DatasetVersion, payload)
}

func (e *EventPublisher) publish(ctx context.Context, topic, key string, payload interface{}) error {
	if e == nil || e.producer == nil {
		return nil
	}

	envelope, err := NewEventEnvelope(topic, e.source, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshalling event envelope")
	}

	return e.producer.Publish(ctx, &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}
