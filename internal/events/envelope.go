package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
)

const (
	DocumentChangedEventName    = "DocumentChanged"
	DocumentChangedEventVersion = 1
	documentChangedSchema       = "contracts/events/storefront/DocumentChanged.v1.payload.schema.json"
	producerName                = "storefront-go"
)

// EventEnvelope represents the common envelope for all events.
type EventEnvelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      *int64    `json:"sequence,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
	Payload       T         `json:"payload"`
}

type DocumentChangedEnvelope = EventEnvelope[docstore.Change]

// Validate ensures the envelope contains the expected event identity.
func (e EventEnvelope[T]) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName: %s", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion: %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.EventID == "" {
		return fmt.Errorf("missing eventId")
	}
	return nil
}

func partitionKey(collection string) string {
	return "documents." + collection
}

func newDocumentChanged(change docstore.Change, seq *int64) DocumentChangedEnvelope {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	if seq != nil {
		change.Sequence = *seq
	}
	return DocumentChangedEnvelope{
		EventName:    DocumentChangedEventName,
		EventVersion: DocumentChangedEventVersion,
		EventID:      uuid.NewString(),
		Producer:     producerName,
		PartitionKey: partitionKey(change.Collection),
		Sequence:     seq,
		OccurredAt:   change.OccurredAt,
		Schema:       documentChangedSchema,
		Payload:      change,
	}
}

// parseDocumentChanged decodes and validates a DocumentChanged message.
func parseDocumentChanged(body []byte) (docstore.Change, error) {
	var env DocumentChangedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return docstore.Change{}, fmt.Errorf("unmarshal DocumentChanged: %w", err)
	}
	if err := env.Validate(DocumentChangedEventName, DocumentChangedEventVersion); err != nil {
		return docstore.Change{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Payload.Collection == "" {
		return docstore.Change{}, fmt.Errorf("invalid payload: missing collection")
	}
	return env.Payload, nil
}
