package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the ledger state of an ingested webhook event.
// Transitions are received -> processed or received -> failed, terminal.
type EventStatus string

const (
	EventStatusReceived  EventStatus = "received"
	EventStatusProcessed EventStatus = "processed"
	EventStatusFailed    EventStatus = "failed"
)

// WebhookEvent is one ledger entry per distinct (store, payload hash) pair.
// It records the raw payload, the processing outcome and timing, and is the
// idempotency boundary for at-least-once webhook delivery.
type WebhookEvent struct {
	ID               uuid.UUID              `json:"id"`
	StoreID          uuid.UUID              `json:"store_id"`
	Scope            string                 `json:"scope"`
	WebhookID        string                 `json:"webhook_id,omitempty"`
	PayloadHash      string                 `json:"payload_hash"`
	Payload          map[string]interface{} `json:"payload"`
	Status           EventStatus            `json:"status"`
	Result           map[string]interface{} `json:"result,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ProcessingTimeMs *int64                 `json:"processing_time_ms,omitempty"`
	ReceivedAt       time.Time              `json:"received_at"`
	ProcessedAt      *time.Time             `json:"processed_at,omitempty"`
}
