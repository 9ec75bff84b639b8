package models

import (
	"encoding/json"
	"time"
)

// QueueStatus is the lifecycle state of a queued mutation.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is one pending mutation awaiting replay against the remote
// backend. Payload is the full entity snapshot taken at enqueue time
// (or just {"id": ...} for deletes). Items for the same entity id are
// never merged; drains replay them strictly in enqueue order.
type QueueItem struct {
	ID           string          `json:"id"`
	Seq          int64           `json:"seq"`
	Entity       EntityKind      `json:"entity"`
	Operation    Operation       `json:"operation"`
	Payload      json.RawMessage `json:"payload"`
	Retries      int             `json:"retries"`
	Status       QueueStatus     `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
