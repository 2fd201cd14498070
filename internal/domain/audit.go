package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is one relay-side record of a mutation or session event.
type AuditEntry struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	TicketName string          `json:"ticket_name,omitempty"`
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	RecordedAt time.Time       `json:"recorded_at"`
}
