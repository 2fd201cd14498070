package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-relay/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketAccepted EventType = "ticket_accepted"
	EventSessionOpened  EventType = "session_opened"
	EventSessionClosed  EventType = "session_closed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID, actor string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Issue      string `json:"issue"`
	AssignedTo string `json:"assigned_to,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Attachment string `json:"attachment,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []string            `json:"fields"`
	Status domain.TicketStatus `json:"status,omitempty"`
}

// TicketAcceptedPayload payload.
type TicketAcceptedPayload struct {
	Level  domain.Level `json:"level"`
	Rating float64      `json:"rating"`
	Notes  string       `json:"notes,omitempty"`
}

// SessionPayload payload.
type SessionPayload struct {
	Remember bool `json:"remember,omitempty"`
}
