package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (m *memoryAudit) Create(_ context.Context, entry *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudit) ListByTicket(_ context.Context, name string, _ int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range m.entries {
		if e.TicketName == name {
			out = append(out, *e)
		}
	}
	return out, nil
}

func TestAuditEntryFromEvent(t *testing.T) {
	event := events.New(events.EventTicketAccepted, "REQ-1", "carol",
		events.TicketAcceptedPayload{Level: domain.LevelL4, Rating: 0.8})

	entry, err := AuditEntry(event)
	if err != nil {
		t.Fatalf("AuditEntry: %v", err)
	}
	if entry.ID != event.ID || entry.EventType != "ticket_accepted" || entry.TicketName != "REQ-1" || entry.Actor != "carol" {
		t.Fatalf("entry = %+v", entry)
	}
	var payload map[string]any
	if err := json.Unmarshal(entry.Payload, &payload); err != nil || payload["level"] != "L4" {
		t.Fatalf("payload = %s, %v", entry.Payload, err)
	}
}

func TestAuditWorkerRecordsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	audit := &memoryAudit{}
	w := StartAuditWorker(dispatcher, audit, nil)

	ctx := context.Background()
	_ = dispatcher.Publish(ctx, events.New(events.EventTicketCreated, "REQ-1", "alice", events.TicketCreatedPayload{Issue: "x"}))
	_ = dispatcher.Publish(ctx, events.New(events.EventSessionOpened, "", "alice", events.SessionPayload{}))
	w.Stop()

	if len(audit.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(audit.entries))
	}

	// Events after Stop are dropped without panicking.
	if err := dispatcher.Publish(ctx, events.New(events.EventTicketUpdated, "REQ-1", "bob", nil)); err != nil {
		t.Fatalf("publish after stop: %v", err)
	}
	w.Stop()
}

func TestStartAuditWorkerWithoutRepository(t *testing.T) {
	if w := StartAuditWorker(events.NewInMemoryDispatcher(), nil, nil); w != nil {
		t.Fatalf("worker started without a repository")
	}
	var w *EventWorker
	w.Stop()
}
