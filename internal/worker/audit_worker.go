package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/events"
	"github.com/spec-kit/ticket-relay/internal/repository"
)

// StartAuditWorker records every dispatched event in the audit log. It
// returns nil when no repository is configured.
func StartAuditWorker(dispatcher events.Dispatcher, audit repository.AuditRepository, logger *zap.Logger) *EventWorker {
	if dispatcher == nil || audit == nil {
		return nil
	}
	w := newEventWorker("audit", 256, func(ctx context.Context, event events.Event) error {
		entry, err := AuditEntry(event)
		if err != nil {
			return err
		}
		return audit.Create(ctx, entry)
	}, logger)
	w.subscribe(dispatcher)
	return w
}

// AuditEntry converts an event into its audit row.
func AuditEntry(event events.Event) (*domain.AuditEntry, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}
	return &domain.AuditEntry{
		ID:         event.ID,
		EventType:  string(event.Type),
		TicketName: event.TicketID,
		Actor:      event.Actor,
		Payload:    payload,
		OccurredAt: event.Timestamp,
	}, nil
}
