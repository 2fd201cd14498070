package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-relay/internal/domain"
)

// AuditRepository stores relay audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByTicket(ctx context.Context, ticketName string, limit int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO relay_audit (id, event_type, ticket_name, actor, payload, occurred_at)
        VALUES ($1,$2,NULLIF($3,''),$4,$5,$6)
        ON CONFLICT (id) DO NOTHING
        RETURNING recorded_at`
	payload := string(entry.Payload)
	if payload == "" {
		payload = "{}"
	}
	err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.EventType,
		entry.TicketName,
		entry.Actor,
		payload,
		entry.OccurredAt,
	).Scan(&entry.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketName string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id::text, event_type, COALESCE(ticket_name, ''), actor, payload::text, occurred_at, recorded_at
        FROM relay_audit WHERE ticket_name=$1 ORDER BY occurred_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditEntry{}
	for rows.Next() {
		var entry domain.AuditEntry
		var payload string
		if err := rows.Scan(
			&entry.ID,
			&entry.EventType,
			&entry.TicketName,
			&entry.Actor,
			&payload,
			&entry.OccurredAt,
			&entry.RecordedAt,
		); err != nil {
			return nil, err
		}
		entry.Payload = json.RawMessage(payload)
		result = append(result, entry)
	}
	return result, rows.Err()
}
