package backend

import (
	"encoding/json"

	"github.com/spec-kit/ticket-relay/internal/domain"
)

// The automation webhooks have answered with several envelope shapes over
// time. This file is the only place those shapes are recognised.

// LegacyTicketName extracts the created ticket's name from a creation
// webhook answer. Shapes are tried in priority order:
// message.name, message.data.name, data.name, data.data.name, name.
func LegacyTicketName(payload json.RawMessage) string {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ""
	}
	paths := [][]string{
		{"message", "name"},
		{"message", "data", "name"},
		{"data", "name"},
		{"data", "data", "name"},
		{"name"},
	}
	for _, path := range paths {
		if name, ok := lookupString(doc, path); ok && name != "" {
			return name
		}
	}
	return ""
}

// LegacyTicketList normalises a ticket list answer: a bare array,
// {"data": [...]} or {"tickets": [...]}. Anything else is empty.
func LegacyTicketList(payload json.RawMessage) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := json.Unmarshal(payload, &tickets); err == nil {
		return nonNil(tickets), nil
	}
	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Tickets json.RawMessage `json:"tickets"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &DecodeError{Op: "legacy_ticket_list", Err: err}
	}
	for _, raw := range []json.RawMessage{envelope.Data, envelope.Tickets} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &tickets); err == nil {
			return nonNil(tickets), nil
		}
	}
	return []domain.Ticket{}, nil
}

func lookupString(doc any, path []string) (string, bool) {
	current := doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return s, ok
}

func nonNil(tickets []domain.Ticket) []domain.Ticket {
	if tickets == nil {
		return []domain.Ticket{}
	}
	return tickets
}
