package backend

import (
	"context"
	"testing"

	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
)

func newTestMock(t *testing.T) *Mock {
	t.Helper()
	fixtures, err := LoadFixtures("")
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	return NewMock(fixtures)
}

func TestMockLoginAndIdentity(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	bad, err := m.Login(ctx, LoginForm{User: "alice@example.com", Password: "wrong"})
	if err != nil || bad.Status != 401 || bad.SID != "" {
		t.Fatalf("bad login = %+v, %v", bad, err)
	}

	res, err := m.Login(ctx, LoginForm{User: "alice@example.com", Password: "mock"})
	if err != nil || res.Status != 200 || res.SID == "" {
		t.Fatalf("login = %+v, %v", res, err)
	}
	user, err := m.LoggedUser(ctx, session.FromSID(res.SID))
	if err != nil || user != "alice@example.com" {
		t.Fatalf("LoggedUser = %q, %v", user, err)
	}

	if _, err := m.Logout(ctx, session.FromSID(res.SID)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	user, _ = m.LoggedUser(ctx, session.FromSID(res.SID))
	if user != domain.GuestUser {
		t.Fatalf("after logout user = %q", user)
	}
}

func TestMockFiltersAndMutations(t *testing.T) {
	m := newTestMock(t)
	ctx := context.Background()

	open, err := m.ListTickets(ctx, "", []Filter{Ne("status", "Accepted")}, nil)
	if err != nil || len(open) != 2 {
		t.Fatalf("open tickets = %d, %v", len(open), err)
	}

	created, err := m.CreateTicket(ctx, CreateTicketPayload{Issue: "new", RaisedBy: "bob@example.com", Status: domain.TicketStatusCreated})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	name := LegacyTicketName(created)
	if name != "REQ-0004" {
		t.Fatalf("created name = %q", name)
	}
	ticket, err := m.GetTicket(ctx, "", name)
	if err != nil || ticket.ReportingManager != "carol@example.com" {
		t.Fatalf("created ticket = %+v, %v", ticket, err)
	}

	if _, err := m.UpdateTicket(ctx, "", name, map[string]any{"notes": "triaged"}); err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	ticket, _ = m.GetTicket(ctx, "", name)
	if ticket.Notes != "triaged" || ticket.Issue != "new" {
		t.Fatalf("updated ticket = %+v", ticket)
	}

	if _, err := m.GetTicket(ctx, "", "REQ-9999"); !IsStatus(err, 404) {
		t.Fatalf("missing ticket err = %v", err)
	}

	subordinates, err := m.ListUsers(ctx, "", []Filter{Eq(ReportingManagerField, "carol@example.com")})
	if err != nil || len(subordinates) != 2 {
		t.Fatalf("subordinates = %+v, %v", subordinates, err)
	}

	reportee, err := m.Reportee(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("Reportee: %v", err)
	}
	tickets, err := LegacyTicketList(reportee)
	if err != nil || len(tickets) != 3 {
		t.Fatalf("reportee tickets = %d, %v", len(tickets), err)
	}
}
