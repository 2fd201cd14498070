package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
)

func TestDashboardBuildFromMockBackend(t *testing.T) {
	fixtures, err := backend.LoadFixtures("")
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	now := func() time.Time { return time.Date(2026, 1, 8, 12, 0, 0, 0, time.Local) }
	queries := NewTicketQueryService(TicketQueryDependencies{API: backend.NewMock(fixtures), Now: now})
	svc := NewDashboardService(queries, now, nil)

	result, err := svc.Build(context.Background(), "sid=abc", "carol@example.com")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Partial {
		t.Fatalf("unexpected partial dashboard: %v", result.Failures)
	}
	if len(result.ReportingManager) != 2 {
		t.Fatalf("reporting manager tab = %+v", result.ReportingManager)
	}
	if len(result.Raised) != 0 || len(result.Archived) != 1 || result.Archived[0].Name != "REQ-0003" {
		t.Fatalf("raised = %+v archived = %+v", result.Raised, result.Archived)
	}
	if result.Rating.Level != domain.NoRating {
		t.Fatalf("rating = %+v", result.Rating)
	}
}

func TestDashboardDegradesAndFails(t *testing.T) {
	down := &backend.TransportError{Op: "list_tickets", Err: errors.New("refused")}
	fake := &fakeBackend{
		lists: map[string][]domain.Ticket{"raised_by=alice": {{Name: "t1", Status: domain.TicketStatusCreated}}},
		listErrs: map[string]error{
			"assigned_to_user=alice&raised_by!=alice": down,
		},
	}
	svc := NewDashboardService(NewTicketQueryService(TicketQueryDependencies{API: fake}), nil, nil)

	result, err := svc.Build(context.Background(), "sid=abc", "alice")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !result.Partial || len(result.Raised) != 1 || len(result.Assigned) != 0 {
		t.Fatalf("result = %+v", result)
	}

	all := map[string]error{
		"raised_by=alice":                         down,
		"assigned_to_user=alice&raised_by!=alice": down,
		"raised_by=alice&assigned_to_user=alice":  down,
		"reporting_manager_user=alice":            down,
		"assigned_to_user=alice&status=Accepted":  down,
	}
	fake = &fakeBackend{listErrs: all}
	svc = NewDashboardService(NewTicketQueryService(TicketQueryDependencies{API: fake}), nil, nil)
	if _, err := svc.Build(context.Background(), "sid=abc", "alice"); !errors.Is(err, backend.ErrUnreachable) {
		t.Fatalf("err = %v, want unreachable", err)
	}
}
