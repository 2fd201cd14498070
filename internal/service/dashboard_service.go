package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-relay/internal/dashboard"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

// DashboardService assembles the dashboard from the four ticket views and
// the user's rating.
type DashboardService struct {
	queries *TicketQueryService
	now     func() time.Time
	logger  *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(queries *TicketQueryService, now func() time.Time, logger *zap.Logger) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{queries: queries, now: now, logger: logger}
}

// DashboardResult is the board plus rating and any degraded sub-queries.
type DashboardResult struct {
	dashboard.Board
	Rating   RatingSummary `json:"rating"`
	Partial  bool          `json:"partial"`
	Failures []string      `json:"failures,omitempty"`
}

// Build fans out the view and rating queries. A failed view leaves its tab
// empty and marks the result partial; the call fails only when every
// query failed.
func (s *DashboardService) Build(ctx context.Context, cred session.Credential, user string) (*DashboardResult, error) {
	if strings.TrimSpace(user) == "" {
		return nil, apperrors.NewValidationError("user is required", nil)
	}

	order := []domain.TicketView{domain.ViewRaised, domain.ViewAssigned, domain.ViewSelf, domain.ViewReportingManager}
	lists := make([]*TicketList, len(order))
	errs := make([]error, len(order)+1)
	var rating *RatingSummary

	var g errgroup.Group
	for i, view := range order {
		g.Go(func() error {
			lists[i], errs[i] = s.queries.List(ctx, cred, view, user)
			return nil
		})
	}
	g.Go(func() error {
		rating, errs[len(order)] = s.queries.AverageRating(ctx, cred, user)
		return nil
	})
	_ = g.Wait()

	result := &DashboardResult{Rating: RatingSummary{Level: domain.NoRating}}
	failed := 0
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		label := "rating"
		if i < len(order) {
			label = string(order[i])
		}
		s.logger.Warn("dashboard sub-query failed", zap.String("query", label), zap.Error(err))
		result.Failures = append(result.Failures, label+": "+err.Error())
	}
	if failed == len(errs) {
		return nil, firstErr
	}

	views := make([][]domain.Ticket, len(order))
	for i, list := range lists {
		if list == nil {
			continue
		}
		views[i] = list.Tickets
		result.Failures = append(result.Failures, list.Failures...)
	}
	if rating != nil {
		result.Rating = *rating
	}
	result.Board = dashboard.Build(user, dashboard.Views{
		Raised:           views[0],
		Assigned:         views[1],
		Self:             views[2],
		ReportingManager: views[3],
	}, s.now())
	result.Partial = len(result.Failures) > 0
	return result, nil
}
