package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/domain"
	"github.com/spec-kit/ticket-relay/internal/repository"
	"github.com/spec-kit/ticket-relay/internal/session"
	apperrors "github.com/spec-kit/ticket-relay/pkg/util/errorutil"
)

const (
	teamsCacheScope        = "teams"
	subordinatesCacheScope = "subordinates"
	ratingWindow           = 7 * 24 * time.Hour
)

// TicketQueryService answers the read side of the dashboard.
type TicketQueryService struct {
	api         backend.API
	cache       repository.DirectoryCache
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// TicketQueryDependencies bundles collaborators for the query service.
type TicketQueryDependencies struct {
	API         backend.API
	Cache       repository.DirectoryCache
	Concurrency int
	Now         func() time.Time
	Logger      *zap.Logger
}

// NewTicketQueryService constructs the service.
func NewTicketQueryService(deps TicketQueryDependencies) *TicketQueryService {
	s := &TicketQueryService{
		api:         deps.API,
		cache:       deps.Cache,
		concurrency: deps.Concurrency,
		now:         deps.Now,
		logger:      deps.Logger,
	}
	if s.cache == nil {
		s.cache = repository.NewDirectoryCache(nil, 0, nil)
	}
	if s.concurrency <= 0 {
		s.concurrency = 8
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// TicketList is the result of a list query. Partial is set when some
// sub-queries of an aggregated view failed; Failures names them.
type TicketList struct {
	Tickets  []domain.Ticket
	Partial  bool
	Failures []string
}

// List returns the tickets of view for user.
func (s *TicketQueryService) List(ctx context.Context, cred session.Credential, view domain.TicketView, user string) (*TicketList, error) {
	if strings.TrimSpace(user) == "" {
		return nil, apperrors.NewValidationError("user is required", nil)
	}
	if view == domain.ViewReportingManager {
		return s.reportingManager(ctx, cred, user)
	}
	filters, err := viewFilters(view, user)
	if err != nil {
		return nil, err
	}
	tickets, err := s.api.ListTickets(ctx, cred, filters, backend.TicketFields)
	if err != nil {
		return nil, err
	}
	return &TicketList{Tickets: tickets}, nil
}

func viewFilters(view domain.TicketView, user string) ([]backend.Filter, error) {
	switch view {
	case domain.ViewRaised:
		return []backend.Filter{backend.Eq("raised_by", user)}, nil
	case domain.ViewAssigned:
		return []backend.Filter{backend.Eq("assigned_to_user", user), backend.Ne("raised_by", user)}, nil
	case domain.ViewSelf:
		return []backend.Filter{backend.Eq("raised_by", user), backend.Eq("assigned_to_user", user)}, nil
	}
	return nil, apperrors.NewValidationError("unknown ticket view", map[string]any{"type": string(view)})
}

// reportingManager unions tickets tagged with user as reporting manager and
// tickets raised by user's subordinates. Sub-query failures degrade the
// result instead of failing it, unless nothing at all could be fetched.
func (s *TicketQueryService) reportingManager(ctx context.Context, cred session.Credential, user string) (*TicketList, error) {
	result := &TicketList{}

	subordinates, err := s.subordinates(ctx, cred, user)
	if err != nil {
		s.logger.Warn("subordinate lookup failed", zap.String("user", user), zap.Error(err))
		result.Failures = append(result.Failures, "subordinates: "+err.Error())
	}

	batches := make([][]domain.Ticket, len(subordinates)+1)
	errs := make([]error, len(subordinates)+1)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	g.Go(func() error {
		batches[0], errs[0] = s.api.ListTickets(ctx, cred,
			[]backend.Filter{backend.Eq(backend.ReportingManagerField, user)}, backend.TicketFields)
		return nil
	})
	for i, sub := range subordinates {
		g.Go(func() error {
			batches[i+1], errs[i+1] = s.api.ListTickets(ctx, cred,
				[]backend.Filter{backend.Eq("raised_by", sub)}, backend.TicketFields)
			return nil
		})
	}
	_ = g.Wait()

	subordinateResults := 0
	for i, batchErr := range errs {
		if batchErr == nil {
			if i > 0 {
				subordinateResults++
			}
			continue
		}
		label := "reporting_manager_user"
		if i > 0 {
			label = "raised_by " + subordinates[i-1]
		}
		s.logger.Warn("reporting manager sub-query failed", zap.String("query", label), zap.Error(batchErr))
		result.Failures = append(result.Failures, label+": "+batchErr.Error())
	}
	if errs[0] != nil && subordinateResults == 0 {
		return nil, errs[0]
	}

	result.Tickets = domain.MergeTickets(batches...)
	result.Partial = len(result.Failures) > 0
	return result, nil
}

func (s *TicketQueryService) subordinates(ctx context.Context, cred session.Credential, user string) ([]string, error) {
	scope := subordinatesCacheScope + ":" + user
	var ids []string
	if s.cache.Get(ctx, scope, cred, &ids) {
		return ids, nil
	}
	members, err := s.api.ListUsers(ctx, cred, []backend.Filter{backend.Eq(backend.ReportingManagerField, user)})
	if err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	s.cache.Put(ctx, scope, cred, ids)
	return ids, nil
}

// Get returns one ticket.
func (s *TicketQueryService) Get(ctx context.Context, cred session.Credential, name string) (*domain.Ticket, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	return s.api.GetTicket(ctx, cred, name)
}

// Attachments lists files stored against a ticket.
func (s *TicketQueryService) Attachments(ctx context.Context, cred session.Credential, name string) ([]domain.Attachment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	return s.api.ListAttachments(ctx, cred, name)
}

// Teams returns the user directory.
func (s *TicketQueryService) Teams(ctx context.Context, cred session.Credential) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	if s.cache.Get(ctx, teamsCacheScope, cred, &members) {
		return members, nil
	}
	members, err := s.api.ListUsers(ctx, cred, nil)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, teamsCacheScope, cred, members)
	return members, nil
}

// RatingSummary is a user's recent average rating on the 1..5 scale.
type RatingSummary struct {
	AvgRating float64 `json:"avgRating"`
	Level     string  `json:"level"`
}

// AverageRating averages the ratings user received on accepted tickets
// during the last seven days.
func (s *TicketQueryService) AverageRating(ctx context.Context, cred session.Credential, user string) (*RatingSummary, error) {
	if strings.TrimSpace(user) == "" {
		return nil, apperrors.NewValidationError("user is required", nil)
	}
	tickets, err := s.api.ListTickets(ctx, cred, []backend.Filter{
		backend.Eq("assigned_to_user", user),
		backend.Eq("status", string(domain.TicketStatusAccepted)),
	}, backend.RatingFields)
	if err != nil {
		return nil, err
	}
	avg := AverageRecentRating(tickets, s.now())
	return &RatingSummary{AvgRating: avg, Level: domain.DisplayRating(avg)}, nil
}

// AverageRecentRating averages every positive rating dated within the seven
// days before now, by calendar date. Ratings are converted to the 1..5 scale.
func AverageRecentRating(tickets []domain.Ticket, now time.Time) float64 {
	cutoff := now.Add(-ratingWindow).Format(domain.DateLayout)
	var sum float64
	var count int
	for _, ticket := range tickets {
		for _, entry := range ticket.History {
			if entry.Rating == nil || len(entry.UpdatedAt) < len(domain.DateLayout) {
				continue
			}
			if entry.UpdatedAt[:len(domain.DateLayout)] < cutoff {
				continue
			}
			score := domain.Score(*entry.Rating)
			if score <= 0 {
				continue
			}
			sum += score
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
