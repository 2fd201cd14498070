package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-relay/internal/domain"
)

// maxSolverSuggestions caps the "who can solve this" suggestions.
const maxSolverSuggestions = 10

// Views are the four ticket lists the dashboard is built from.
type Views struct {
	Raised           []domain.Ticket
	Assigned         []domain.Ticket
	Self             []domain.Ticket
	ReportingManager []domain.Ticket
}

// Row is a ticket decorated for display.
type Row struct {
	domain.Ticket
	Deadline    DeadlineStatus `json:"deadline"`
	Level       string         `json:"level"`
	LatestNotes string         `json:"latest_notes,omitempty"`
}

// Board is the dashboard view model.
type Board struct {
	User             string         `json:"user"`
	Raised           []Row          `json:"raised"`
	Assigned         []Row          `json:"assigned"`
	Self             []Row          `json:"self"`
	ReportingManager []Row          `json:"reporting_manager"`
	Archived         []Row          `json:"archived"`
	Counts           map[string]int `json:"counts"`
	Solvers          []string       `json:"solvers"`
}

// Build partitions views into tabs. Open tabs drop accepted tickets and
// list newest creation first; the archive holds accepted tickets from the
// user's own views, newest acceptance first.
func Build(user string, views Views, now time.Time) Board {
	board := Board{
		User:             user,
		Raised:           openRows(views.Raised, now),
		Assigned:         openRows(views.Assigned, now),
		Self:             openRows(views.Self, now),
		ReportingManager: openRows(views.ReportingManager, now),
	}

	own := domain.MergeTickets(views.Raised, views.Assigned, views.Self)
	var archived []domain.Ticket
	for _, t := range own {
		if t.Status == domain.TicketStatusAccepted {
			archived = append(archived, t)
		}
	}
	sort.SliceStable(archived, func(i, j int) bool {
		return acceptedAt(archived[i]).After(acceptedAt(archived[j]))
	})
	board.Archived = rows(archived, now)

	board.Counts = map[string]int{
		"raised":            len(board.Raised),
		"assigned":          len(board.Assigned),
		"self":              len(board.Self),
		"reporting_manager": len(board.ReportingManager),
		"archived":          len(board.Archived),
	}
	board.Solvers = Solvers(user, views.Raised, views.Assigned, views.Self)
	return board
}

// Solvers suggests up to ten distinct people who solved or were asked to
// solve the user's tickets, excluding the user.
func Solvers(user string, batches ...[]domain.Ticket) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, batch := range batches {
		for _, t := range batch {
			for _, candidate := range []string{t.AssignedTo, t.WhoCanSolve} {
				candidate = strings.TrimSpace(candidate)
				if candidate == "" || candidate == user || seen[candidate] {
					continue
				}
				seen[candidate] = true
				out = append(out, candidate)
				if len(out) == maxSolverSuggestions {
					return out
				}
			}
		}
	}
	return out
}

func openRows(tickets []domain.Ticket, now time.Time) []Row {
	open := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status != domain.TicketStatusAccepted {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		return createdAt(open[i]).After(createdAt(open[j]))
	})
	return rows(open, now)
}

func rows(tickets []domain.Ticket, now time.Time) []Row {
	out := make([]Row, 0, len(tickets))
	for _, t := range tickets {
		level := domain.NoRating
		if rating, ok := t.LatestRating(); ok {
			level = domain.DisplayRating(domain.Score(rating))
		}
		out = append(out, Row{
			Ticket:      t,
			Deadline:    Deadline(t, now),
			Level:       level,
			LatestNotes: t.LatestNotes(),
		})
	}
	return out
}

func createdAt(t domain.Ticket) time.Time {
	if ts := domain.ParseTimestamp(t.Creation); !ts.IsZero() {
		return ts
	}
	return domain.ParseTimestamp(t.StatusUpdatedAt)
}

func acceptedAt(t domain.Ticket) time.Time {
	if entry, ok := t.AcceptedEntry(); ok {
		if ts := entry.Time(); !ts.IsZero() {
			return ts
		}
	}
	return createdAt(t)
}
