package domain

import (
	"sort"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusCreated    TicketStatus = "Created"
	TicketStatusInProgress TicketStatus = "In progress"
	TicketStatusCompleted  TicketStatus = "Completed"
	TicketStatusDiscarded  TicketStatus = "Discarded"
	TicketStatusAccepted   TicketStatus = "Accepted"
)

// Valid reports whether s is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusCreated, TicketStatusInProgress, TicketStatusCompleted, TicketStatusDiscarded, TicketStatusAccepted:
		return true
	}
	return false
}

// TimestampLayout is the backend's wall-clock timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the backend's date-only format.
const DateLayout = "2006-01-02"

// Ticket mirrors a backend "Request Tickets" document. JSON names follow the
// backend field names so the browser sees the same shape it always has.
type Ticket struct {
	Name             string        `json:"name"`
	RaisedBy         string        `json:"raised_by"`
	AssignedTo       string        `json:"assigned_to_user"`
	WhoCanSolve      string        `json:"who_can_solve_this,omitempty"`
	Issue            string        `json:"what_is_issueidea"`
	NeededBy         string        `json:"when_do_i_need_this_by"`
	Severity         string        `json:"severity_business_impact"`
	BusinessImpact   string        `json:"business_impact"`
	Creation         string        `json:"creation"`
	Status           TicketStatus  `json:"status"`
	Notes            string        `json:"notes"`
	StatusUpdatedAt  string        `json:"status_update_latest_time"`
	ReportingManager string        `json:"reporting_manager_user,omitempty"`
	Link             string        `json:"link,omitempty"`
	Attachment       string        `json:"attachment,omitempty"`
	History          []StatusEntry `json:"action_status"`
}

// StatusEntry is one append-only row of a ticket's status history.
type StatusEntry struct {
	Status    TicketStatus `json:"status"`
	Rating    *float64     `json:"rating,omitempty"`
	UpdatedAt string       `json:"status_update_latest_time"`
	UpdatedBy string       `json:"updated_by"`
	Notes     string       `json:"notes"`
}

// HasRating reports whether the entry carries a positive rating.
func (e StatusEntry) HasRating() bool {
	return e.Rating != nil && *e.Rating > 0
}

// Time parses UpdatedAt, returning the zero time when it is unparseable.
func (e StatusEntry) Time() time.Time {
	return ParseTimestamp(e.UpdatedAt)
}

// ParseTimestamp accepts the backend timestamp layout, optionally with
// fractional seconds, as well as RFC 3339 and bare dates.
func ParseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if len(value) > len(TimestampLayout) && value[len(TimestampLayout)] == '.' {
		value = value[:len(TimestampLayout)]
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339, DateLayout} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTimestamp renders t in the backend timestamp layout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SortHistory returns a copy of entries ordered newest first. The stored
// order is insertion order and is not guaranteed to be chronological.
func SortHistory(entries []StatusEntry) []StatusEntry {
	sorted := make([]StatusEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time().After(sorted[j].Time())
	})
	return sorted
}

// AcceptedEntry returns the newest Accepted entry, if any.
func (t *Ticket) AcceptedEntry() (StatusEntry, bool) {
	for _, entry := range SortHistory(t.History) {
		if entry.Status == TicketStatusAccepted {
			return entry, true
		}
	}
	return StatusEntry{}, false
}

// LatestRating returns the newest positive rating in the history.
func (t *Ticket) LatestRating() (float64, bool) {
	for _, entry := range SortHistory(t.History) {
		if entry.HasRating() {
			return *entry.Rating, true
		}
	}
	return 0, false
}

// LatestNotes prefers the accepted entry's notes, then the newest
// non-empty notes in the history.
func (t *Ticket) LatestNotes() string {
	if accepted, ok := t.AcceptedEntry(); ok && accepted.Notes != "" {
		return accepted.Notes
	}
	for _, entry := range SortHistory(t.History) {
		if entry.Notes != "" {
			return entry.Notes
		}
	}
	return ""
}
