package domain

import "fmt"

// TicketView selects which tickets a list query returns.
type TicketView string

const (
	ViewRaised           TicketView = "raised"
	ViewAssigned         TicketView = "assigned"
	ViewSelf             TicketView = "self"
	ViewReportingManager TicketView = "reporting_manager"
)

// ParseTicketView validates a view name.
func ParseTicketView(value string) (TicketView, error) {
	switch v := TicketView(value); v {
	case ViewRaised, ViewAssigned, ViewSelf, ViewReportingManager:
		return v, nil
	}
	return "", fmt.Errorf("unknown ticket view %q", value)
}
