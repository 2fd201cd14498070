package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/ticket-relay/internal/domain"
)

// Deadline classes.
const (
	ClassOverdue         = "overdue"
	ClassUrgent          = "urgent"
	ClassNormal          = "normal"
	ClassCompletedEarly  = "completed-early"
	ClassCompletedOnTime = "completed-ontime"
	ClassCompletedLate   = "completed-late"
	ClassNone            = "none"
)

// urgentDays is the largest number of remaining days still shown as urgent.
const urgentDays = 3

// DeadlineStatus is the badge shown next to a ticket.
type DeadlineStatus struct {
	Class string `json:"class"`
	Text  string `json:"text"`
	Days  int    `json:"days"`
}

// Deadline classifies ticket against its needed-by date. Open tickets are
// compared with now; accepted tickets with the time they were last updated.
func Deadline(ticket domain.Ticket, now time.Time) DeadlineStatus {
	expected, err := time.ParseInLocation(domain.DateLayout, ticket.NeededBy, now.Location())
	if err != nil {
		return DeadlineStatus{Class: ClassNone, Text: "No deadline"}
	}

	if ticket.Status == domain.TicketStatusAccepted {
		completed := domain.ParseTimestamp(ticket.StatusUpdatedAt)
		if completed.IsZero() {
			completed = now
		}
		days := ceilDays(expected.Sub(completed))
		switch {
		case days > 0:
			return DeadlineStatus{Class: ClassCompletedEarly, Days: days,
				Text: fmt.Sprintf("Done %d %s before expected", days, dayWord(days))}
		case days == 0:
			return DeadlineStatus{Class: ClassCompletedOnTime, Text: "Done within timeframe"}
		default:
			return DeadlineStatus{Class: ClassCompletedLate, Days: days,
				Text: fmt.Sprintf("Delayed by %d %s", -days, dayWord(-days))}
		}
	}

	days := ceilDays(expected.Sub(now))
	switch {
	case days < 0:
		return DeadlineStatus{Class: ClassOverdue, Days: days,
			Text: fmt.Sprintf("%d %s overdue", -days, dayWord(-days))}
	case days <= urgentDays:
		return DeadlineStatus{Class: ClassUrgent, Days: days,
			Text: fmt.Sprintf("%d %s left", days, dayWord(days))}
	default:
		return DeadlineStatus{Class: ClassNormal, Days: days, Text: fmt.Sprintf("%d days left", days)}
	}
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func dayWord(n int) string {
	if n > 1 {
		return "days"
	}
	return "day"
}
