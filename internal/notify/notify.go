// Package notify delivers reminder notifications for check-in occurrences.
// The sweep treats delivery as at-least-once: the fired-set check in the
// scheduler, not the dispatcher, is the de-duplication point.
package notify

import (
	"context"
	"time"

	"coachpoint/checkin-app/internal/domain"
)

// Notification is one milestone event for one occurrence.
type Notification struct {
	Milestone    domain.Milestone
	AssignmentID string // Canonical occurrence id
	Recipient    string // Client email
	ClientName   string
	OpensAt      time.Time
	ClosesAt     time.Time
}

// Notifier sends a single milestone notification. Implementations must
// tolerate being called more than once for the same (assignment,
// milestone) pair under failure retry.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Subject returns the email subject line for the notification.
func (n Notification) Subject() string {
	switch n.Milestone {
	case domain.MilestoneClosing24h:
		return "Your check-in closes in 24 hours"
	case domain.MilestoneClosing1h:
		return "Last call: your check-in closes in 1 hour"
	case domain.MilestoneClosed2h:
		return "You missed this week's check-in"
	default:
		return "Check-in reminder"
	}
}
