package notify

import (
	"context"
	"log/slog"
)

// ConsoleNotifier logs reminders instead of delivering them. Default in
// development so the sweep can run without a mail provider.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (ConsoleNotifier) Send(_ context.Context, n Notification) error {
	slog.Info("reminder (console)",
		"assignment", n.AssignmentID,
		"milestone", n.Milestone,
		"to", n.Recipient,
		"closes_at", n.ClosesAt,
	)
	return nil
}
