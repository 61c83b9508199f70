package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"coachpoint/checkin-app/internal/domain"
)

// ResendNotifier sends reminder emails via the Resend API.
type ResendNotifier struct {
	client *resend.Client
	from   string
}

// NewResendNotifier creates a notifier with the given API key and sender
// address.
func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send delivers one milestone email.
func (s *ResendNotifier) Send(ctx context.Context, n Notification) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{n.Recipient},
		Subject: n.Subject(),
		Html:    renderBody(n),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("reminder_send_failed",
			"error", err,
			"assignment", n.AssignmentID,
			"milestone", n.Milestone,
		)
		return fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("reminder_sent",
		"message_id", sent.Id,
		"assignment", n.AssignmentID,
		"milestone", n.Milestone,
		"to", n.Recipient,
	)
	return nil
}

func renderBody(n Notification) string {
	closes := n.ClosesAt.Format("Monday, Jan 2 at 15:04 MST")
	switch n.Milestone {
	case domain.MilestoneClosing24h:
		return fmt.Sprintf("<p>Hi %s,</p><p>Your check-in window closes on %s. Take a few minutes to fill it in while it's fresh.</p>", n.ClientName, closes)
	case domain.MilestoneClosing1h:
		return fmt.Sprintf("<p>Hi %s,</p><p>Your check-in window closes at %s, in about an hour.</p>", n.ClientName, closes)
	case domain.MilestoneClosed2h:
		return fmt.Sprintf("<p>Hi %s,</p><p>Your check-in window closed on %s without a submission. Your coach has been notified; you can still reach out to them directly.</p>", n.ClientName, closes)
	default:
		return fmt.Sprintf("<p>Hi %s,</p><p>You have a check-in due by %s.</p>", n.ClientName, closes)
	}
}
