// Package notify delivers outbound email notifications. All sends are
// best-effort: callers log failures and never propagate them to the
// triggering mutation.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/subtrack-hq/subtrack/internal/models"
)

// Message is a structured notification payload.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers notification messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NopSender drops all messages. Used when SMTP is not configured.
type NopSender struct{}

// Send discards the message.
func (NopSender) Send(_ context.Context, _ Message) error { return nil }

// RenewalReminder builds the renewal reminder for a subscription owner.
func RenewalReminder(sub *models.Subscription) Message {
	return Message{
		To:      sub.OwnerEmail,
		Subject: fmt.Sprintf("Renewal reminder: %s (%s)", sub.Name, sub.ReferenceNumber),
		Body: fmt.Sprintf(
			"The subscription %s (%s) renews on %s.\n\nCost per %s cycle: %.2f.\n",
			sub.Name, sub.ReferenceNumber,
			sub.NextRenewalDate.Format("2006-01-02"),
			sub.BillingCycle, sub.Cost,
		),
	}
}

// RequestApproved builds the approval notice for the requester.
func RequestApproved(req *models.SubscriptionRequest, sub *models.Subscription) Message {
	return Message{
		To:      req.RequesterEmail,
		Subject: fmt.Sprintf("Request approved: %s (%s)", req.Name, req.ReferenceNumber),
		Body: fmt.Sprintf(
			"Your subscription request %s for %s was approved.\n\nSubscription reference: %s\nNext renewal: %s\n",
			req.ReferenceNumber, req.Name,
			sub.ReferenceNumber, sub.NextRenewalDate.Format("2006-01-02"),
		),
	}
}

// RequestRejected builds the rejection notice for the requester.
func RequestRejected(req *models.SubscriptionRequest, reason string) Message {
	return Message{
		To:      req.RequesterEmail,
		Subject: fmt.Sprintf("Request rejected: %s (%s)", req.Name, req.ReferenceNumber),
		Body: fmt.Sprintf(
			"Your subscription request %s for %s was rejected.\n\nReason: %s\n",
			req.ReferenceNumber, req.Name, reason,
		),
	}
}

// NewRequestAlert builds the new-request alert for the admin.
func NewRequestAlert(req *models.SubscriptionRequest, adminTo string) Message {
	return Message{
		To:      adminTo,
		Subject: fmt.Sprintf("New subscription request: %s (%s)", req.Name, req.ReferenceNumber),
		Body: fmt.Sprintf(
			"%s <%s> requested %s on %s.\n\nJustification: %s\n",
			req.RequesterName, req.RequesterEmail, req.Name,
			req.CreatedAt.Format(time.RFC1123), req.Justification,
		),
	}
}
