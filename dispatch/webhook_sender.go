package dispatch

import (
	"context"
	"fmt"

	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/webhook"
)

// MetadataWebhookURLKey is the metadata field carrying the target endpoint.
const MetadataWebhookURLKey = "webhook_url"

// WebhookSender delivers notifications as signed JSON POSTs to a per-recipient
// endpoint taken from the notification's metadata.
type WebhookSender struct {
	sender *webhook.Sender
}

// NewWebhookSender wraps a webhook sender as a channel sender.
func NewWebhookSender(sender *webhook.Sender) *WebhookSender {
	return &WebhookSender{sender: sender}
}

type webhookPayload struct {
	ID            string            `json:"id"`
	RecipientID   string            `json:"recipient_id"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Category      string            `json:"category,omitempty"`
	Priority      string            `json:"priority"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (s *WebhookSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	url := n.Metadata[MetadataWebhookURLKey]
	if url == "" {
		return "", fmt.Errorf("%w: metadata %q is empty", ErrMissingAddress, MetadataWebhookURLKey)
	}

	deliveryID, err := s.sender.Send(ctx, url, webhookPayload{
		ID:            n.ID,
		RecipientID:   n.RecipientID,
		Title:         n.Title,
		Body:          n.Body,
		Category:      n.Category,
		Priority:      string(n.Priority),
		CorrelationID: n.CorrelationID,
		Metadata:      n.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if deliveryID == "" {
		deliveryID = "webhook-" + n.ID
	}
	return deliveryID, nil
}
