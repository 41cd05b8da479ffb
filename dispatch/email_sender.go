package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/email"
)

// MetadataEmailKey is the metadata field carrying the recipient's address.
const MetadataEmailKey = "email"

// EmailSender delivers notifications through an email provider.
type EmailSender struct {
	mailer email.EmailSender
}

// NewEmailSender wraps an email provider as a channel sender.
func NewEmailSender(mailer email.EmailSender) *EmailSender {
	return &EmailSender{mailer: mailer}
}

// Send delivers the notification body as an HTML email. The address comes
// from the "email" metadata field. Email providers report message IDs out of
// band, so a locally generated reference is returned.
func (s *EmailSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	address := n.Metadata[MetadataEmailKey]
	if address == "" {
		return "", fmt.Errorf("%w: metadata %q is empty", ErrMissingAddress, MetadataEmailKey)
	}

	body := n.Body
	if body == "" {
		body = n.Title
	}

	err := s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   address,
		Subject:  n.Title,
		BodyHTML: body,
		Tag:      n.Category,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return "email-" + uuid.New().String(), nil
}
