package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/mail.v2"
)

type smtpClient struct {
	dialer *mail.Dialer
	config Config
}

// NewSMTPClient creates an SMTP-backed email sender, intended for staging
// environments or self-hosted relays where Postmark is not available.
func NewSMTPClient(cfg Config) (EmailSender, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%w: SMTPHost is required", ErrInvalidConfig)
	}
	if cfg.SMTPPort <= 0 {
		return nil, fmt.Errorf("%w: SMTPPort must be positive", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}

	return &smtpClient{
		dialer: mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		config: cfg,
	}, nil
}

// SendEmail implements EmailSender over SMTP. The context is honored up to
// the point of dialing; gomail itself does not support cancellation mid-send.
func (c *smtpClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", c.config.SenderEmail)
	msg.SetHeader("To", params.SendTo)
	msg.SetHeader("Subject", params.Subject)
	if c.config.SupportEmail != "" {
		msg.SetHeader("Reply-To", c.config.SupportEmail)
	}
	msg.SetBody("text/html", params.BodyHTML)

	if err := c.dialer.DialAndSend(msg); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
