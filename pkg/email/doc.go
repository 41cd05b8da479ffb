// Package email provides a provider-agnostic interface for sending
// transactional emails with Postmark and SMTP implementations, plus a
// development sender that writes messages to disk.
//
// The package is built around the EmailSender interface, so providers can
// be swapped without changing calling code:
//
//	client, err := email.NewPostmarkClient(cfg)
//	if err != nil {
//		return err
//	}
//
//	err = client.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "user@example.com",
//		Subject:  "Welcome!",
//		BodyHTML: htmlContent,
//		Tag:      "welcome",
//	})
//
// All implementations validate parameters before sending and report
// failures via the package's sentinel errors, which can be checked with
// errors.Is:
//   - ErrInvalidConfig: provider configuration is incomplete
//   - ErrInvalidParams: email parameters failed validation
//   - ErrFailedToSendEmail: delivery failed
package email
