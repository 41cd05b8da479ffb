package dispatch

import "time"

// Config holds channel gateway settings.
type Config struct {
	SendTimeout time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"10s"` // SendTimeout bounds a single delivery attempt.

	SMSGatewayURL  string `env:"SMS_GATEWAY_URL"`
	SMSAPIKey      string `env:"SMS_API_KEY"`
	PushGatewayURL string `env:"PUSH_GATEWAY_URL"`
	PushAPIKey     string `env:"PUSH_API_KEY"`

	WebhookSigningSecret string `env:"WEBHOOK_SIGNING_SECRET"`
}
