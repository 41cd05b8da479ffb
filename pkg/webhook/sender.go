package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender delivers JSON payloads to webhook endpoints. Each Send is a single
// attempt; callers own the retry policy.
type Sender struct {
	client *http.Client
	secret string
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSigningSecret enables HMAC-SHA256 signing of outgoing payloads.
func WithSigningSecret(secret string) SenderOption {
	return func(s *Sender) {
		s.secret = secret
	}
}

// NewSender creates a webhook sender. The default client pools connections
// per endpoint and times out requests after 30 seconds.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send marshals data to JSON and POSTs it to webhookURL. It returns the
// delivery ID from the signature headers when signing is enabled, or an
// empty string otherwise. Non-2xx responses are reported as ErrDeliveryFailed.
func (s *Sender) Send(ctx context.Context, webhookURL string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validateURL(webhookURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var deliveryID string
	if s.secret != "" {
		sig, err := SignPayload(s.secret, payload)
		if err != nil {
			return "", err
		}
		for k, v := range sig.Headers() {
			req.Header.Set(k, v)
		}
		deliveryID = sig.ID
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: endpoint returned %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return deliveryID, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}
