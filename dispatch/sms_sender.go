package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studentsystem/notify/notification"
)

// MetadataPhoneKey is the metadata field carrying the recipient's phone number.
const MetadataPhoneKey = "phone"

// SMSSender delivers notifications through an HTTP SMS gateway that accepts
// a JSON POST and returns a message ID.
type SMSSender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

// NewSMSSender creates a sender for the given gateway.
func NewSMSSender(gatewayURL, apiKey string) (*SMSSender, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("%w: gateway url is required", ErrInvalidConfig)
	}
	return &SMSSender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type smsRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
}

func (s *SMSSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	phone := n.Metadata[MetadataPhoneKey]
	if phone == "" {
		return "", fmt.Errorf("%w: metadata %q is empty", ErrMissingAddress, MetadataPhoneKey)
	}

	text := n.Body
	if text == "" {
		text = n.Title
	}

	body, err := json.Marshal(smsRequest{To: phone, Text: text})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: gateway returned %d", ErrSendFailed, resp.StatusCode)
	}

	var out smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.MessageID == "" {
		// Some gateways return an empty body on success.
		return "sms-" + n.ID, nil
	}
	return out.MessageID, nil
}
