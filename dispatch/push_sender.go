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

// MetadataDeviceTokenKey is the metadata field carrying the push device token.
const MetadataDeviceTokenKey = "device_token"

// PushSender delivers notifications through an HTTP push gateway.
type PushSender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

// NewPushSender creates a sender for the given gateway.
func NewPushSender(gatewayURL, apiKey string) (*PushSender, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("%w: gateway url is required", ErrInvalidConfig)
	}
	return &PushSender{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type pushRequest struct {
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Priority    string            `json:"priority,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	ID string `json:"id"`
}

func (s *PushSender) Send(ctx context.Context, n *notification.Notification) (string, error) {
	token := n.Metadata[MetadataDeviceTokenKey]
	if token == "" {
		return "", fmt.Errorf("%w: metadata %q is empty", ErrMissingAddress, MetadataDeviceTokenKey)
	}

	body, err := json.Marshal(pushRequest{
		DeviceToken: token,
		Title:       n.Title,
		Body:        n.Body,
		Priority:    string(n.Priority),
		Data:        map[string]string{"notification_id": n.ID, "category": n.Category},
	})
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

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.ID == "" {
		return "push-" + n.ID, nil
	}
	return out.ID, nil
}
