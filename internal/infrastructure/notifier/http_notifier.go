// Package notifier is the client for the external messaging
// collaborator (email / WhatsApp). Wire formats are the collaborator's
// concern; the engine only hands over the event payload.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/domain"
)

type HTTPNotifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPNotifier(endpoint, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type messageRequest struct {
	UserID  string  `json:"user_id"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Amount  float64 `json:"amount,omitempty"`
}

func (n *HTTPNotifier) SendMessage(ctx context.Context, userID string, event *domain.NotificationEvent) error {
	body, err := json.Marshal(messageRequest{
		UserID:  userID,
		Type:    string(event.Type),
		Title:   event.Title,
		Message: event.Message,
		Amount:  event.Amount,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notifier returned status %d for user %s", resp.StatusCode, userID)
	}
	return nil
}
