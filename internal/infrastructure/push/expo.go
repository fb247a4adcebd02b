// Package push delivers mobile push notifications through the Expo
// push HTTP API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

const defaultEndpoint = "https://exp.host/--/api/v2/push/send"

type ExpoSender struct {
	endpoint string
	client   *http.Client
	log      logger.Logger
}

func NewExpoSender(endpoint string, log logger.Logger) *ExpoSender {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &ExpoSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

type pushMessage struct {
	To    string                 `json:"to"`
	Sound string                 `json:"sound"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type pushTicket struct {
	Status  string `json:"status"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type pushResponse struct {
	Data []pushTicket `json:"data"`
}

// Send pushes the event to every token and returns the tokens the
// provider reported as no longer registered, so the caller can strip
// them.
func (s *ExpoSender) Send(ctx context.Context, tokens []string, event *domain.NotificationEvent) ([]string, error) {
	messages := make([]pushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, pushMessage{
			To:    token,
			Sound: "default",
			Title: event.Title,
			Body:  event.Message,
			Data: map[string]interface{}{
				"type":       string(event.Type),
				"auction_id": event.AuctionID,
			},
		})
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	// Tickets come back in request order.
	var invalid []string
	for i, ticket := range parsed.Data {
		if i >= len(tokens) {
			break
		}
		if ticket.Status == "error" && ticket.Details.Error == "DeviceNotRegistered" {
			invalid = append(invalid, tokens[i])
		}
	}
	return invalid, nil
}
