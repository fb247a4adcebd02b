package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

const notificationChannel = "notification_events"

// EventPublisher puts notification envelopes on the shared pub/sub
// channel so every instance can serve its own live connections.
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) PublishNotification(ctx context.Context, env *domain.EventEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, notificationChannel, payload).Err()
}

type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{client: client, log: log}
}

// Subscribe blocks until the context is cancelled, feeding every
// decoded envelope to the handler. Malformed payloads and handler
// errors are logged and skipped.
func (s *EventSubscriber) Subscribe(ctx context.Context, handler func(env *domain.EventEnvelope) error) error {
	pubsub := s.client.Subscribe(ctx, notificationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	s.log.Info("Subscribed to notification events")

	for {
		select {
		case msg := <-ch:
			var env domain.EventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.log.Error("Failed to decode event envelope", "payload", msg.Payload, "error", err)
				continue
			}
			if err := handler(&env); err != nil {
				s.log.Error("Failed to handle bus event", "origin", env.Origin, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}
