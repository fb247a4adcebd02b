package services

import (
	"context"
	"time"

	"github.com/viney-shih/goroutines"

	"auction-engine/internal/domain"
	"auction-engine/internal/metrics"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

const (
	deliveryTimeout = 10 * time.Second

	// scheduleTimeout bounds how long Dispatch waits for a queue slot.
	// A saturated pool drops the event rather than stalling the caller.
	scheduleTimeout = 50 * time.Millisecond
)

// Dispatcher fans a notification event out to its channels: durable
// in-app record, live websocket push, mobile push, and the external
// notifier for high-value events. Dispatch never blocks the caller;
// delivery runs on a worker pool and each channel's failure is logged
// and isolated from the others.
type Dispatcher struct {
	pool          *goroutines.Pool
	notifications domain.NotificationRepository
	registry      domain.ConnectionRegistry
	tokens        domain.DeviceTokenRepository
	push          domain.PushSender
	external      domain.ExternalNotifier
	publisher     domain.EventPublisher
	instanceID    string
	metrics       *metrics.Metrics
	log           logger.Logger
}

type DispatcherConfig struct {
	Workers    int
	QueueSize  int
	InstanceID string
}

func NewDispatcher(
	cfg DispatcherConfig,
	notifications domain.NotificationRepository,
	registry domain.ConnectionRegistry,
	tokens domain.DeviceTokenRepository,
	push domain.PushSender,
	external domain.ExternalNotifier,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	log logger.Logger,
) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Dispatcher{
		pool:          goroutines.NewPool(cfg.Workers, goroutines.WithTaskQueueLength(cfg.QueueSize)),
		notifications: notifications,
		registry:      registry,
		tokens:        tokens,
		push:          push,
		external:      external,
		publisher:     publisher,
		instanceID:    cfg.InstanceID,
		metrics:       m,
		log:           log,
	}
}

// Dispatch schedules delivery and returns immediately. Delivery is
// best-effort: when the pool's queue stays full past scheduleTimeout
// the event is dropped and counted, never blocking the caller's
// bid/resolution path.
func (d *Dispatcher) Dispatch(event *domain.NotificationEvent) {
	if err := d.pool.ScheduleWithTimeout(scheduleTimeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		d.deliver(ctx, event)
	}); err != nil {
		d.metrics.Dispatches.WithLabelValues("queue", "dropped").Inc()
		d.log.Error("Failed to schedule notification delivery",
			"user_id", event.UserID, "type", event.Type, "error", err)
	}
}

// Close drains the worker pool. Pending deliveries finish; new ones
// are rejected.
func (d *Dispatcher) Close() {
	d.pool.Release()
}

func (d *Dispatcher) deliver(ctx context.Context, event *domain.NotificationEvent) {
	d.persist(ctx, event)
	d.pushLive(ctx, event)
	d.pushMobile(ctx, event)
	if event.HighValue() {
		d.sendExternal(ctx, event)
	}
}

func (d *Dispatcher) persist(ctx context.Context, event *domain.NotificationEvent) {
	n := &domain.Notification{
		ID:        utils.GenerateID("ntf"),
		UserID:    event.UserID,
		AuctionID: event.AuctionID,
		Type:      event.Type,
		Title:     event.Title,
		Message:   event.Message,
		CreatedAt: event.CreatedAt,
	}
	if err := d.notifications.Save(ctx, n); err != nil {
		d.channelFailed("persist", event, err)
		return
	}
	d.metrics.Dispatches.WithLabelValues("persist", "ok").Inc()
}

func (d *Dispatcher) pushLive(ctx context.Context, event *domain.NotificationEvent) {
	if err := d.registry.NotifyUser(event.UserID, event); err != nil {
		d.channelFailed("live", event, err)
	} else {
		d.metrics.Dispatches.WithLabelValues("live", "ok").Inc()
	}

	// Other instances deliver to their own live connections via the
	// shared event bus.
	if d.publisher != nil {
		env := &domain.EventEnvelope{Origin: d.instanceID, Event: event}
		if err := d.publisher.PublishNotification(ctx, env); err != nil {
			d.channelFailed("bus", event, err)
		}
	}
}

func (d *Dispatcher) pushMobile(ctx context.Context, event *domain.NotificationEvent) {
	tokens, err := d.tokens.ListByUser(ctx, event.UserID)
	if err != nil {
		d.channelFailed("mobile", event, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	invalid, err := d.push.Send(ctx, tokens, event)
	if err != nil {
		d.channelFailed("mobile", event, err)
		return
	}
	d.metrics.Dispatches.WithLabelValues("mobile", "ok").Inc()

	// Strip tokens the provider reported dead so they are not retried.
	for _, token := range invalid {
		if err := d.tokens.Remove(ctx, event.UserID, token); err != nil {
			d.log.Error("Failed to remove invalid push token",
				"user_id", event.UserID, "error", err)
		}
	}
}

func (d *Dispatcher) sendExternal(ctx context.Context, event *domain.NotificationEvent) {
	if d.external == nil {
		return
	}
	if err := d.external.SendMessage(ctx, event.UserID, event); err != nil {
		d.channelFailed("external", event, err)
		return
	}
	d.metrics.Dispatches.WithLabelValues("external", "ok").Inc()
}

func (d *Dispatcher) channelFailed(channel string, event *domain.NotificationEvent, err error) {
	d.metrics.Dispatches.WithLabelValues(channel, "failed").Inc()
	d.log.Error("Notification channel delivery failed",
		"channel", channel, "user_id", event.UserID,
		"type", event.Type, "auction_id", event.AuctionID, "error", err)
}

// HandleBusEvent forwards an envelope from the shared event bus to this
// instance's live connections, skipping its own publications.
func (d *Dispatcher) HandleBusEvent(env *domain.EventEnvelope) error {
	if env.Origin == d.instanceID || env.Event == nil {
		return nil
	}
	if err := d.registry.NotifyUser(env.Event.UserID, env.Event); err != nil {
		d.channelFailed("live", env.Event, err)
	}
	return nil
}
