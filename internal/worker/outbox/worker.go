package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderview/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/spf13/viper"
)

type publisher interface {
	Publish(exchange, routingKey, contentType string, body []byte) error
}

// Worker relays order events from the outbox table to RabbitMQ.
type Worker struct {
	outboxRepo    ioutboxrepo.IOutboxRelay
	publisher     publisher
	metrics       *metrics.Metrics
	pollInterval  time.Duration
	batchSize     int
	retryInterval time.Duration
	now           func() time.Time
	stopCh        chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRelay,
	publisher publisher,
	m *metrics.Metrics,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	if m == nil {
		m = metrics.NewUnregistered()
	}

	return &Worker{
		outboxRepo:    outboxRepo,
		publisher:     publisher,
		metrics:       m,
		pollInterval:  time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:     batchSize,
		retryInterval: time.Duration(retryIntervalSeconds) * time.Second,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages publishes one batch of due order events.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending order events", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Relaying order events", "count", len(messages))

	for _, msg := range messages {
		w.relay(ctx, msg)
	}
}

func (w *Worker) relay(ctx context.Context, msg outbox.OutboxMessage) {
	log := slog.With("outbox_id", msg.ID, "order_id", msg.OrderID, "event", msg.RoutingKey)

	if err := w.publisher.Publish(msg.ExchangeName, msg.RoutingKey, msg.ContentType, msg.Payload); err != nil {
		attempts := msg.RetryCount + 1
		nextRetryAt := w.now().Add(w.backoff(attempts))

		log.Warn("Failed to publish order event, will retry",
			"retry_count", attempts,
			"next_retry", nextRetryAt,
			"error", err,
		)
		w.metrics.OutboxEvents.WithLabelValues("retry").Inc()

		if attempts >= msg.MaxRetries {
			log.Error("Order event exhausted its retries")
			w.metrics.OutboxEvents.WithLabelValues("exhausted").Inc()
		}

		if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, attempts, err.Error(), nextRetryAt); err != nil {
			log.Error("Failed to reschedule order event", "error", err)
		}

		return
	}

	w.metrics.OutboxEvents.WithLabelValues("published").Inc()
	if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
		log.Error("Failed to delete published order event", "error", err)

		return
	}

	log.Debug("Order event published")
}

// backoff doubles the retry interval with every failed attempt.
func (w *Worker) backoff(attempts int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempts-1))) * w.retryInterval
}
