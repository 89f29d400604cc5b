package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// OutboxMessage is an order event waiting to be published to RabbitMQ.
// Field order matches the order_outbox columns.
type OutboxMessage struct {
	ID           int64
	OrderID      string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// OrderEvent is published when an order is paid or delivered.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewOrderEventMessage wraps event into an outbox message routed by its type.
func NewOrderEventMessage(exchange string, maxRetries int, event OrderEvent) (OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	return OutboxMessage{
		OrderID:      event.OrderID,
		ExchangeName: exchange,
		RoutingKey:   event.Type,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    event.OccurredAt,
		UpdatedAt:    event.OccurredAt,
		NextRetryAt:  event.OccurredAt,
	}, nil
}
