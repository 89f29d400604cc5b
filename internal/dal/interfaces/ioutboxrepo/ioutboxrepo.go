package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/outbox"
)

// IOutboxWriter stores order events inside the transaction that changed the order.
type IOutboxWriter interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error
}

// IOutboxRelay is the side of the outbox the publishing worker drains.
type IOutboxRelay interface {
	// GetPendingMessages returns up to limit messages whose next attempt is due.
	GetPendingMessages(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)
	// Delete drops a message once the broker accepted it.
	Delete(ctx context.Context, id int64) error
	// UpdateRetry records a failed attempt and schedules the next one.
	UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
}

// IOutboxRepository is the full outbox table.
type IOutboxRepository interface {
	IOutboxWriter
	IOutboxRelay
}
