package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Get(ctx context.Context, id string) (order.Order, error)
	MarkPaid(ctx context.Context, receipt payment.Receipt, paidAt time.Time) error
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
}
