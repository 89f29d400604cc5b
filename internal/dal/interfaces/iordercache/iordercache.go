package iordercache

import (
	"context"

	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
)

// IOrderCache is an interface for the order read cache.
type IOrderCache interface {
	Get(ctx context.Context, id string) (order.Order, bool, error)
	Set(ctx context.Context, o order.Order) error
	Invalidate(ctx context.Context, id string) error
}
