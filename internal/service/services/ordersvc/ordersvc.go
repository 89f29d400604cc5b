package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/iordercache"
	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderview/internal/dal/postgres"
	"github.com/corray333/backend-labs/orderview/internal/dal/uow"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
)

const defaultMaxRetries = 5

// OrderService is the order store: it loads orders and records payments and deliveries.
type OrderService struct {
	newUOW     func() unitOfWork
	cache      iordercache.IOrderCache
	exchange   string
	maxRetries int
	now        func() time.Time

	// writes advances when an order update starts and again once it commits.
	// A cache fill whose read overlapped either step is dropped.
	writes atomic.Uint64
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		exchange:   "orders",
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("order service requires a postgres client")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithOrderCache enables read-through caching of loaded orders.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderCache(cache iordercache.IOrderCache) option {
	return func(s *OrderService) {
		s.cache = cache
	}
}

// WithEventExchange sets the exchange order events are published to.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventExchange(exchange string, maxRetries int) option {
	return func(s *OrderService) {
		s.exchange = exchange
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
	}
}

// Get loads an order by id, consulting the cache first.
func (s *OrderService) Get(ctx context.Context, id string) (order.Order, error) {
	if s.cache != nil {
		o, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			slog.Warn("Order cache read failed", "order_id", id, "error", err)
		}
		if ok {
			return o, nil
		}
	}

	generation := s.writes.Load()
	o, err := s.newUOW().OrderRepository().Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	if s.cache != nil {
		if s.writes.Load() != generation {
			slog.Debug("Skipping cache fill after concurrent order update", "order_id", id)

			return o, nil
		}
		if err := s.cache.Set(ctx, o); err != nil {
			slog.Warn("Order cache write failed", "order_id", id, "error", err)
		}
		// An update may have committed and invalidated between the check and the fill.
		if s.writes.Load() != generation {
			if err := s.cache.Invalidate(ctx, id); err != nil {
				slog.Warn("Order cache invalidation failed", "order_id", id, "error", err)
			}
		}
	}

	return o, nil
}

// SubmitPayment marks the receipt's order as paid and queues an order.paid event.
func (s *OrderService) SubmitPayment(ctx context.Context, receipt payment.Receipt) error {
	now := s.now()

	return s.transition(ctx, receipt.OrderID, outbox.OrderEvent{
		Type:       outbox.EventOrderPaid,
		OrderID:    receipt.OrderID,
		Provider:   receipt.Provider.String(),
		OccurredAt: now,
	}, func(repo iorderrepo.IOrderRepository) error {
		return repo.MarkPaid(ctx, receipt, now)
	})
}

// MarkDelivered marks the order as delivered and queues an order.delivered event.
func (s *OrderService) MarkDelivered(ctx context.Context, id string) error {
	now := s.now()

	return s.transition(ctx, id, outbox.OrderEvent{
		Type:       outbox.EventOrderDelivered,
		OrderID:    id,
		OccurredAt: now,
	}, func(repo iorderrepo.IOrderRepository) error {
		return repo.MarkDelivered(ctx, id, now)
	})
}

// transition applies an order update and stores its event in the same transaction.
func (s *OrderService) transition(
	ctx context.Context,
	id string,
	event outbox.OrderEvent,
	update func(repo iorderrepo.IOrderRepository) error,
) (err error) {
	msg, err := outbox.NewOrderEventMessage(s.exchange, s.maxRetries, event)
	if err != nil {
		return err
	}

	s.writes.Add(1)
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := work.Rollback(ctx); rbErr != nil {
			slog.Error("Failed to rollback transaction", "order_id", id, "error", rbErr)
		}
	}()

	if err := update(work.OrderRepository()); err != nil {
		return err
	}
	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", event.Type, err)
	}
	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.writes.Add(1)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			slog.Warn("Order cache invalidation failed", "order_id", id, "error", err)
		}
	}

	slog.Info("Order updated", "order_id", id, "event", event.Type)

	return nil
}
