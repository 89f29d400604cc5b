package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/orderview/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	orders    map[string]order.Order
	outbox    []outbox.OutboxMessage
	reads     int
	begins    int
	commits   int
	rollbacks int
	insertErr error
	afterRead func()
}

type fakeUOW struct {
	store *fakeStore
}

func (u *fakeUOW) Begin(context.Context) error    { u.store.begins++; return nil }
func (u *fakeUOW) Commit(context.Context) error   { u.store.commits++; return nil }
func (u *fakeUOW) Rollback(context.Context) error { u.store.rollbacks++; return nil }

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &fakeOrderRepo{store: u.store}
}

func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &fakeOutboxRepo{store: u.store}
}

type fakeOrderRepo struct {
	store *fakeStore
}

func (r *fakeOrderRepo) Get(_ context.Context, id string) (order.Order, error) {
	r.store.reads++
	o, ok := r.store.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if hook := r.store.afterRead; hook != nil {
		r.store.afterRead = nil
		hook()
	}

	return o, nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, receipt payment.Receipt, paidAt time.Time) error {
	o, ok := r.store.orders[receipt.OrderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.IsPaid {
		return order.ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	r.store.orders[o.ID] = o

	return nil
}

func (r *fakeOrderRepo) MarkDelivered(_ context.Context, id string, deliveredAt time.Time) error {
	o, ok := r.store.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if !o.IsPaid {
		return order.ErrNotPaid
	}
	o.IsDelivered = true
	o.DeliveredAt = &deliveredAt
	r.store.orders[id] = o

	return nil
}

type fakeOutboxRepo struct {
	ioutboxrepo.IOutboxRepository
	store *fakeStore
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	if r.store.insertErr != nil {
		return r.store.insertErr
	}
	r.store.outbox = append(r.store.outbox, msg)

	return nil
}

type fakeCache struct {
	orders      map[string]order.Order
	invalidated []string
	beforeSet   func()
}

func (c *fakeCache) Get(_ context.Context, id string) (order.Order, bool, error) {
	o, ok := c.orders[id]

	return o, ok, nil
}

func (c *fakeCache) Set(_ context.Context, o order.Order) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.orders[o.ID] = o

	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	delete(c.orders, id)
	c.invalidated = append(c.invalidated, id)

	return nil
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, cache *fakeCache) *OrderService {
	return MustNewOrderService(
		func(s *OrderService) {
			s.newUOW = func() unitOfWork { return &fakeUOW{store: store} }
			s.now = func() time.Time { return fixedNow }
		},
		WithOrderCache(cache),
		WithEventExchange("orders", 3),
	)
}

func newStore() *fakeStore {
	return &fakeStore{
		orders: map[string]order.Order{
			"A": {ID: "A", TotalPrice: decimal.RequireFromString("1660")},
		},
	}
}

func TestGetReadsThroughCache(t *testing.T) {
	store := newStore()
	cache := &fakeCache{orders: map[string]order.Order{}}
	svc := newTestService(store, cache)

	o, err := svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", o.ID)

	_, err = svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestGetDoesNotCacheOrderReadBeforePaymentCommitted(t *testing.T) {
	store := newStore()
	cache := &fakeCache{orders: map[string]order.Order{}}
	svc := newTestService(store, cache)

	receipt, err := payment.NewReceipt(payment.ProviderPayPal, "A", nil)
	require.NoError(t, err)
	store.afterRead = func() {
		require.NoError(t, svc.SubmitPayment(context.Background(), receipt))
	}

	stale, err := svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.False(t, stale.IsPaid)
	assert.NotContains(t, cache.orders, "A")

	o, err := svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, o.IsPaid, "refetch after a committed payment must see it")
}

func TestGetDropsCacheFillRacingPaymentCommit(t *testing.T) {
	store := newStore()
	cache := &fakeCache{orders: map[string]order.Order{}}
	svc := newTestService(store, cache)

	receipt, err := payment.NewReceipt(payment.ProviderStripe, "A", nil)
	require.NoError(t, err)
	cache.beforeSet = func() {
		require.NoError(t, svc.SubmitPayment(context.Background(), receipt))
	}

	_, err = svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.NotContains(t, cache.orders, "A")

	o, err := svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, o.IsPaid)
	assert.Equal(t, 2, store.reads)
}

func TestSubmitPaymentQueuesEvent(t *testing.T) {
	store := newStore()
	cache := &fakeCache{orders: map[string]order.Order{"A": store.orders["A"]}}
	svc := newTestService(store, cache)

	receipt, err := payment.NewReceipt(payment.ProviderPayPal, "A", map[string]any{"id": "PAY-1"})
	require.NoError(t, err)

	require.NoError(t, svc.SubmitPayment(context.Background(), receipt))

	assert.True(t, store.orders["A"].IsPaid)
	assert.Equal(t, fixedNow, *store.orders["A"].PaidAt)
	assert.Equal(t, 1, store.commits)
	assert.Zero(t, store.rollbacks)
	assert.Equal(t, []string{"A"}, cache.invalidated)

	require.Len(t, store.outbox, 1)
	msg := store.outbox[0]
	assert.Equal(t, "A", msg.OrderID)
	assert.Equal(t, "orders", msg.ExchangeName)
	assert.Equal(t, outbox.EventOrderPaid, msg.RoutingKey)
	assert.Equal(t, 3, msg.MaxRetries)

	var event outbox.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, "A", event.OrderID)
	assert.Equal(t, "paypal", event.Provider)
}

func TestSubmitPaymentRollsBackOnConflict(t *testing.T) {
	store := newStore()
	svc := newTestService(store, &fakeCache{orders: map[string]order.Order{}})

	receipt, err := payment.NewReceipt(payment.ProviderStripe, "A", nil)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitPayment(context.Background(), receipt))

	err = svc.SubmitPayment(context.Background(), receipt)
	assert.ErrorIs(t, err, order.ErrAlreadyPaid)
	assert.Equal(t, 1, store.rollbacks)
	assert.Len(t, store.outbox, 1)
}

func TestMarkDelivered(t *testing.T) {
	store := newStore()
	svc := newTestService(store, &fakeCache{orders: map[string]order.Order{}})

	err := svc.MarkDelivered(context.Background(), "A")
	assert.ErrorIs(t, err, order.ErrNotPaid)
	assert.Equal(t, 1, store.rollbacks)

	receipt, err := payment.NewReceipt(payment.ProviderGooglePay, "A", nil)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitPayment(context.Background(), receipt))
	require.NoError(t, svc.MarkDelivered(context.Background(), "A"))

	assert.True(t, store.orders["A"].IsDelivered)
	require.Len(t, store.outbox, 2)
	assert.Equal(t, outbox.EventOrderDelivered, store.outbox[1].RoutingKey)
}

func TestOutboxFailureRollsBack(t *testing.T) {
	store := newStore()
	store.insertErr = errors.New("disk full")
	cache := &fakeCache{orders: map[string]order.Order{}}
	svc := newTestService(store, cache)

	err := svc.MarkDelivered(context.Background(), "A")
	require.Error(t, err)

	receipt, err := payment.NewReceipt(payment.ProviderPayPal, "A", nil)
	require.NoError(t, err)
	err = svc.SubmitPayment(context.Background(), receipt)
	require.ErrorContains(t, err, "disk full")
	assert.Zero(t, store.commits)
	assert.Equal(t, 2, store.rollbacks)
	assert.Empty(t, cache.invalidated)
}

func TestMustNewOrderServiceRequiresStorage(t *testing.T) {
	assert.Panics(t, func() { MustNewOrderService() })
}
