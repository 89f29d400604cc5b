package viewsvc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/asyncres"
	"github.com/corray333/backend-labs/orderview/internal/service/models/coupon"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
	"github.com/corray333/backend-labs/orderview/internal/service/orderstate"
	"github.com/corray333/backend-labs/orderview/internal/service/pricing"
	"github.com/corray333/backend-labs/orderview/internal/service/reconciler"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/google/uuid"
)

// maxSettleSteps bounds one reconciliation pass: the refresh itself and the
// no-op that follows the resets.
const maxSettleSteps = 2

// dispatcher runs commands in the background. Completion callbacks must not be
// invoked synchronously from these methods.
type dispatcher interface {
	Fetch(ctx context.Context, orderID string, done func(order.Order, error))
	Pay(ctx context.Context, receipt payment.Receipt, done func(error))
	Deliver(ctx context.Context, o order.Order, done func(error))
}

// Session is one open order screen. All events, including command completions,
// are applied one at a time under mu.
type Session struct {
	mu sync.Mutex

	id         uuid.UUID
	viewer     viewer.Viewer
	store      *orderstate.Store
	reconciler *reconciler.Reconciler
	dispatcher dispatcher
	pricing    *pricing.Engine
	metrics    *metrics.Metrics
	now        func() time.Time

	route       string
	couponInput string
	coupon      *coupon.Result
	revision    uint64
	lastActive  time.Time
	closed      bool
	unsubscribe func()
}

func newSession(v viewer.Viewer, d dispatcher, engine *pricing.Engine, m *metrics.Metrics, now func() time.Time) *Session {
	s := &Session{
		id:         uuid.New(),
		viewer:     v,
		store:      orderstate.NewStore(),
		reconciler: reconciler.New(),
		dispatcher: d,
		pricing:    engine,
		metrics:    m,
		now:        now,
		lastActive: now(),
	}
	s.unsubscribe = s.store.Subscribe(func(orderstate.Change) {
		s.revision++
	})

	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Navigate switches the screen to orderID, the equivalent of a route change.
func (s *Session) Navigate(ctx context.Context, orderID string) error {
	if orderID == "" {
		return ErrInvalidOrderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.route != orderID {
		s.route = orderID
		s.couponInput = ""
		s.coupon = nil
		s.revision++
	}
	s.store.Focus(orderID)
	s.settle(ctx)

	return nil
}

// RetryFetch re-issues the fetch after it failed.
func (s *Session) RetryFetch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.route == "" {
		return ErrNoOrderSelected
	}
	if !s.store.FetchState(s.route).HasFailed() {
		return ErrNothingToRetry
	}
	s.issueFetch(ctx, s.route)

	return nil
}

// SetCouponInput records what the viewer typed. The price does not change until ApplyCoupon.
func (s *Session) SetCouponInput(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.couponInput = code
	s.revision++
}

// ApplyCoupon evaluates the current coupon input against the loaded order total.
func (s *Session) ApplyCoupon() (coupon.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	o, ok := reconciler.LoadedOrder(s.store, s.route)
	if !ok {
		return coupon.Result{}, ErrOrderNotLoaded
	}
	res := s.pricing.ApplyCoupon(s.couponInput, o.TotalPrice)
	s.coupon = &res
	s.revision++

	return res, nil
}

// Pay submits a receipt produced by a payment widget.
func (s *Session) Pay(ctx context.Context, receipt payment.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	o, ok := reconciler.LoadedOrder(s.store, s.route)
	if !ok {
		return ErrOrderNotLoaded
	}
	if receipt.OrderID != o.ID {
		return ErrReceiptMismatch
	}
	if !reconciler.CanPay(o) {
		return ErrPaymentNotAllowed
	}
	if s.store.PayState(o.ID).Loading {
		return ErrPaymentInFlight
	}

	orderID := o.ID
	s.store.SetPay(orderID, asyncres.Pending[struct{}]())
	s.dispatcher.Pay(ctx, receipt, func(err error) {
		s.complete(ctx, orderstate.KindPay, orderID, func() bool {
			if err != nil {
				return s.store.SetPay(orderID, asyncres.Failed[struct{}](err))
			}

			return s.store.SetPay(orderID, asyncres.Succeeded(struct{}{}))
		})
	})

	return nil
}

// MarkDelivered records delivery of a paid order. Only admins may do so.
func (s *Session) MarkDelivered(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	o, ok := reconciler.LoadedOrder(s.store, s.route)
	if !ok {
		return ErrOrderNotLoaded
	}
	if !s.viewer.IsAdmin {
		return ErrNotAdmin
	}
	if !reconciler.CanMarkDelivered(o, s.viewer.IsAdmin) {
		return ErrDeliveryNotAllowed
	}
	if s.store.DeliverState(o.ID).Loading {
		return ErrDeliveryInFlight
	}

	orderID := o.ID
	s.store.SetDeliver(orderID, asyncres.Pending[struct{}]())
	s.dispatcher.Deliver(ctx, o, func(err error) {
		s.complete(ctx, orderstate.KindDeliver, orderID, func() bool {
			if err != nil {
				return s.store.SetDeliver(orderID, asyncres.Failed[struct{}](err))
			}

			return s.store.SetDeliver(orderID, asyncres.Succeeded(struct{}{}))
		})
	})

	return nil
}

// settle runs reconciliation until it issues no further commands.
// Caller must hold mu.
func (s *Session) settle(ctx context.Context) {
	if s.route == "" {
		return
	}
	for i := 0; i < maxSettleSteps; i++ {
		cmds := s.reconciler.Step(s.route, s.store)
		if len(cmds) == 0 {
			return
		}
		for _, cmd := range cmds {
			s.execute(ctx, cmd)
		}
	}
	slog.WarnContext(ctx, "Reconciliation did not settle", "session_id", s.id, "order_id", s.route)
}

// execute carries out one command. Caller must hold mu.
func (s *Session) execute(ctx context.Context, cmd reconciler.Command) {
	switch cmd.Kind {
	case reconciler.CommandResetPay:
		s.store.ResetPay(cmd.OrderID)
	case reconciler.CommandResetDeliver:
		s.store.ResetDeliver(cmd.OrderID)
	case reconciler.CommandFetch:
		s.issueFetch(ctx, cmd.OrderID)
	}
}

// issueFetch marks the fetch as loading and hands it to the dispatcher. Caller must hold mu.
func (s *Session) issueFetch(ctx context.Context, orderID string) {
	s.store.SetFetch(orderID, asyncres.Pending[order.Order]())
	s.dispatcher.Fetch(ctx, orderID, func(o order.Order, err error) {
		s.complete(ctx, orderstate.KindFetch, orderID, func() bool {
			if err != nil {
				return s.store.SetFetch(orderID, asyncres.Failed[order.Order](err))
			}
			if b := s.pricing.Breakdown(o, nil); !b.Consistent {
				slog.WarnContext(ctx, "Order total does not match items and tax",
					"order_id", o.ID,
					"items_price", b.ItemsPrice,
					"tax_price", b.TaxPrice,
					"total_price", b.TotalPrice,
				)
			}

			return s.store.SetFetch(orderID, asyncres.Succeeded(o))
		})
	})
}

// complete applies a command result and reconciles. apply reports false when the
// store dropped the write because the viewer has moved to another order.
func (s *Session) complete(ctx context.Context, kind orderstate.Kind, orderID string, apply func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if !apply() {
		s.metrics.StaleResults.WithLabelValues(string(kind)).Inc()
		slog.InfoContext(ctx, "Discarding stale command result",
			"session_id", s.id,
			"kind", kind,
			"order_id", orderID,
			"active_order_id", s.store.OrderID(),
		)

		return
	}
	s.settle(ctx)
}

func (s *Session) setViewer(v viewer.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = v
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.unsubscribe()
}

func (s *Session) touch() {
	s.lastActive = s.now()
}
