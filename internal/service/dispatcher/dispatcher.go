package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrFetch   = errors.New("failed to fetch order")
	ErrPayment = errors.New("failed to submit payment")
	ErrDeliver = errors.New("failed to mark order delivered")
)

const defaultTimeout = 15 * time.Second

// OrderRepository loads orders and records deliveries.
type OrderRepository interface {
	Get(ctx context.Context, orderID string) (order.Order, error)
	MarkDelivered(ctx context.Context, orderID string) error
}

// PaymentProvider records a payment that a widget already completed.
type PaymentProvider interface {
	SubmitPayment(ctx context.Context, receipt payment.Receipt) error
}

// Dispatcher runs commands against the order store in the background and
// reports each result through a completion callback.
type Dispatcher struct {
	orders   OrderRepository
	payments PaymentProvider
	timeout  time.Duration
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// option is a function that configures the Dispatcher.
type option func(*Dispatcher)

// MustNewDispatcher creates a new Dispatcher.
func MustNewDispatcher(opts ...option) *Dispatcher {
	d := &Dispatcher{
		timeout: defaultTimeout,
		tracer:  otel.Tracer("orderview/dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.orders == nil {
		panic("dispatcher: order repository is required")
	}
	if d.payments == nil {
		panic("dispatcher: payment provider is required")
	}
	if d.metrics == nil {
		d.metrics = metrics.NewUnregistered()
	}

	return d
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo OrderRepository) option {
	return func(d *Dispatcher) {
		d.orders = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentProvider(provider PaymentProvider) option {
	return func(d *Dispatcher) {
		d.payments = provider
	}
}

// WithTimeout bounds every command. Non-positive values keep the default.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTimeout(timeout time.Duration) option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Fetch loads orderID and calls done with the order or an error wrapping ErrFetch.
func (d *Dispatcher) Fetch(ctx context.Context, orderID string, done func(order.Order, error)) {
	d.run(ctx, "fetch", orderID, func(ctx context.Context) error {
		o, err := d.orders.Get(ctx, orderID)
		if err == nil {
			err = o.Validate()
		}
		if err != nil {
			done(order.Order{}, fmt.Errorf("%w %s: %w", ErrFetch, orderID, err))

			return err
		}
		done(o, nil)

		return nil
	})
}

// Pay forwards receipt to the payment provider.
func (d *Dispatcher) Pay(ctx context.Context, receipt payment.Receipt, done func(error)) {
	d.run(ctx, "pay", receipt.OrderID, func(ctx context.Context) error {
		err := d.payments.SubmitPayment(ctx, receipt)
		if err != nil {
			done(fmt.Errorf("%w %s: %w", ErrPayment, receipt.OrderID, err))

			return err
		}
		done(nil)

		return nil
	})
}

// Deliver marks o as delivered.
func (d *Dispatcher) Deliver(ctx context.Context, o order.Order, done func(error)) {
	d.run(ctx, "deliver", o.ID, func(ctx context.Context) error {
		err := d.orders.MarkDelivered(ctx, o.ID)
		if err != nil {
			done(fmt.Errorf("%w %s: %w", ErrDeliver, o.ID, err))

			return err
		}
		done(nil)

		return nil
	})
}

// run executes fn on its own goroutine. The command outlives the caller's
// context but keeps its values for tracing.
func (d *Dispatcher) run(parent context.Context, kind, orderID string, fn func(ctx context.Context) error) {
	d.metrics.CommandsIssued.WithLabelValues(kind).Inc()
	parent = context.WithoutCancel(parent)

	go func() {
		ctx, cancel := context.WithTimeout(parent, d.timeout)
		defer cancel()

		ctx, span := d.tracer.Start(ctx, "dispatcher."+kind,
			trace.WithAttributes(attribute.String("order.id", orderID)),
		)
		defer span.End()

		start := time.Now()
		err := fn(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.metrics.CommandResults.WithLabelValues(kind, "error").Inc()
			slog.WarnContext(ctx, "Command failed",
				"kind", kind,
				"order_id", orderID,
				"duration", time.Since(start),
				"error", err,
			)

			return
		}

		d.metrics.CommandResults.WithLabelValues(kind, "ok").Inc()
		slog.DebugContext(ctx, "Command completed", "kind", kind, "order_id", orderID, "duration", time.Since(start))
	}()
}
