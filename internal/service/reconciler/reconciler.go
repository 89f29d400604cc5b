package reconciler

import (
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/orderstate"
)

// StoreView is the read side of the order state store.
type StoreView interface {
	FetchState(orderID string) orderstate.FetchState
	PayState(orderID string) orderstate.PayState
	DeliverState(orderID string) orderstate.DeliverState
}

// Inputs are the values whose change triggers reconciliation.
type Inputs struct {
	RouteOrderID     string
	PaySucceeded     bool
	DeliverSucceeded bool
}

// InputsFrom reads the current inputs for routeOrderID from view.
func InputsFrom(routeOrderID string, view StoreView) Inputs {
	return Inputs{
		RouteOrderID:     routeOrderID,
		PaySucceeded:     view.PayState(routeOrderID).Success,
		DeliverSucceeded: view.DeliverState(routeOrderID).Success,
	}
}

type CommandKind string

const (
	CommandResetPay     CommandKind = "reset_pay"
	CommandResetDeliver CommandKind = "reset_deliver"
	CommandFetch        CommandKind = "fetch"
)

// Command is an instruction for the host to carry out.
type Command struct {
	Kind    CommandKind `json:"kind"`
	OrderID string      `json:"orderId"`
}

// Reconcile derives the commands needed to bring the store in line with next.
// prev is nil on the first run. Unchanged inputs yield no commands.
//
// Resets always precede the fetch: a fetched order must never be shown next to a
// pay or deliver success that belonged to the previous snapshot.
func Reconcile(prev *Inputs, next Inputs, view StoreView) []Command {
	if prev != nil && *prev == next {
		return nil
	}

	route := next.RouteOrderID
	fetch := view.FetchState(route)
	stale := fetch.Value != nil && fetch.Value.ID != route

	if fetch.IsEmpty() || next.PaySucceeded || next.DeliverSucceeded || stale {
		return []Command{
			{Kind: CommandResetPay, OrderID: route},
			{Kind: CommandResetDeliver, OrderID: route},
			{Kind: CommandFetch, OrderID: route},
		}
	}

	return nil
}

// Reconciler remembers the inputs of the previous run.
type Reconciler struct {
	last *Inputs
}

func New() *Reconciler {
	return &Reconciler{}
}

// Step reconciles the current inputs against the ones seen last time.
func (r *Reconciler) Step(routeOrderID string, view StoreView) []Command {
	next := InputsFrom(routeOrderID, view)
	cmds := Reconcile(r.last, next, view)
	r.last = &next

	return cmds
}

// Forget drops the remembered inputs so the next Step runs unconditionally.
func (r *Reconciler) Forget() {
	r.last = nil
}

type Phase string

const (
	PhaseUninitialized        Phase = "uninitialized"
	PhaseLoading              Phase = "loading"
	PhaseFetchFailed          Phase = "fetch_failed"
	PhaseAwaitingPayment      Phase = "awaiting_payment"
	PhasePaidAwaitingDelivery Phase = "paid_awaiting_delivery"
	PhaseDelivered            Phase = "delivered"
)

// PhaseOf classifies the fetch state of routeOrderID.
func PhaseOf(view StoreView, routeOrderID string) Phase {
	fetch := view.FetchState(routeOrderID)
	switch {
	case fetch.Loading:
		return PhaseLoading
	case fetch.HasFailed():
		return PhaseFetchFailed
	case fetch.Value == nil:
		return PhaseUninitialized
	case fetch.Value.IsDelivered:
		return PhaseDelivered
	case fetch.Value.IsPaid:
		return PhasePaidAwaitingDelivery
	default:
		return PhaseAwaitingPayment
	}
}

// LoadedOrder returns the fetched order when it matches routeOrderID.
func LoadedOrder(view StoreView, routeOrderID string) (order.Order, bool) {
	fetch := view.FetchState(routeOrderID)
	if fetch.Loading || fetch.Value == nil || fetch.Value.ID != routeOrderID {
		return order.Order{}, false
	}

	return *fetch.Value, true
}

// PaymentEnabled reports whether payment widgets should be offered.
func PaymentEnabled(view StoreView, routeOrderID string) bool {
	o, ok := LoadedOrder(view, routeOrderID)

	return ok && CanPay(o)
}

func CanPay(o order.Order) bool {
	return !o.IsPaid
}

func CanMarkDelivered(o order.Order, viewerIsAdmin bool) bool {
	return viewerIsAdmin && o.IsPaid && !o.IsDelivered
}

// CanApplyCoupon always allows an attempt; validity is reported by the result.
func CanApplyCoupon(string) bool {
	return true
}
