package orderstate

import (
	"github.com/corray333/backend-labs/orderview/internal/service/models/asyncres"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
)

type (
	FetchState   = asyncres.Resource[order.Order]
	PayState     = asyncres.Resource[struct{}]
	DeliverState = asyncres.Resource[struct{}]
)

// Kind names the resource touched by a mutation.
type Kind string

const (
	KindFocus   Kind = "focus"
	KindFetch   Kind = "fetch"
	KindPay     Kind = "pay"
	KindDeliver Kind = "deliver"
)

// Change is delivered to subscribers after every applied mutation.
type Change struct {
	OrderID string
	Kind    Kind
}

// Store holds the fetch, pay and deliver resources of the active order.
// It is not safe for concurrent use; the owning session serializes access.
type Store struct {
	orderID string
	fetch   FetchState
	pay     PayState
	deliver DeliverState

	subscribers map[int]func(Change)
	nextSubID   int
}

// NewStore creates an empty store with no active order.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[int]func(Change)),
	}
}

// OrderID returns the active order id.
func (s *Store) OrderID() string {
	return s.orderID
}

// Focus makes orderID the active order. Switching to another id empties all resources.
func (s *Store) Focus(orderID string) {
	if s.orderID == orderID {
		return
	}
	s.orderID = orderID
	s.fetch = asyncres.Empty[order.Order]()
	s.pay = asyncres.Empty[struct{}]()
	s.deliver = asyncres.Empty[struct{}]()
	s.notify(orderID, KindFocus)
}

func (s *Store) FetchState(orderID string) FetchState {
	if orderID != s.orderID {
		return asyncres.Empty[order.Order]()
	}

	return s.fetch
}

func (s *Store) PayState(orderID string) PayState {
	if orderID != s.orderID {
		return asyncres.Empty[struct{}]()
	}

	return s.pay
}

func (s *Store) DeliverState(orderID string) DeliverState {
	if orderID != s.orderID {
		return asyncres.Empty[struct{}]()
	}

	return s.deliver
}

// SetFetch replaces the fetch resource. Writes for a non-active order are dropped
// and reported as false.
func (s *Store) SetFetch(orderID string, res FetchState) bool {
	if orderID != s.orderID {
		return false
	}
	s.fetch = res
	s.notify(orderID, KindFetch)

	return true
}

// SetPay replaces the pay resource, guarded like SetFetch.
func (s *Store) SetPay(orderID string, res PayState) bool {
	if orderID != s.orderID {
		return false
	}
	s.pay = res
	s.notify(orderID, KindPay)

	return true
}

// SetDeliver replaces the deliver resource, guarded like SetFetch.
func (s *Store) SetDeliver(orderID string, res DeliverState) bool {
	if orderID != s.orderID {
		return false
	}
	s.deliver = res
	s.notify(orderID, KindDeliver)

	return true
}

func (s *Store) ResetPay(orderID string) bool {
	return s.SetPay(orderID, asyncres.Empty[struct{}]())
}

func (s *Store) ResetDeliver(orderID string) bool {
	return s.SetDeliver(orderID, asyncres.Empty[struct{}]())
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn func(Change)) func() {
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		delete(s.subscribers, id)
	}
}

func (s *Store) notify(orderID string, kind Kind) {
	change := Change{OrderID: orderID, Kind: kind}
	for _, fn := range s.subscribers {
		fn(change)
	}
}
