package orderstate

import (
	"errors"
	"testing"

	"github.com/corray333/backend-labs/orderview/internal/service/models/asyncres"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStartsEmpty(t *testing.T) {
	s := NewStore()
	s.Focus("a")

	assert.True(t, s.FetchState("a").IsEmpty())
	assert.True(t, s.PayState("a").IsEmpty())
	assert.True(t, s.DeliverState("a").IsEmpty())
}

func TestStoreReplacesWholeResource(t *testing.T) {
	s := NewStore()
	s.Focus("a")

	require.True(t, s.SetFetch("a", asyncres.Failed[order.Order](errors.New("boom"))))
	require.True(t, s.SetFetch("a", asyncres.Pending[order.Order]()))

	got := s.FetchState("a")
	assert.True(t, got.Loading)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.Value)

	require.True(t, s.SetFetch("a", asyncres.Succeeded(order.Order{ID: "a"})))
	got = s.FetchState("a")
	assert.False(t, got.Loading)
	assert.True(t, got.Success)
	require.NotNil(t, got.Value)
	assert.Equal(t, "a", got.Value.ID)
}

func TestStoreFocusClearsPreviousOrder(t *testing.T) {
	s := NewStore()
	s.Focus("a")
	s.SetFetch("a", asyncres.Succeeded(order.Order{ID: "a"}))
	s.SetPay("a", asyncres.Succeeded(struct{}{}))
	s.SetDeliver("a", asyncres.Failed[struct{}](errors.New("nope")))

	s.Focus("a")
	assert.True(t, s.PayState("a").Success, "refocusing the same order keeps state")

	s.Focus("b")
	assert.True(t, s.FetchState("b").IsEmpty())
	assert.True(t, s.PayState("b").IsEmpty())
	assert.True(t, s.DeliverState("b").IsEmpty())
	assert.True(t, s.PayState("a").IsEmpty(), "inactive order reads as empty")
}

func TestStoreIgnoresStaleWrites(t *testing.T) {
	s := NewStore()
	s.Focus("a")
	s.SetPay("a", asyncres.Pending[struct{}]())
	s.Focus("b")

	assert.False(t, s.SetPay("a", asyncres.Succeeded(struct{}{})))
	assert.False(t, s.SetDeliver("a", asyncres.Succeeded(struct{}{})))
	assert.False(t, s.SetFetch("a", asyncres.Succeeded(order.Order{ID: "a"})))

	assert.True(t, s.PayState("b").IsEmpty())
	assert.True(t, s.DeliverState("b").IsEmpty())
	assert.True(t, s.FetchState("b").IsEmpty())
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	s := NewStore()
	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	s.Focus("a")
	s.SetFetch("a", asyncres.Pending[order.Order]())
	s.ResetPay("a")
	s.ResetDeliver("a")
	s.SetPay("b", asyncres.Pending[struct{}]())

	assert.Equal(t, []Change{
		{OrderID: "a", Kind: KindFocus},
		{OrderID: "a", Kind: KindFetch},
		{OrderID: "a", Kind: KindPay},
		{OrderID: "a", Kind: KindDeliver},
	}, changes)

	unsubscribe()
	s.SetFetch("a", asyncres.Pending[order.Order]())
	assert.Len(t, changes, 4)
}
