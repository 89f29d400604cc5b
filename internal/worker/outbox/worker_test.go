package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/outbox"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retry struct {
	id          int64
	count       int
	lastError   string
	nextRetryAt time.Time
}

type fakeOutboxRepo struct {
	pending []outbox.OutboxMessage
	deleted []int64
	retries []retry
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	r.pending = append(r.pending, msg)

	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}

	return r.pending, nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, id int64) error {
	r.deleted = append(r.deleted, id)

	return nil
}

func (r *fakeOutboxRepo) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	r.retries = append(r.retries, retry{id, retryCount, lastError, nextRetryAt})

	return nil
}

type fakePublisher struct {
	fail      map[string]error
	published []string
}

func (p *fakePublisher) Publish(_, routingKey, _ string, _ []byte) error {
	if err := p.fail[routingKey]; err != nil {
		return err
	}
	p.published = append(p.published, routingKey)

	return nil
}

func TestProcessMessages(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRepo{
		pending: []outbox.OutboxMessage{
			{ID: 1, RoutingKey: outbox.EventOrderPaid, MaxRetries: 5},
			{ID: 2, RoutingKey: outbox.EventOrderDelivered, RetryCount: 1, MaxRetries: 5},
		},
	}
	pub := &fakePublisher{fail: map[string]error{
		outbox.EventOrderDelivered: errors.New("channel closed"),
	}}
	m := metrics.NewUnregistered()

	w := NewWorker(repo, pub, m)
	w.now = func() time.Time { return now }
	w.processMessages(context.Background())

	assert.Equal(t, []string{outbox.EventOrderPaid}, pub.published)
	assert.Equal(t, []int64{1}, repo.deleted)

	require.Len(t, repo.retries, 1)
	assert.Equal(t, int64(2), repo.retries[0].id)
	assert.Equal(t, 2, repo.retries[0].count)
	assert.Equal(t, "channel closed", repo.retries[0].lastError)
	assert.Equal(t, now.Add(2*w.retryInterval), repo.retries[0].nextRetryAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues("published")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues("retry")))
	assert.Zero(t, testutil.ToFloat64(m.OutboxEvents.WithLabelValues("exhausted")))
}

func TestProcessMessagesExhaustsRetries(t *testing.T) {
	repo := &fakeOutboxRepo{
		pending: []outbox.OutboxMessage{
			{ID: 7, RoutingKey: outbox.EventOrderPaid, RetryCount: 2, MaxRetries: 3},
		},
	}
	pub := &fakePublisher{fail: map[string]error{outbox.EventOrderPaid: errors.New("nack")}}
	m := metrics.NewUnregistered()

	NewWorker(repo, pub, m).processMessages(context.Background())

	require.Len(t, repo.retries, 1)
	assert.Equal(t, 3, repo.retries[0].count)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEvents.WithLabelValues("exhausted")))
}

func TestStartStops(t *testing.T) {
	w := NewWorker(&fakeOutboxRepo{}, &fakePublisher{}, nil)
	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
