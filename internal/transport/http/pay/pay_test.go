package pay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	receipts []payment.Receipt
	err      error
}

func (s *fakeSession) Pay(_ context.Context, receipt payment.Receipt) error {
	s.receipts = append(s.receipts, receipt)

	return s.err
}

func (s *fakeSession) Snapshot() viewsvc.View {
	return viewsvc.View{OrderID: "A"}
}

func post(session session, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Pay(rec, httptest.NewRequest(http.MethodPost, "/api/views/x/payments", strings.NewReader(body)), session)

	return rec
}

func TestPayForwardsReceipt(t *testing.T) {
	s := &fakeSession{}

	rec := post(s, `{"provider":"paypal","orderId":"A","payload":{"id":"PAY-1","status":"COMPLETED"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, s.receipts, 1)
	assert.Equal(t, payment.ProviderPayPal, s.receipts[0].Provider)
	assert.Equal(t, "A", s.receipts[0].OrderID)
	assert.Equal(t, "COMPLETED", s.receipts[0].Payload.GetFields()["status"].GetStringValue())
}

func TestPayRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"provider":`},
		{name: "unknown provider", body: `{"provider":"cash","orderId":"A"}`},
		{name: "missing order", body: `{"provider":"stripe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSession{}
			rec := post(s, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, s.receipts)
		})
	}
}

func TestPayMapsConflicts(t *testing.T) {
	rec := post(&fakeSession{err: viewsvc.ErrPaymentNotAllowed}, `{"provider":"stripe","orderId":"A"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
