package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	validationErr := validator.New().Struct(struct {
		Code string `validate:"required"`
	}{})
	require.Error(t, validationErr)

	tests := []struct {
		err  error
		want int
	}{
		{viewsvc.ErrUnauthenticated, http.StatusUnauthorized},
		{viewsvc.ErrNotAdmin, http.StatusForbidden},
		{viewsvc.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: unexpected EOF", ErrBadRequest), http.StatusBadRequest},
		{validationErr, http.StatusBadRequest},
		{payment.ErrInvalidProvider, http.StatusBadRequest},
		{viewsvc.ErrPaymentInFlight, http.StatusConflict},
		{viewsvc.ErrDeliveryNotAllowed, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestErrorRedirectsUnauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/api/views/x", nil), viewsvc.ErrUnauthenticated)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/login", body["redirect"])
}
