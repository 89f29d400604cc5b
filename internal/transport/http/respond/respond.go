package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/go-playground/validator/v10"
)

const loginPath = "/login"

// ErrBadRequest marks malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error sending response", "error", err)
	}
}

// Error maps err to a status code and writes it as JSON.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	resp := errorResponse{Error: err.Error()}
	if status == http.StatusUnauthorized {
		resp.Redirect = loginPath
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	JSON(w, status, resp)
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, viewsvc.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, viewsvc.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, viewsvc.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.As(err, &validationErrs),
		errors.Is(err, viewsvc.ErrInvalidOrderID),
		errors.Is(err, payment.ErrInvalidProvider),
		errors.Is(err, payment.ErrMissingOrderID):
		return http.StatusBadRequest
	case errors.Is(err, viewsvc.ErrNoOrderSelected),
		errors.Is(err, viewsvc.ErrOrderNotLoaded),
		errors.Is(err, viewsvc.ErrNothingToRetry),
		errors.Is(err, viewsvc.ErrReceiptMismatch),
		errors.Is(err, viewsvc.ErrPaymentNotAllowed),
		errors.Is(err, viewsvc.ErrPaymentInFlight),
		errors.Is(err, viewsvc.ErrDeliveryNotAllowed),
		errors.Is(err, viewsvc.ErrDeliveryInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
