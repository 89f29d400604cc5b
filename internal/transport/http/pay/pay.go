package pay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
	"github.com/go-playground/validator/v10"
)

type session interface {
	Pay(ctx context.Context, receipt payment.Receipt) error
	Snapshot() viewsvc.View
}

// payRequest is the receipt handed over by a payment widget.
type payRequest struct {
	Provider string         `json:"provider" validate:"required,oneof=paypal stripe googlepay"`
	OrderID  string         `json:"orderId"  validate:"required"`
	Payload  map[string]any `json:"payload"`
}

// Validate validates the pay request.
func (r *payRequest) Validate() error {
	return validator.New().Struct(r)
}

// toModel converts payRequest to payment.Receipt.
func (r *payRequest) toModel() (payment.Receipt, error) {
	provider, err := payment.ParseProvider(r.Provider)
	if err != nil {
		return payment.Receipt{}, err
	}

	return payment.NewReceipt(provider, r.OrderID, r.Payload)
}

// Pay submits a payment receipt for the viewed order.
func Pay(w http.ResponseWriter, r *http.Request, session session) {
	req := payRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))

		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)

		return
	}

	receipt, err := req.toModel()
	if err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))

		return
	}

	if err := session.Pay(r.Context(), receipt); err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusAccepted, session.Snapshot())
}
