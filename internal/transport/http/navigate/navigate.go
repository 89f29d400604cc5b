package navigate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
	"github.com/go-playground/validator/v10"
)

type session interface {
	Navigate(ctx context.Context, orderID string) error
	Snapshot() viewsvc.View
}

// navigateRequest represents a route change.
type navigateRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// Validate validates the navigate request.
func (r *navigateRequest) Validate() error {
	return validator.New().Struct(r)
}

// Navigate points the view at another order.
func Navigate(w http.ResponseWriter, r *http.Request, session session) {
	req := navigateRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))

		return
	}
	if err := req.Validate(); err != nil {
		respond.Error(w, r, err)

		return
	}

	if err := session.Navigate(r.Context(), req.OrderID); err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, session.Snapshot())
}
