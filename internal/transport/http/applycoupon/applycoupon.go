package applycoupon

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/models/coupon"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
)

type session interface {
	SetCouponInput(code string)
	ApplyCoupon() (coupon.Result, error)
	Snapshot() viewsvc.View
}

type couponInputRequest struct {
	Code string `json:"code"`
}

// SetInput stores the coupon text. An empty code clears the input.
func SetInput(w http.ResponseWriter, r *http.Request, session session) {
	req := couponInputRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))

		return
	}

	session.SetCouponInput(req.Code)
	respond.JSON(w, http.StatusOK, session.Snapshot().Coupon)
}

// Apply evaluates the stored coupon input against the loaded order.
func Apply(w http.ResponseWriter, r *http.Request, session session) {
	if _, err := session.ApplyCoupon(); err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusOK, session.Snapshot())
}
