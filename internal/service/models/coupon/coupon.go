package coupon

import "github.com/shopspring/decimal"

// Result is the outcome of one Apply action.
// DiscountedTotal is set only when Valid is true.
type Result struct {
	Code            string           `json:"code"`
	Valid           bool             `json:"valid"`
	DiscountedTotal *decimal.Decimal `json:"discountedTotal,omitempty"`
}
