package pricing

import (
	"errors"

	"github.com/corray333/backend-labs/orderview/internal/service/models/coupon"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRate    = errors.New("conversion rate must be positive")
	ErrInvalidDivisor = errors.New("discount divisor must be greater than one")
)

var halfCent = decimal.New(5, -3)

// DefaultCouponCode is recognized when no codes are configured.
const DefaultCouponCode = "firstPARK"

// Config holds the pricing constants.
type Config struct {
	CouponCodes     []string
	DiscountDivisor decimal.Decimal
	ConversionRate  decimal.Decimal
}

// Engine computes derived prices. It holds no mutable state.
type Engine struct {
	codes   map[string]struct{}
	divisor decimal.Decimal
	rate    decimal.Decimal
}

// Quote is the amount shown to the viewer and the amount handed to the payment widget.
type Quote struct {
	DisplayTotal decimal.Decimal `json:"displayTotal"`
	WidgetAmount decimal.Decimal `json:"widgetAmount"`
}

// Breakdown is the price summary of a loaded order.
// Consistent is false when items plus tax differ from the stored total;
// the stored total is still what gets charged.
type Breakdown struct {
	ItemsPrice     decimal.Decimal `json:"itemsPrice"`
	TaxPrice       decimal.Decimal `json:"taxPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	EffectiveTotal decimal.Decimal `json:"effectiveTotal"`
	Quote          Quote           `json:"quote"`
	Consistent     bool            `json:"consistent"`
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.DiscountDivisor.LessThanOrEqual(decimal.NewFromInt(1)) {
		return nil, ErrInvalidDivisor
	}
	if !cfg.ConversionRate.IsPositive() {
		return nil, ErrInvalidRate
	}

	codes := cfg.CouponCodes
	if len(codes) == 0 {
		codes = []string{DefaultCouponCode}
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}

	return &Engine{
		codes:   set,
		divisor: cfg.DiscountDivisor,
		rate:    cfg.ConversionRate,
	}, nil
}

// RoundCents rounds d to two places; an exact half-cent tie rounds toward zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	truncated := d.Truncate(2)
	if d.Sub(truncated).Abs().Equal(halfCent) {
		return truncated
	}

	return d.Round(2)
}

// ItemsTotal sums unit price times quantity and rounds to cents.
func (e *Engine) ItemsTotal(items []orderitem.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}

	return RoundCents(sum)
}

// CouponLooksValid reports whether code is recognized, without computing a discount.
func (e *Engine) CouponLooksValid(code string) bool {
	_, ok := e.codes[code]

	return ok
}

// ApplyCoupon computes the discounted total for a recognized code.
// The discounted total is rounded to whole currency units.
func (e *Engine) ApplyCoupon(code string, baseTotal decimal.Decimal) coupon.Result {
	if !e.CouponLooksValid(code) {
		return coupon.Result{Code: code}
	}
	discounted := baseTotal.Div(e.divisor).Round(0)

	return coupon.Result{
		Code:            code,
		Valid:           true,
		DiscountedTotal: &discounted,
	}
}

// QuoteForPayment converts effectiveTotal into the payment provider currency.
func QuoteForPayment(effectiveTotal, conversionRate decimal.Decimal) (Quote, error) {
	if !conversionRate.IsPositive() {
		return Quote{}, ErrInvalidRate
	}

	return quote(effectiveTotal, conversionRate), nil
}

// Quote converts effectiveTotal with the configured rate.
func (e *Engine) Quote(effectiveTotal decimal.Decimal) Quote {
	return quote(effectiveTotal, e.rate)
}

// quote expects a positive rate.
func quote(effectiveTotal, rate decimal.Decimal) Quote {
	return Quote{
		DisplayTotal: effectiveTotal,
		WidgetAmount: RoundCents(effectiveTotal.Div(rate)),
	}
}

// EffectiveTotal is the discounted total when applied is a valid coupon, the order total otherwise.
func EffectiveTotal(o order.Order, applied *coupon.Result) decimal.Decimal {
	if applied != nil && applied.Valid && applied.DiscountedTotal != nil {
		return *applied.DiscountedTotal
	}

	return o.TotalPrice
}

// Breakdown derives the price summary of o.
func (e *Engine) Breakdown(o order.Order, applied *coupon.Result) Breakdown {
	items := e.ItemsTotal(o.Items)
	effective := EffectiveTotal(o, applied)

	return Breakdown{
		ItemsPrice:     items,
		TaxPrice:       o.TaxPrice,
		TotalPrice:     o.TotalPrice,
		EffectiveTotal: effective,
		Quote:          e.Quote(effective),
		Consistent:     items.Add(o.TaxPrice).Equal(o.TotalPrice),
	}
}
