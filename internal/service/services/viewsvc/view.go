package viewsvc

import (
	"github.com/corray333/backend-labs/orderview/internal/service/models/asyncres"
	"github.com/corray333/backend-labs/orderview/internal/service/models/coupon"
	"github.com/corray333/backend-labs/orderview/internal/service/models/currency"
	"github.com/corray333/backend-labs/orderview/internal/service/models/order"
	"github.com/corray333/backend-labs/orderview/internal/service/models/payment"
	"github.com/corray333/backend-labs/orderview/internal/service/pricing"
	"github.com/corray333/backend-labs/orderview/internal/service/reconciler"
	"github.com/shopspring/decimal"
)

// ResourceStatus is an async resource without its value.
type ResourceStatus struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

func statusOf[T any](r asyncres.Resource[T]) ResourceStatus {
	return ResourceStatus{
		Loading: r.Loading,
		Error:   r.Error,
		Success: r.Success,
	}
}

// CouponView is the coupon box: what was typed, whether it looks right,
// and the result of the last Apply.
type CouponView struct {
	Input      string         `json:"input"`
	LooksValid bool           `json:"looksValid"`
	Applied    *coupon.Result `json:"applied,omitempty"`
}

// Widget is the amount a payment widget must charge.
type Widget struct {
	Provider payment.Provider  `json:"provider"`
	Amount   decimal.Decimal   `json:"amount"`
	Currency currency.Currency `json:"currency"`
}

type Permissions struct {
	CanPay           bool `json:"canPay"`
	PaymentEnabled   bool `json:"paymentEnabled"`
	CanMarkDelivered bool `json:"canMarkDelivered"`
	CanApplyCoupon   bool `json:"canApplyCoupon"`
}

// View is everything the order screen renders.
type View struct {
	SessionID   string             `json:"sessionId"`
	OrderID     string             `json:"orderId,omitempty"`
	Phase       reconciler.Phase   `json:"phase"`
	Order       *order.Order       `json:"order,omitempty"`
	Fetch       ResourceStatus     `json:"fetch"`
	Pay         ResourceStatus     `json:"pay"`
	Deliver     ResourceStatus     `json:"deliver"`
	Pricing     *pricing.Breakdown `json:"pricing,omitempty"`
	Coupon      CouponView         `json:"coupon"`
	Widgets     []Widget           `json:"widgets"`
	Permissions Permissions        `json:"permissions"`
	Revision    uint64             `json:"revision"`
}

// Snapshot renders the current state of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID: s.id.String(),
		OrderID:   s.route,
		Phase:     reconciler.PhaseOf(s.store, s.route),
		Fetch:     statusOf(s.store.FetchState(s.route)),
		Pay:       statusOf(s.store.PayState(s.route)),
		Deliver:   statusOf(s.store.DeliverState(s.route)),
		Coupon: CouponView{
			Input:      s.couponInput,
			LooksValid: s.pricing.CouponLooksValid(s.couponInput),
			Applied:    s.coupon,
		},
		Widgets:  []Widget{},
		Revision: s.revision,
	}
	v.Permissions.CanApplyCoupon = reconciler.CanApplyCoupon(s.couponInput)

	o, ok := reconciler.LoadedOrder(s.store, s.route)
	if !ok {
		return v
	}

	breakdown := s.pricing.Breakdown(o, s.coupon)
	v.Order = &o
	v.Pricing = &breakdown
	v.Permissions.CanPay = reconciler.CanPay(o)
	v.Permissions.CanMarkDelivered = reconciler.CanMarkDelivered(o, s.viewer.IsAdmin)
	v.Permissions.PaymentEnabled = reconciler.PaymentEnabled(s.store, s.route)

	if v.Permissions.PaymentEnabled {
		cur := o.Currency
		if cur == "" {
			cur = currency.CurrencyINR
		}
		v.Widgets = []Widget{
			{Provider: payment.ProviderPayPal, Amount: breakdown.Quote.WidgetAmount, Currency: currency.CurrencyUSD},
			{Provider: payment.ProviderStripe, Amount: breakdown.EffectiveTotal, Currency: cur},
			{Provider: payment.ProviderGooglePay, Amount: breakdown.EffectiveTotal, Currency: cur},
		}
	}

	return v
}
