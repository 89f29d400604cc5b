package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/models/currency"
	"github.com/corray333/backend-labs/orderview/internal/service/models/orderitem"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrNotPaid          = errors.New("order is not paid")
	ErrAlreadyDelivered = errors.New("order is already delivered")
)

var (
	ErrPaidAtMismatch      = errors.New("paidAt must be set if and only if the order is paid")
	ErrDeliveredAtMismatch = errors.New("deliveredAt must be set if and only if the order is delivered")
	ErrDeliveredUnpaid     = errors.New("order cannot be delivered before it is paid")
	ErrNegativePrice       = errors.New("price must not be negative")
)

var validate = validator.New()

// Buyer is the customer who placed the order.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// Registration holds the vehicle booking details captured at checkout.
type Registration struct {
	VehicleName   string `json:"vehicleName"`
	MobileNumber  string `json:"mobileNumber"`
	VehicleNumber string `json:"vehicleNumber"`
	AadhaarNumber string `json:"aadhaarNumber"`
}

// Order represents a customer order as loaded from the order store.
type Order struct {
	ID            string                `json:"id"            validate:"required"`
	Items         []orderitem.OrderItem `json:"items"         validate:"dive"`
	Buyer         Buyer                 `json:"buyer"`
	Registration  Registration          `json:"registration"`
	PaymentMethod string                `json:"paymentMethod"`
	IsPaid        bool                  `json:"isPaid"`
	PaidAt        *time.Time            `json:"paidAt,omitempty"`
	IsDelivered   bool                  `json:"isDelivered"`
	DeliveredAt   *time.Time            `json:"deliveredAt,omitempty"`
	TaxPrice      decimal.Decimal       `json:"taxPrice"`
	TotalPrice    decimal.Decimal       `json:"totalPrice"`
	Currency      currency.Currency     `json:"currency"`
}

// Validate checks the structural invariants of an order.
// Storage is not trusted to uphold them.
func (o *Order) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if o.IsPaid != (o.PaidAt != nil) {
		return ErrPaidAtMismatch
	}
	if o.IsDelivered != (o.DeliveredAt != nil) {
		return ErrDeliveredAtMismatch
	}
	if o.IsDelivered && !o.IsPaid {
		return ErrDeliveredUnpaid
	}
	if o.TaxPrice.IsNegative() || o.TotalPrice.IsNegative() {
		return ErrNegativePrice
	}
	for i, item := range o.Items {
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d: %w", i, ErrNegativePrice)
		}
	}

	return nil
}
