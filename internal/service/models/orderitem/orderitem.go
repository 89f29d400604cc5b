package orderitem

import (
	"github.com/shopspring/decimal"
)

// OrderItem represents a line item within an order.
type OrderItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name"      validate:"required"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"  validate:"gt=0"`
}

// LineTotal returns unit price multiplied by quantity, unrounded.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
