package viewsvc

import "errors"

var (
	ErrUnauthenticated    = errors.New("viewer is not authenticated")
	ErrSessionNotFound    = errors.New("view session not found")
	ErrNotAdmin           = errors.New("only admins can mark orders delivered")
	ErrInvalidOrderID     = errors.New("order id is required")
	ErrNoOrderSelected    = errors.New("no order is being viewed")
	ErrOrderNotLoaded     = errors.New("order is not loaded")
	ErrNothingToRetry     = errors.New("order fetch has not failed")
	ErrReceiptMismatch    = errors.New("payment receipt belongs to another order")
	ErrPaymentNotAllowed  = errors.New("order is already paid")
	ErrPaymentInFlight    = errors.New("a payment for this order is already in progress")
	ErrDeliveryNotAllowed = errors.New("order cannot be marked delivered")
	ErrDeliveryInFlight   = errors.New("a delivery update for this order is already in progress")
)
