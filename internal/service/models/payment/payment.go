package payment

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Provider identifies the payment widget that completed a transaction.
type Provider string

const (
	ProviderPayPal    Provider = "paypal"
	ProviderStripe    Provider = "stripe"
	ProviderGooglePay Provider = "googlepay"
)

var (
	ErrInvalidProvider = errors.New("invalid payment provider")
	ErrMissingOrderID  = errors.New("payment receipt is not attributed to an order")
)

func (p Provider) String() string {
	return string(p)
}

func ParseProvider(s string) (Provider, error) {
	switch s {
	case ProviderPayPal.String():
		return ProviderPayPal, nil
	case ProviderStripe.String():
		return ProviderStripe, nil
	case ProviderGooglePay.String():
		return ProviderGooglePay, nil
	default:
		return "", ErrInvalidProvider
	}
}

// Receipt is the result handed over by a payment widget.
// Payload is forwarded as-is and never inspected.
type Receipt struct {
	Provider Provider
	OrderID  string
	Payload  *structpb.Struct
}

// NewReceipt builds a receipt from a decoded JSON object.
func NewReceipt(provider Provider, orderID string, payload map[string]any) (Receipt, error) {
	if orderID == "" {
		return Receipt{}, ErrMissingOrderID
	}
	st, err := structpb.NewStruct(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to convert payment payload: %w", err)
	}

	return Receipt{
		Provider: provider,
		OrderID:  orderID,
		Payload:  st,
	}, nil
}

// MarshalPayload serializes the opaque payload for storage.
func (r Receipt) MarshalPayload() ([]byte, error) {
	if r.Payload == nil {
		return []byte("{}"), nil
	}

	return protojson.Marshal(r.Payload)
}
