// internal/domain/payment/selection.go
package payment

import (
	"errors"
	"fmt"
)

// Method discriminates the payment selection variants
type Method string

const (
	MethodCard           Method = "card"
	MethodCashOnDelivery Method = "cod"
)

var ErrInvalidSelection = errors.New("invalid payment selection")

// CardDetails holds the tokenized card reference. The raw card number and
// CVV never reach this service; the token is issued by the external gateway.
type CardDetails struct {
	Token string `json:"token"`
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// Selection is a tagged choice of exactly one payment method. Card is set
// if and only if Method == MethodCard.
type Selection struct {
	Method Method       `json:"method"`
	Card   *CardDetails `json:"card,omitempty"`
}

// NewCardSelection builds a card selection from a tokenization result
func NewCardSelection(details CardDetails) Selection {
	return Selection{
		Method: MethodCard,
		Card:   &details,
	}
}

// NewCashOnDeliverySelection builds a cash-on-delivery selection
func NewCashOnDeliverySelection() Selection {
	return Selection{Method: MethodCashOnDelivery}
}

// Validate checks the variant invariant
func (s *Selection) Validate() error {
	switch s.Method {
	case MethodCard:
		if s.Card == nil || s.Card.Token == "" {
			return fmt.Errorf("%w: card selection requires a token", ErrInvalidSelection)
		}
		return nil
	case MethodCashOnDelivery:
		if s.Card != nil {
			return fmt.Errorf("%w: cash on delivery carries no card details", ErrInvalidSelection)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidSelection, s.Method)
	}
}

// DisplayName returns the shopper-facing label for the selection
func (s *Selection) DisplayName() string {
	switch s.Method {
	case MethodCard:
		if s.Card != nil {
			return fmt.Sprintf("%s ending in %s", s.Card.Brand, s.Card.Last4)
		}
		return "Card"
	case MethodCashOnDelivery:
		return "Cash on Delivery"
	default:
		return string(s.Method)
	}
}
