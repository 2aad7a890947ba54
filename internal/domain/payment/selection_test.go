package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionValidate(t *testing.T) {
	tests := []struct {
		name      string
		selection Selection
		wantErr   bool
	}{
		{"card with token", NewCardSelection(CardDetails{Token: "tok_1", Brand: "visa", Last4: "4242"}), false},
		{"card without details", Selection{Method: MethodCard}, true},
		{"card with empty token", Selection{Method: MethodCard, Card: &CardDetails{Brand: "visa"}}, true},
		{"cash on delivery", NewCashOnDeliverySelection(), false},
		{"cod carrying card details", Selection{Method: MethodCashOnDelivery, Card: &CardDetails{Token: "tok_1"}}, true},
		{"unknown method", Selection{Method: "wallet"}, true},
		{"empty method", Selection{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.selection.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSelection)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	card := NewCardSelection(CardDetails{Token: "tok_1", Brand: "visa", Last4: "4242"})
	assert.Equal(t, "visa ending in 4242", card.DisplayName())

	cod := NewCashOnDeliverySelection()
	assert.Equal(t, "Cash on Delivery", cod.DisplayName())
}
