package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
)

func TestIsComplete(t *testing.T) {
	addr := &order.Address{Name: "Asha", City: "Pune"}
	card := payment.NewCardSelection(payment.CardDetails{Token: "tok_1", Brand: "visa", Last4: "4242"})

	tests := []struct {
		name     string
		session  Session
		complete bool
	}{
		{"empty session", Session{}, false},
		{"address only", Session{Address: addr}, false},
		{"payment only", Session{Payment: &card}, false},
		{"both selected", Session{Address: addr, Payment: &card}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, tt.session.IsComplete())
		})
	}
}

func TestClearAddress_MakesSessionIncomplete(t *testing.T) {
	card := payment.NewCashOnDeliverySelection()
	sess := Session{
		Address:   &order.Address{Name: "Asha"},
		AddressID: 7,
		Payment:   &card,
	}
	assert.True(t, sess.IsComplete())

	sess.ClearAddress()

	assert.False(t, sess.IsComplete())
	assert.Nil(t, sess.Address)
	assert.Equal(t, uint(0), sess.AddressID)
	assert.NotNil(t, sess.Payment)
}

func TestClearPayment_MakesSessionIncomplete(t *testing.T) {
	card := payment.NewCashOnDeliverySelection()
	sess := Session{
		Address: &order.Address{Name: "Asha"},
		Payment: &card,
	}

	sess.ClearPayment()

	assert.False(t, sess.IsComplete())
	assert.NotNil(t, sess.Address)
}
