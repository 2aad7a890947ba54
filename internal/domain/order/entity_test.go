package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending cannot skip to shipped", StatusPending, StatusShipped, false},
		{"confirmed to processing", StatusConfirmed, StatusProcessing, true},
		{"processing to shipped", StatusProcessing, StatusShipped, true},
		{"shipped to out for delivery", StatusShipped, StatusOutForDelivery, true},
		{"shipped to delivered", StatusShipped, StatusDelivered, true},
		{"shipped cannot be cancelled", StatusShipped, StatusCancelled, false},
		{"out for delivery to delivered", StatusOutForDelivery, StatusDelivered, true},
		{"delivered is terminal", StatusDelivered, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"no transition to self", StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusOutForDelivery.IsTerminal())
}

func TestIsValid(t *testing.T) {
	assert.True(t, StatusOutForDelivery.IsValid())
	assert.False(t, OrderStatus("returned").IsValid())
}

func TestCanBeCancelled(t *testing.T) {
	assert.True(t, (&Order{Status: StatusPending}).CanBeCancelled())
	assert.True(t, (&Order{Status: StatusConfirmed}).CanBeCancelled())
	assert.False(t, (&Order{Status: StatusProcessing}).CanBeCancelled())
	assert.False(t, (&Order{Status: StatusDelivered}).CanBeCancelled())
}
