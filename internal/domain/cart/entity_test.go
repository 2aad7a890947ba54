package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-api/internal/domain/coupon"
)

func newTestCart() *SessionCart {
	return NewSessionCart("test-session")
}

func TestAddOrUpdateLine_MergesSameVariant(t *testing.T) {
	c := newTestCart()

	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Name: "Classic Tee", Size: "M", Color: "Black", Quantity: 2, UnitPrice: 1999}))
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Name: "Classic Tee", Size: "M", Color: "Black", Quantity: 1, UnitPrice: 1999}))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
}

func TestAddOrUpdateLine_DifferentVariantsAreSeparateLines(t *testing.T) {
	c := newTestCart()

	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 1, UnitPrice: 1999}))
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "L", Color: "Black", Quantity: 1, UnitPrice: 1999}))
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "White", Quantity: 1, UnitPrice: 1999}))

	assert.Len(t, c.Items, 3)
}

func TestAddOrUpdateLine_RejectsZeroQuantity(t *testing.T) {
	c := newTestCart()

	err := c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 0, UnitPrice: 1999})

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 2, UnitPrice: 1999}))

	require.NoError(t, c.SetQuantity(1, "M", "Black", 0))

	assert.True(t, c.IsEmpty())
}

func TestSetQuantity_UnknownLine(t *testing.T) {
	c := newTestCart()

	err := c.SetQuantity(42, "M", "Black", 1)

	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestSubtotal_ExactCentsMath(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 3, UnitPrice: 1999}))
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 2, Size: "One Size", Color: "Red", Quantity: 1, UnitPrice: 999}))

	// 3 × 19.99 + 9.99 must be exactly 69.96, never 69.96000000000001
	assert.Equal(t, int64(6996), c.Subtotal())
	assert.Equal(t, "69.96", FormatAmount(c.Subtotal()))
}

func TestComputeTotals(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 2, UnitPrice: 2500}))
	require.NoError(t, c.ApplyCoupon(&coupon.Snapshot{
		Code:           "SAVE10",
		Kind:           coupon.KindPercentage,
		Value:          10,
		DiscountAmount: 500,
		AppliedAt:      time.Now().UTC(),
	}))

	totals := c.ComputeTotals(500)

	assert.Equal(t, 1, totals.ItemCount)
	assert.Equal(t, 2, totals.TotalQuantity)
	assert.Equal(t, int64(5000), totals.Subtotal)
	assert.Equal(t, int64(500), totals.DiscountAmount)
	assert.Equal(t, int64(500), totals.DeliveryFee)
	assert.Equal(t, int64(5000), totals.GrandTotal)
}

func TestComputeTotals_GrandTotalNeverNegative(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "S", Color: "Black", Quantity: 1, UnitPrice: 300}))
	require.NoError(t, c.ApplyCoupon(&coupon.Snapshot{
		Code:           "FLAT500",
		Kind:           coupon.KindFixedAmount,
		Value:          500,
		DiscountAmount: 500,
	}))

	totals := c.ComputeTotals(500)

	// discount exceeds subtotal: clamp to zero before adding delivery
	assert.Equal(t, int64(500), totals.GrandTotal)
}

func TestApplyCoupon_SecondCouponRejectedUntilRemoved(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 1, UnitPrice: 5000}))

	first := &coupon.Snapshot{Code: "SAVE10", Kind: coupon.KindPercentage, Value: 10, DiscountAmount: 500}
	second := &coupon.Snapshot{Code: "FLAT500", Kind: coupon.KindFixedAmount, Value: 500, DiscountAmount: 500}

	require.NoError(t, c.ApplyCoupon(first))
	err := c.ApplyCoupon(second)
	assert.ErrorIs(t, err, ErrCouponAlreadySet)
	assert.Equal(t, "SAVE10", c.Coupon.Code)

	c.RemoveCoupon()
	require.NoError(t, c.ApplyCoupon(second))
	assert.Equal(t, "FLAT500", c.Coupon.Code)
}

func TestClear_EmptiesLinesAndCoupon(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddOrUpdateLine(LineItem{ProductID: 1, Size: "M", Color: "Black", Quantity: 1, UnitPrice: 1999}))
	require.NoError(t, c.ApplyCoupon(&coupon.Snapshot{Code: "SAVE10", DiscountAmount: 199}))

	c.Clear()

	assert.True(t, c.IsEmpty())
	assert.Nil(t, c.Coupon)
	assert.Equal(t, int64(0), c.Subtotal())
}
