package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func activeCoupon(kind Kind, value int64) *Coupon {
	now := time.Now().UTC()
	return &Coupon{
		Code:     "TEST",
		Kind:     kind,
		Value:    value,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		IsActive: true,
	}
}

func TestDiscountFor_Percentage(t *testing.T) {
	c := activeCoupon(KindPercentage, 10)

	assert.Equal(t, int64(500), c.DiscountFor(5000))
	assert.Equal(t, int64(199), c.DiscountFor(1999)) // truncates, never rounds up
}

func TestDiscountFor_PercentageWithCap(t *testing.T) {
	c := activeCoupon(KindPercentage, 50)
	c.MaxDiscount = 1000

	assert.Equal(t, int64(1000), c.DiscountFor(10000))
	assert.Equal(t, int64(500), c.DiscountFor(1000)) // below cap, normal math
}

func TestDiscountFor_FixedAmount(t *testing.T) {
	c := activeCoupon(KindFixedAmount, 500)

	assert.Equal(t, int64(500), c.DiscountFor(5000))
}

func TestDiscountFor_NeverExceedsSubtotal(t *testing.T) {
	c := activeCoupon(KindFixedAmount, 500)

	assert.Equal(t, int64(300), c.DiscountFor(300))
}

func TestIsWithinWindow_BoundariesInclusive(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	c := &Coupon{StartsAt: now, EndsAt: now.Add(time.Hour)}

	assert.True(t, c.IsWithinWindow(now))
	assert.True(t, c.IsWithinWindow(now.Add(time.Hour)))
	assert.False(t, c.IsWithinWindow(now.Add(-time.Second)))
	assert.False(t, c.IsWithinWindow(now.Add(time.Hour+time.Second)))
}

func TestIsExhausted(t *testing.T) {
	assert.False(t, (&Coupon{UsageLimit: 0, UsedCount: 1000}).IsExhausted(), "zero limit means unlimited")
	assert.False(t, (&Coupon{UsageLimit: 5, UsedCount: 4}).IsExhausted())
	assert.True(t, (&Coupon{UsageLimit: 5, UsedCount: 5}).IsExhausted())
}

func TestCheckApplicable_RejectionReasons(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name     string
		mutate   func(c *Coupon)
		subtotal int64
		want     error
	}{
		{
			name:     "inactive",
			mutate:   func(c *Coupon) { c.IsActive = false },
			subtotal: 5000,
			want:     ErrInactive,
		},
		{
			name:     "not started yet",
			mutate:   func(c *Coupon) { c.StartsAt = now.Add(time.Hour) },
			subtotal: 5000,
			want:     ErrNotStarted,
		},
		{
			name:     "expired",
			mutate:   func(c *Coupon) { c.EndsAt = now.Add(-time.Minute) },
			subtotal: 5000,
			want:     ErrExpired,
		},
		{
			name:     "usage limit reached",
			mutate:   func(c *Coupon) { c.UsageLimit = 3; c.UsedCount = 3 },
			subtotal: 5000,
			want:     ErrExhausted,
		},
		{
			name:     "subtotal below minimum purchase",
			mutate:   func(c *Coupon) { c.MinPurchase = 5000 },
			subtotal: 4000,
			want:     ErrBelowMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := activeCoupon(KindPercentage, 10)
			tt.mutate(c)

			assert.ErrorIs(t, c.CheckApplicable(tt.subtotal, now), tt.want)
		})
	}
}

func TestCheckApplicable_AppliesAtExactMinimum(t *testing.T) {
	c := activeCoupon(KindPercentage, 10)
	c.MinPurchase = 5000

	assert.NoError(t, c.CheckApplicable(5000, time.Now().UTC()))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(ErrBelowMinimum))
	assert.True(t, IsRejection(ErrNotFound))
	assert.False(t, IsRejection(errors.New("connection reset by peer")))
	assert.False(t, IsRejection(nil))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "FLAT500", NormalizeCode("Flat500"))
}
