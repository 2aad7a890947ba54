package cart

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/coupon"
)

type stubCouponValidator struct {
	snap  *coupon.Snapshot
	err   error
	calls int
}

func (v *stubCouponValidator) Validate(code string, subtotal int64) (*coupon.Snapshot, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return v.snap, nil
}

func newValidationService(v CouponValidator) *Service {
	cfg := &config.Config{}
	cfg.Checkout.DeliveryFee = 500
	return &Service{
		coupons: v,
		config:  cfg,
		logger:  logrus.New(),
	}
}

func cartWithCoupon(subtotal int64) *SessionCart {
	c := NewSessionCart("sess-1")
	c.Items = []LineItem{{
		ProductID: 1,
		Name:      "Linen Shirt",
		Size:      "M",
		Color:     "white",
		Quantity:  1,
		UnitPrice: subtotal,
		AddedAt:   time.Now().UTC(),
	}}
	c.Coupon = &coupon.Snapshot{
		Code:           "SAVE10",
		Kind:           coupon.KindPercentage,
		Value:          10,
		DiscountAmount: subtotal / 10,
		AppliedAt:      time.Now().UTC(),
	}
	return c
}

func TestRevalidateCouponDropsOnQualificationFailure(t *testing.T) {
	validator := &stubCouponValidator{err: coupon.ErrBelowMinimum}
	svc := newValidationService(validator)
	c := cartWithCoupon(4000)

	err := svc.revalidateCoupon(c)

	require.NoError(t, err)
	assert.Nil(t, c.Coupon)
	assert.Equal(t, int64(0), c.DiscountAmount())
}

func TestRevalidateCouponKeptOnInfrastructureFailure(t *testing.T) {
	validator := &stubCouponValidator{err: errors.New("connection reset by peer")}
	svc := newValidationService(validator)
	c := cartWithCoupon(10000)

	err := svc.revalidateCoupon(c)

	require.Error(t, err)
	require.NotNil(t, c.Coupon, "a flaky lookup must not cost the shopper their coupon")
	assert.Equal(t, "SAVE10", c.Coupon.Code)
}

func TestRevalidateCouponRefreshesDiscount(t *testing.T) {
	validator := &stubCouponValidator{snap: &coupon.Snapshot{
		Code:           "SAVE10",
		Kind:           coupon.KindPercentage,
		Value:          10,
		DiscountAmount: 2000,
		AppliedAt:      time.Now().UTC(),
	}}
	svc := newValidationService(validator)
	c := cartWithCoupon(20000)

	err := svc.revalidateCoupon(c)

	require.NoError(t, err)
	assert.Equal(t, 1, validator.calls)
	assert.Equal(t, int64(2000), c.Coupon.DiscountAmount)
}

func TestBelowMinimumCouponLeavesDiscountUnset(t *testing.T) {
	// a 50.00 minimum against a 40.00 subtotal is rejected before anything
	// is snapshotted onto the cart
	now := time.Now().UTC()
	cpn := &coupon.Coupon{
		Code:        "BIG50",
		Kind:        coupon.KindFixedAmount,
		Value:       1000,
		MinPurchase: 5000,
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(time.Hour),
		IsActive:    true,
	}

	c := NewSessionCart("sess-2")
	require.NoError(t, c.AddOrUpdateLine(LineItem{
		ProductID: 2,
		Name:      "Canvas Tote",
		Size:      "OS",
		Color:     "natural",
		Quantity:  1,
		UnitPrice: 4000,
		AddedAt:   now,
	}))

	err := cpn.CheckApplicable(c.Subtotal(), now)

	require.ErrorIs(t, err, coupon.ErrBelowMinimum)
	assert.Nil(t, c.Coupon)
	assert.Equal(t, int64(0), c.DiscountAmount())

	totals := c.ComputeTotals(500)
	assert.Equal(t, int64(0), totals.DiscountAmount)
	assert.Equal(t, int64(4500), totals.GrandTotal)
}
