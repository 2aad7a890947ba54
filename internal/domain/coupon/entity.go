// internal/domain/coupon/entity.go
package coupon

import (
	"time"

	"gorm.io/gorm"
)

// Kind represents how a coupon discounts the subtotal
type Kind string

const (
	KindPercentage  Kind = "percentage"
	KindFixedAmount Kind = "fixed_amount"
)

// Coupon represents a discount code issued by the back office
type Coupon struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null;size:50" json:"code"` // stored upper-case
	Kind        Kind           `gorm:"not null;size:20" json:"kind"`
	Value       int64          `gorm:"not null" json:"value"`         // percent (1-100) or amount in cents
	MinPurchase int64          `gorm:"default:0" json:"min_purchase"` // minimum subtotal in cents
	MaxDiscount int64          `gorm:"default:0" json:"max_discount"` // cap for percentage coupons; 0 = no cap
	StartsAt    time.Time      `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time      `gorm:"not null" json:"ends_at"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	UsageLimit  int            `gorm:"default:0" json:"usage_limit"` // 0 = unlimited
	UsedCount   int            `gorm:"default:0" json:"used_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Coupon) TableName() string {
	return "coupons"
}

// Snapshot is the read-only view of an applied coupon held by a cart
type Snapshot struct {
	Code           string    `json:"code"`
	Kind           Kind      `json:"kind"`
	Value          int64     `json:"value"`
	MinPurchase    int64     `json:"min_purchase"`
	DiscountAmount int64     `json:"discount_amount"` // computed against the subtotal at apply time
	AppliedAt      time.Time `json:"applied_at"`
}

// DiscountFor computes the discount this coupon grants for a subtotal.
// The caller must have checked applicability first.
func (c *Coupon) DiscountFor(subtotal int64) int64 {
	var discount int64
	switch c.Kind {
	case KindPercentage:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount > 0 && discount > c.MaxDiscount {
			discount = c.MaxDiscount
		}
	case KindFixedAmount:
		discount = c.Value
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// IsExhausted reports whether the usage limit has been reached
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// IsWithinWindow reports whether now falls in the inclusive validity window
func (c *Coupon) IsWithinWindow(now time.Time) bool {
	return !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// CheckApplicable reports why this coupon cannot be applied to the given
// subtotal at the given time; nil means it applies. Failure reasons are the
// package's sentinel errors so callers can tell the shopper which check failed.
func (c *Coupon) CheckApplicable(subtotal int64, now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrInactive
	case now.Before(c.StartsAt):
		return ErrNotStarted
	case now.After(c.EndsAt):
		return ErrExpired
	case c.IsExhausted():
		return ErrExhausted
	case subtotal < c.MinPurchase:
		return ErrBelowMinimum
	}
	return nil
}
