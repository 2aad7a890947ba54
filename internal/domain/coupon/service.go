// internal/domain/coupon/service.go
package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront-api/internal/config"
	"gorm.io/gorm"
)

// Validation failure reasons surfaced to the shopper
var (
	ErrNotFound     = errors.New("coupon not found")
	ErrInactive     = errors.New("coupon is not active")
	ErrNotStarted   = errors.New("coupon is not valid yet")
	ErrExpired      = errors.New("coupon has expired")
	ErrBelowMinimum = errors.New("cart subtotal is below the coupon minimum purchase")
	ErrExhausted    = errors.New("coupon usage limit reached")
)

// IsRejection reports whether err is one of the shopper-facing rejection
// reasons, as opposed to an infrastructure failure such as a lost database
// connection.
func IsRejection(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrInactive, ErrNotStarted, ErrExpired, ErrBelowMinimum, ErrExhausted} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Service handles coupon business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new coupon service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateCouponRequest represents coupon creation data
type CreateCouponRequest struct {
	Code        string    `json:"code" binding:"required,max=50"`
	Kind        Kind      `json:"kind" binding:"required,oneof=percentage fixed_amount"`
	Value       int64     `json:"value" binding:"required,min=1"`
	MinPurchase int64     `json:"min_purchase" binding:"min=0"`
	MaxDiscount int64     `json:"max_discount" binding:"min=0"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	IsActive    bool      `json:"is_active"`
	UsageLimit  int       `json:"usage_limit" binding:"min=0"`
}

// UpdateCouponRequest represents coupon update data
type UpdateCouponRequest struct {
	Value       *int64     `json:"value"`
	MinPurchase *int64     `json:"min_purchase"`
	MaxDiscount *int64     `json:"max_discount"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    *bool      `json:"is_active"`
	UsageLimit  *int       `json:"usage_limit"`
}

// Validate checks a code against the current subtotal and returns the coupon
// with its computed discount. Failure reasons map to the sentinel errors above
// so callers can tell the shopper exactly why the code was rejected.
func (s *Service) Validate(code string, subtotal int64) (*Snapshot, error) {
	normalized := NormalizeCode(code)

	var c Coupon
	result := s.db.Where("code = ?", normalized).First(&c)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up coupon: %w", result.Error)
	}

	now := time.Now().UTC()
	if err := c.CheckApplicable(subtotal, now); err != nil {
		return nil, err
	}

	return &Snapshot{
		Code:           c.Code,
		Kind:           c.Kind,
		Value:          c.Value,
		MinPurchase:    c.MinPurchase,
		DiscountAmount: c.DiscountFor(subtotal),
		AppliedAt:      now,
	}, nil
}

// Redeem increments the used count for a placed order. Runs inside the
// caller's transaction so a failed order never consumes a use.
func (s *Service) Redeem(tx *gorm.DB, code string) error {
	normalized := NormalizeCode(code)

	result := tx.Model(&Coupon{}).
		Where("code = ?", normalized).
		Where("usage_limit = 0 OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))

	if result.Error != nil {
		return fmt.Errorf("failed to redeem coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrExhausted
	}
	return nil
}

// GetCoupons retrieves all coupons for the back office
func (s *Service) GetCoupons() ([]Coupon, error) {
	var coupons []Coupon
	if err := s.db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve coupons: %w", err)
	}
	return coupons, nil
}

// GetCoupon retrieves a single coupon by ID
func (s *Service) GetCoupon(id uint) (*Coupon, error) {
	var c Coupon
	result := s.db.First(&c, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve coupon: %w", result.Error)
	}
	return &c, nil
}

// CreateCoupon creates a new coupon
func (s *Service) CreateCoupon(req *CreateCouponRequest) (*Coupon, error) {
	if req.EndsAt.Before(req.StartsAt) {
		return nil, fmt.Errorf("coupon validity window ends before it starts")
	}
	if req.Kind == KindPercentage && req.Value > 100 {
		return nil, fmt.Errorf("percentage discount cannot exceed 100")
	}

	c := Coupon{
		Code:        NormalizeCode(req.Code),
		Kind:        req.Kind,
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		MaxDiscount: req.MaxDiscount,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		IsActive:    req.IsActive,
		UsageLimit:  req.UsageLimit,
	}

	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	return &c, nil
}

// UpdateCoupon updates an existing coupon
func (s *Service) UpdateCoupon(id uint, req *UpdateCouponRequest) (*Coupon, error) {
	c, err := s.GetCoupon(id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.MinPurchase != nil {
		updates["min_purchase"] = *req.MinPurchase
	}
	if req.MaxDiscount != nil {
		updates["max_discount"] = *req.MaxDiscount
	}
	if req.StartsAt != nil {
		updates["starts_at"] = *req.StartsAt
	}
	if req.EndsAt != nil {
		updates["ends_at"] = *req.EndsAt
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.UsageLimit != nil {
		updates["usage_limit"] = *req.UsageLimit
	}

	if len(updates) > 0 {
		if err := s.db.Model(c).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update coupon: %w", err)
		}
	}

	return s.GetCoupon(id)
}

// DeleteCoupon soft-deletes a coupon
func (s *Service) DeleteCoupon(id uint) error {
	result := s.db.Delete(&Coupon{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete coupon: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// NormalizeCode upper-cases and trims a coupon code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
