// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/coupon"
	"github.com/your-org/storefront-api/internal/domain/product"
)

// Key returns the Redis key holding the cart for a checkout session
func Key(sessionID string) string {
	return "cart:session:" + sessionID
}

// CouponValidator checks a coupon code against the current subtotal and
// returns a snapshot of the computed discount
type CouponValidator interface {
	Validate(code string, subtotal int64) (*coupon.Snapshot, error)
}

// VariantResolver looks up a product variant so lines are priced from the
// catalog, never from client input
type VariantResolver interface {
	GetVariant(productID uint, size, color string) (*product.Product, *product.ProductVariant, error)
}

// Service manages session carts
type Service struct {
	redis    *redis.Client
	products VariantResolver
	coupons  CouponValidator
	config   *config.Config
	logger   *logrus.Logger
}

// NewService creates a new cart service
func NewService(redisClient *redis.Client, products VariantResolver, coupons CouponValidator, cfg *config.Config) *Service {
	return &Service{
		redis:    redisClient,
		products: products,
		coupons:  coupons,
		config:   cfg,
		logger:   logrus.StandardLogger(),
	}
}

// AddItemRequest represents a request to add a variant to the cart
type AddItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest sets the quantity of an existing line; zero removes it
type UpdateItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  int    `json:"quantity" binding:"min=0"`
}

// View is the cart as returned to clients: lines plus the computed totals
type View struct {
	SessionID string           `json:"session_id"`
	Items     []LineItem       `json:"items"`
	Coupon    *coupon.Snapshot `json:"coupon,omitempty"`
	Totals    Totals           `json:"totals"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Get loads the cart for a session. A missing, corrupt, or stale-version
// snapshot yields a fresh empty cart instead of an error.
func (s *Service) Get(ctx context.Context, sessionID string) (*SessionCart, error) {
	data, err := s.redis.Get(ctx, Key(sessionID)).Result()
	if err == redis.Nil {
		return NewSessionCart(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart SessionCart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Discarding corrupt cart snapshot")
		return NewSessionCart(sessionID), nil
	}
	if cart.Version != Version {
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"version":    cart.Version,
		}).Warn("Discarding cart snapshot with unknown version")
		return NewSessionCart(sessionID), nil
	}

	cart.SessionID = sessionID
	if cart.Items == nil {
		cart.Items = []LineItem{}
	}
	return &cart, nil
}

// Save persists the cart with the configured session TTL
func (s *Service) Save(ctx context.Context, cart *SessionCart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to serialize cart: %w", err)
	}
	if err := s.redis.Set(ctx, Key(cart.SessionID), data, s.config.Checkout.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// AddItem resolves the variant from the catalog and merges it into the cart
func (s *Service) AddItem(ctx context.Context, sessionID string, req *AddItemRequest) (*View, error) {
	prod, variant, err := s.products.GetVariant(req.ProductID, req.Size, req.Color)
	if err != nil {
		return nil, err
	}

	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	line := LineItem{
		ProductID: prod.ID,
		Name:      prod.Name,
		Size:      variant.Size,
		Color:     variant.Color,
		Quantity:  req.Quantity,
		UnitPrice: variant.Price,
		AddedAt:   time.Now().UTC(),
	}
	if err := cart.AddOrUpdateLine(line); err != nil {
		return nil, err
	}

	if err := s.revalidateCoupon(cart); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(cart), nil
}

// UpdateItem sets a line's quantity; zero removes the line
func (s *Service) UpdateItem(ctx context.Context, sessionID string, req *UpdateItemRequest) (*View, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(req.ProductID, req.Size, req.Color, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.revalidateCoupon(cart); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(cart), nil
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID uint, size, color string) (*View, error) {
	return s.UpdateItem(ctx, sessionID, &UpdateItemRequest{
		ProductID: productID,
		Size:      size,
		Color:     color,
		Quantity:  0,
	})
}

// ApplyCoupon validates a code against the current subtotal and stores the
// resulting snapshot. A second coupon is rejected until the first is removed.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (*View, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.Coupon != nil {
		return nil, ErrCouponAlreadySet
	}

	snap, err := s.coupons.Validate(code, cart.Subtotal())
	if err != nil {
		return nil, err
	}
	if err := cart.ApplyCoupon(snap); err != nil {
		return nil, err
	}

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(cart), nil
}

// RemoveCoupon clears the applied coupon
func (s *Service) RemoveCoupon(ctx context.Context, sessionID string) (*View, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cart.RemoveCoupon()

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.buildView(cart), nil
}

// GetView returns the cart with computed totals
func (s *Service) GetView(ctx context.Context, sessionID string) (*View, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildView(cart), nil
}

// DeliveryFee returns the delivery fee for a given subtotal: zero for an
// empty cart or when the free-delivery threshold is met, the flat fee otherwise
func (s *Service) DeliveryFee(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	threshold := s.config.Checkout.FreeDeliveryThreshold
	if threshold > 0 && subtotal >= threshold {
		return 0
	}
	return s.config.Checkout.DeliveryFee
}

// ComputeTotals returns the cart's pricing breakdown using the configured
// delivery fee rules
func (s *Service) ComputeTotals(cart *SessionCart) Totals {
	return cart.ComputeTotals(s.DeliveryFee(cart.Subtotal()))
}

// revalidateCoupon recomputes the applied coupon against the new subtotal
// after line changes. A coupon that no longer qualifies is dropped silently;
// an infrastructure failure leaves it in place and fails the edit.
func (s *Service) revalidateCoupon(cart *SessionCart) error {
	if cart.Coupon == nil {
		return nil
	}
	if cart.IsEmpty() {
		cart.RemoveCoupon()
		return nil
	}

	snap, err := s.coupons.Validate(cart.Coupon.Code, cart.Subtotal())
	if err != nil {
		if coupon.IsRejection(err) {
			s.logger.WithFields(logrus.Fields{
				"session_id": cart.SessionID,
				"code":       cart.Coupon.Code,
			}).Info("Dropping coupon that no longer qualifies")
			cart.RemoveCoupon()
			return nil
		}
		// infrastructure failure: keep the coupon rather than punishing
		// the shopper for a flaky lookup
		return fmt.Errorf("failed to revalidate coupon: %w", err)
	}
	cart.Coupon = snap
	return nil
}

func (s *Service) buildView(cart *SessionCart) *View {
	return &View{
		SessionID: cart.SessionID,
		Items:     cart.Items,
		Coupon:    cart.Coupon,
		Totals:    s.ComputeTotals(cart),
		UpdatedAt: cart.UpdatedAt,
	}
}
