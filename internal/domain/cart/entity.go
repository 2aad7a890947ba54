// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/storefront-api/internal/domain/coupon"
)

// Version is bumped whenever the persisted cart layout changes. Snapshots
// with a different version are discarded on load rather than misread.
const Version = 1

var (
	ErrLineNotFound     = errors.New("item not found in cart")
	ErrCouponAlreadySet = errors.New("a coupon is already applied; remove it first")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// LineItem is one product variant plus quantity in the cart. UnitPrice is
// captured at the time the item is added, in cents.
type LineItem struct {
	ProductID uint      `json:"product_id"`
	Name      string    `json:"name"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	AddedAt   time.Time `json:"added_at"`
}

// Matches reports whether the line is keyed by the given variant
func (l *LineItem) Matches(productID uint, size, color string) bool {
	return l.ProductID == productID && l.Size == size && l.Color == color
}

// LineTotal returns quantity × unit price in cents
func (l *LineItem) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// SessionCart is the shopper's cart, persisted in Redis per checkout session
type SessionCart struct {
	Version   int              `json:"version"`
	SessionID string           `json:"session_id"`
	Items     []LineItem       `json:"items"`
	Coupon    *coupon.Snapshot `json:"coupon,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSessionCart returns an empty cart for a session
func NewSessionCart(sessionID string) *SessionCart {
	now := time.Now().UTC()
	return &SessionCart{
		Version:   Version,
		SessionID: sessionID,
		Items:     []LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Totals is the computed pricing breakdown, all amounts in cents
type Totals struct {
	ItemCount      int   `json:"item_count"`     // Number of unique lines
	TotalQuantity  int   `json:"total_quantity"` // Sum of all quantities
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	DeliveryFee    int64 `json:"delivery_fee"`
	GrandTotal     int64 `json:"grand_total"`
}

// AddOrUpdateLine inserts a line or merges quantity into an existing line
// keyed by (product, size, color)
func (c *SessionCart) AddOrUpdateLine(item LineItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].Matches(item.ProductID, item.Size, item.Color) {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].UnitPrice = item.UnitPrice // price may have changed since first add
			c.touch()
			return nil
		}
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

// SetQuantity sets the quantity of an existing line; zero removes the line
func (c *SessionCart) SetQuantity(productID uint, size, color string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].Matches(productID, size, color) {
			if quantity == 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = quantity
			}
			c.touch()
			return nil
		}
	}

	return ErrLineNotFound
}

// RemoveLine removes a line from the cart
func (c *SessionCart) RemoveLine(productID uint, size, color string) error {
	return c.SetQuantity(productID, size, color, 0)
}

// ApplyCoupon stores a validated coupon snapshot. At most one coupon may be
// active; the previous one must be removed explicitly before applying another.
func (c *SessionCart) ApplyCoupon(snap *coupon.Snapshot) error {
	if c.Coupon != nil {
		return ErrCouponAlreadySet
	}
	c.Coupon = snap
	c.touch()
	return nil
}

// RemoveCoupon clears the applied coupon, if any
func (c *SessionCart) RemoveCoupon() {
	c.Coupon = nil
	c.touch()
}

// Clear empties all lines and discount state. Only the place-order path
// calls this, after the order is confirmed.
func (c *SessionCart) Clear() {
	c.Items = []LineItem{}
	c.Coupon = nil
	c.touch()
}

// IsEmpty reports whether the cart has no lines
func (c *SessionCart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal returns the sum of line totals in cents
func (c *SessionCart) Subtotal() int64 {
	var subtotal int64
	for i := range c.Items {
		subtotal += c.Items[i].LineTotal()
	}
	return subtotal
}

// DiscountAmount returns the applied coupon discount in cents
func (c *SessionCart) DiscountAmount() int64 {
	if c.Coupon == nil {
		return 0
	}
	return c.Coupon.DiscountAmount
}

// ComputeTotals computes the full pricing breakdown for a given delivery fee.
// The grand total never goes negative even if the discount exceeds the subtotal.
func (c *SessionCart) ComputeTotals(deliveryFee int64) Totals {
	totals := Totals{
		ItemCount:      len(c.Items),
		Subtotal:       c.Subtotal(),
		DiscountAmount: c.DiscountAmount(),
		DeliveryFee:    deliveryFee,
	}

	for i := range c.Items {
		totals.TotalQuantity += c.Items[i].Quantity
	}

	discounted := totals.Subtotal - totals.DiscountAmount
	if discounted < 0 {
		discounted = 0
	}
	totals.GrandTotal = discounted + totals.DeliveryFee

	return totals
}

func (c *SessionCart) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// FormatAmount renders cents as a two-decimal display string. Used only at
// the presentation boundary; arithmetic stays in integer cents.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
