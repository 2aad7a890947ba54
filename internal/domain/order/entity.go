// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents where an order is in its lifecycle
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusProcessing     OrderStatus = "processing"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// validTransitions maps each status to the statuses it may move to.
// Delivered and cancelled are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransitionTo reports whether the order may move to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range validTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsValid reports whether the status is a known one
func (s OrderStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Address is the delivery address captured on the order. It is a snapshot:
// later edits to the shopper's address book do not change placed orders.
type Address struct {
	Name       string `gorm:"size:100" json:"name"`
	Phone      string `gorm:"size:20" json:"phone"`
	FlatLine   string `gorm:"size:255" json:"flat_line"`
	AreaLine   string `gorm:"size:255" json:"area_line"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
}

// Order represents a placed order. All amounts are in cents.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Email       string      `gorm:"not null;size:255" json:"email"`
	Status      OrderStatus `gorm:"not null;default:'pending';size:20" json:"status"`

	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"`
	DiscountAmount int64 `gorm:"default:0" json:"discount_amount"`
	DeliveryAmount int64 `gorm:"default:0" json:"delivery_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	CouponCode string `gorm:"size:50" json:"coupon_code,omitempty"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	PaymentMethod string        `gorm:"not null;size:20" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending';size:20" json:"payment_status"`
	PaymentRef    string        `gorm:"size:128" json:"payment_ref,omitempty"` // gateway token for card orders
	CardBrand     string        `gorm:"size:32" json:"card_brand,omitempty"`
	CardLast4     string        `gorm:"size:4" json:"card_last4,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items         []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"status_history,omitempty"`
}

// OrderItem is one purchased line, with name and price snapshotted at
// purchase time
type OrderItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   uint   `gorm:"not null;index" json:"order_id"`
	ProductID uint   `gorm:"not null" json:"product_id"`
	Name      string `gorm:"not null;size:255" json:"name"`
	Size      string `gorm:"size:20" json:"size"`
	Color     string `gorm:"size:50" json:"color"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"`
	LineTotal int64  `gorm:"not null" json:"line_total"`

	CreatedAt time.Time `json:"created_at"`
}

// OrderStatusHistory records each status change for auditing
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"size:255" json:"comment,omitempty"`
	CreatedBy uint        `json:"created_by,omitempty"` // 0 for system transitions
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// CanBeCancelled reports whether the shopper may still cancel the order
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}
