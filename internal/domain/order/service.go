// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/your-org/storefront-api/internal/config"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrCannotCancel      = errors.New("order can no longer be cancelled")
	ErrNoItems           = errors.New("order must have at least one item")
)

// CouponRedeemer burns one use of a coupon inside the order transaction
type CouponRedeemer interface {
	Redeem(tx *gorm.DB, code string) error
}

// Service handles order persistence and lifecycle
type Service struct {
	db      *gorm.DB
	coupons CouponRedeemer
	config  *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, coupons CouponRedeemer, cfg *config.Config) *Service {
	return &Service{
		db:      db,
		coupons: coupons,
		config:  cfg,
	}
}

// PlacedItem is one cart line carried into an order
type PlacedItem struct {
	ProductID uint
	Name      string
	Size      string
	Color     string
	Quantity  int
	UnitPrice int64
}

// PlaceOrderInput carries everything needed to persist a new order. Amounts
// are computed by the checkout flow, in cents.
type PlaceOrderInput struct {
	Email           string
	Items           []PlacedItem
	Subtotal        int64
	Discount        int64
	DeliveryFee     int64
	Total           int64
	CouponCode      string
	ShippingAddress Address
	PaymentMethod   string
	PaymentRef      string
	CardBrand       string
	CardLast4       string
	Notes           string
}

// Place persists a new order in a single transaction: the order row, its
// items, the initial status history entry, and the coupon redemption. If the
// coupon's usage limit was exhausted in the meantime the whole order rolls back.
func (s *Service) Place(ctx context.Context, userID uint, input *PlaceOrderInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}

	var placed *Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o := &Order{
			OrderNumber:     provisionalOrderNumber(),
			UserID:          userID,
			Email:           input.Email,
			Status:          StatusPending,
			SubtotalAmount:  input.Subtotal,
			DiscountAmount:  input.Discount,
			DeliveryAmount:  input.DeliveryFee,
			TotalAmount:     input.Total,
			CouponCode:      input.CouponCode,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   PaymentStatusPending,
			PaymentRef:      input.PaymentRef,
			CardBrand:       input.CardBrand,
			CardLast4:       input.CardLast4,
			Notes:           input.Notes,
		}
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		o.OrderNumber = orderNumber(o.ID, time.Now().UTC())
		if err := tx.Model(o).Update("order_number", o.OrderNumber).Error; err != nil {
			return fmt.Errorf("failed to assign order number: %w", err)
		}

		items := make([]OrderItem, 0, len(input.Items))
		for _, it := range input.Items {
			items = append(items, OrderItem{
				OrderID:   o.ID,
				ProductID: it.ProductID,
				Name:      it.Name,
				Size:      it.Size,
				Color:     it.Color,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				LineTotal: it.UnitPrice * int64(it.Quantity),
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		o.Items = items

		history := &OrderStatusHistory{
			OrderID: o.ID,
			Status:  StatusPending,
			Comment: "Order placed",
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record order status: %w", err)
		}

		if input.CouponCode != "" {
			if err := s.coupons.Redeem(tx, input.CouponCode); err != nil {
				return err
			}
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// orderNumber derives the display number ORD-YYYYMMDD-NNNNN from the
// allocated row ID, which stays unique no matter how many placements
// commit concurrently
func orderNumber(id uint, now time.Time) string {
	return fmt.Sprintf("ORD-%s-%05d", now.Format("20060102"), id)
}

// provisionalOrderNumber satisfies the unique index until the row ID is
// known; it is replaced before the transaction commits
func provisionalOrderNumber() string {
	return "TMP-" + uuid.NewString()
}

// ListRequest filters and paginates the admin order listing
type ListRequest struct {
	Page      int         `form:"page"`
	Limit     int         `form:"limit"`
	Status    OrderStatus `form:"status"`
	UserID    uint        `form:"user_id"`
	Search    string      `form:"search"` // matches order number or email
	SortBy    string      `form:"sort_by"`
	SortOrder string      `form:"sort_order"`
}

// ListResponse is a page of orders
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination carries page metadata for listings
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// GetOrders returns orders for the back office, filtered and paginated
func (s *Service) GetOrders(req *ListRequest) (*ListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Order{})

	if req.Status != "" {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("unknown order status: %s", req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != 0 {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.Search != "" {
		term := "%" + strings.TrimSpace(req.Search) + "%"
		query = query.Where("order_number ILIKE ? OR email ILIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	offset := (req.Page - 1) * req.Limit
	if err := query.
		Preload("Items").
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).
		Limit(req.Limit).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetOrder returns an order with items and status history
func (s *Service) GetOrder(orderID uint) (*Order, error) {
	var o Order
	err := s.db.
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return &o, nil
}

// GetUserOrder returns an order only if it belongs to the given user
func (s *Service) GetUserOrder(userID, orderID uint) (*Order, error) {
	o, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetUserOrders returns the user's order history, newest first
func (s *Service) GetUserOrders(userID uint, page, limit int) (*ListResponse, error) {
	return s.GetOrders(&ListRequest{
		Page:   page,
		Limit:  limit,
		UserID: userID,
	})
}

// UpdateOrderStatus moves an order to a new status, rejecting transitions the
// lifecycle does not allow
func (s *Service) UpdateOrderStatus(orderID uint, newStatus OrderStatus, comment string, adminID uint) (*Order, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("unknown order status: %s", newStatus)
	}

	var updated *Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to fetch order: %w", err)
		}

		if !o.Status.CanTransitionTo(newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
		}

		now := time.Now().UTC()
		o.Status = newStatus
		switch newStatus {
		case StatusConfirmed:
			o.ConfirmedAt = &now
		case StatusShipped:
			o.ShippedAt = &now
		case StatusDelivered:
			o.DeliveredAt = &now
			// cash on delivery is collected at the door
			if o.PaymentStatus == PaymentStatusPending {
				o.PaymentStatus = PaymentStatusPaid
			}
		case StatusCancelled:
			o.CancelledAt = &now
			if o.PaymentStatus == PaymentStatusPaid {
				o.PaymentStatus = PaymentStatusRefunded
			}
		}

		if err := tx.Save(&o).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		history := &OrderStatusHistory{
			OrderID:   o.ID,
			Status:    newStatus,
			Comment:   comment,
			CreatedBy: adminID,
		}
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("failed to record order status: %w", err)
		}

		updated = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelOrder lets a shopper cancel their own order while it is still
// pending or confirmed
func (s *Service) CancelOrder(userID, orderID uint, reason string) (*Order, error) {
	o, err := s.GetUserOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.CanBeCancelled() {
		return nil, ErrCannotCancel
	}

	comment := "Cancelled by customer"
	if reason != "" {
		comment = comment + ": " + reason
	}
	return s.UpdateOrderStatus(o.ID, StatusCancelled, comment, userID)
}

func buildOrderClause(sortBy, sortOrder string) string {
	switch sortBy {
	case "total":
		sortBy = "total_amount"
	case "status":
		sortBy = "status"
	case "order_number":
		sortBy = "order_number"
	default:
		sortBy = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
