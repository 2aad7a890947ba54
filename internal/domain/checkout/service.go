// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
)

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrNoAddressSelected  = errors.New("select a delivery address before placing the order")
	ErrNoPaymentSelected  = errors.New("select a payment method before placing the order")
	ErrSubmissionInFlight = errors.New("an order submission is already in progress")
)

// Service drives the checkout flow: address selection, payment selection,
// the review summary, and order placement
type Service struct {
	sessions  SessionStore
	carts     CartAccess
	addresses AddressBook
	tokenizer TokenExchanger
	orders    OrderPlacer
	guard     SubmitGuard
	logger    *logrus.Logger
}

// NewService creates a new checkout service
func NewService(sessions SessionStore, carts CartAccess, addresses AddressBook, tokenizer TokenExchanger, orders OrderPlacer, guard SubmitGuard) *Service {
	return &Service{
		sessions:  sessions,
		carts:     carts,
		addresses: addresses,
		tokenizer: tokenizer,
		orders:    orders,
		guard:     guard,
		logger:    logrus.StandardLogger(),
	}
}

// GetSession returns the shopper's checkout progress
func (s *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SelectAddress snapshots one of the shopper's saved addresses into the
// checkout session. Later edits to the address book do not change the snapshot.
func (s *Service) SelectAddress(ctx context.Context, sessionID string, userID, addressID uint) (*Session, error) {
	addr, err := s.addresses.GetAddress(userID, addressID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Address = &order.Address{
		Name:       addr.Name,
		Phone:      addr.Phone,
		FlatLine:   addr.FlatLine,
		AreaLine:   addr.AreaLine,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
	}
	sess.AddressID = addr.ID
	sess.touch()

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ClearAddress drops the selected address from the session
func (s *Service) ClearAddress(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.ClearAddress()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// HandleAddressDeleted clears the session's address selection if it was
// sourced from the address that was just deleted
func (s *Service) HandleAddressDeleted(ctx context.Context, sessionID string, addressID uint) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.AddressID != addressID {
		return nil
	}
	sess.ClearAddress()
	return s.sessions.Save(ctx, sess)
}

// SelectCard exchanges a client-side card nonce for a token and records the
// card as the payment method. Tokenization failures surface the gateway's
// message verbatim and leave the previous selection untouched.
func (s *Service) SelectCard(ctx context.Context, sessionID, nonce string) (*Session, error) {
	details, err := s.tokenizer.Exchange(ctx, nonce)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	selection := payment.NewCardSelection(*details)
	if err := selection.Validate(); err != nil {
		return nil, err
	}
	sess.Payment = &selection
	sess.touch()

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectCashOnDelivery records cash on delivery as the payment method.
// No tokenizer round-trip is involved.
func (s *Service) SelectCashOnDelivery(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	selection := payment.NewCashOnDeliverySelection()
	sess.Payment = &selection
	sess.touch()

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ClearPayment drops the selected payment method from the session
func (s *Service) ClearPayment(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.ClearPayment()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Summary is the review-step view: the cart with totals plus the selected
// address and payment method
type Summary struct {
	Items        []cart.LineItem    `json:"items"`
	Totals       cart.Totals        `json:"totals"`
	Address      *order.Address     `json:"address,omitempty"`
	Payment      *payment.Selection `json:"payment,omitempty"`
	ReadyToPlace bool               `json:"ready_to_place"`
}

// GetSummary assembles the review-step summary
func (s *Service) GetSummary(ctx context.Context, sessionID string) (*Summary, error) {
	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Items:        c.Items,
		Totals:       s.carts.ComputeTotals(c),
		Address:      sess.Address,
		Payment:      sess.Payment,
		ReadyToPlace: !c.IsEmpty() && sess.IsComplete(),
	}, nil
}

// PlaceOrder turns the cart and checkout session into a persisted order.
// The submission lock ensures a double-submit yields exactly one order; the
// cart and session are cleared together only after the order is committed.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, userID uint, email string) (*order.Order, error) {
	acquired, err := s.guard.TryAcquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSubmissionInFlight
	}
	defer s.guard.Release(ctx, sessionID)

	c, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrCartEmpty
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Address == nil {
		return nil, ErrNoAddressSelected
	}
	if sess.Payment == nil {
		return nil, ErrNoPaymentSelected
	}
	if err := sess.Payment.Validate(); err != nil {
		return nil, err
	}

	totals := s.carts.ComputeTotals(c)

	input := &order.PlaceOrderInput{
		Email:           email,
		Subtotal:        totals.Subtotal,
		Discount:        totals.DiscountAmount,
		DeliveryFee:     totals.DeliveryFee,
		Total:           totals.GrandTotal,
		ShippingAddress: *sess.Address,
		PaymentMethod:   string(sess.Payment.Method),
	}
	if c.Coupon != nil {
		input.CouponCode = c.Coupon.Code
	}
	if sess.Payment.Method == payment.MethodCard && sess.Payment.Card != nil {
		input.PaymentRef = sess.Payment.Card.Token
		input.CardBrand = sess.Payment.Card.Brand
		input.CardLast4 = sess.Payment.Card.Last4
	}
	for _, item := range c.Items {
		input.Items = append(input.Items, order.PlacedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	placed, err := s.orders.Place(ctx, userID, input)
	if err != nil {
		// cart and session stay intact so the shopper can retry
		return nil, err
	}

	if err := s.sessions.ClearWithCart(ctx, sessionID); err != nil {
		// the order is committed; stale session state will expire via TTL
		s.logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"order_id":   placed.ID,
			"error":      err.Error(),
		}).Warn("Failed to clear checkout state after order placement")
	}

	return placed, nil
}
