package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/coupon"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
	"github.com/your-org/storefront-api/internal/domain/user"
)

type mockCartAccess struct {
	cart *cart.SessionCart
	err  error
}

func (m *mockCartAccess) Get(_ context.Context, sessionID string) (*cart.SessionCart, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return cart.NewSessionCart(sessionID), nil
	}
	return m.cart, nil
}

func (m *mockCartAccess) ComputeTotals(c *cart.SessionCart) cart.Totals {
	return c.ComputeTotals(500)
}

type mockSessionStore struct {
	session    *Session
	saved      []*Session
	clearCalls int
	clearErr   error
}

func (m *mockSessionStore) Get(_ context.Context, sessionID string) (*Session, error) {
	if m.session == nil {
		return NewSession(sessionID), nil
	}
	return m.session, nil
}

func (m *mockSessionStore) Save(_ context.Context, sess *Session) error {
	m.saved = append(m.saved, sess)
	return nil
}

func (m *mockSessionStore) ClearWithCart(_ context.Context, _ string) error {
	m.clearCalls++
	return m.clearErr
}

type mockAddressBook struct {
	address *user.Address
	err     error
}

func (m *mockAddressBook) GetAddress(_, _ uint) (*user.Address, error) {
	return m.address, m.err
}

type mockTokenExchanger struct {
	details *payment.CardDetails
	err     error
	calls   int
}

func (m *mockTokenExchanger) Exchange(_ context.Context, _ string) (*payment.CardDetails, error) {
	m.calls++
	return m.details, m.err
}

type mockOrderPlacer struct {
	order  *order.Order
	err    error
	calls  int
	inputs []*order.PlaceOrderInput
}

func (m *mockOrderPlacer) Place(_ context.Context, _ uint, input *order.PlaceOrderInput) (*order.Order, error) {
	m.calls++
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type mockSubmitGuard struct {
	acquired bool
	releases int
}

func (m *mockSubmitGuard) TryAcquire(_ context.Context, _ string) (bool, error) {
	if m.acquired {
		return false, nil
	}
	m.acquired = true
	return true, nil
}

func (m *mockSubmitGuard) Release(_ context.Context, _ string) {
	m.acquired = false
	m.releases++
}

func filledCart(t *testing.T) *cart.SessionCart {
	t.Helper()
	c := cart.NewSessionCart("sess-1")
	require.NoError(t, c.AddOrUpdateLine(cart.LineItem{
		ProductID: 1, Name: "Classic Tee", Size: "M", Color: "Black",
		Quantity: 3, UnitPrice: 1999, AddedAt: time.Now().UTC(),
	}))
	return c
}

func completeSession() *Session {
	card := payment.NewCardSelection(payment.CardDetails{Token: "tok_1", Brand: "visa", Last4: "4242"})
	sess := NewSession("sess-1")
	sess.Address = &order.Address{Name: "Asha", Phone: "5550001", FlatLine: "12B", City: "Pune", State: "MH", PostalCode: "411001"}
	sess.AddressID = 7
	sess.Payment = &card
	return sess
}

func newTestService(carts CartAccess, sessions SessionStore, placer OrderPlacer, guard SubmitGuard) *Service {
	return NewService(sessions, carts, &mockAddressBook{}, &mockTokenExchanger{}, placer, guard)
}

func TestPlaceOrder_Success(t *testing.T) {
	carts := &mockCartAccess{cart: filledCart(t)}
	sessions := &mockSessionStore{session: completeSession()}
	placer := &mockOrderPlacer{order: &order.Order{ID: 42, OrderNumber: "ORD-20260901-00001"}}
	guard := &mockSubmitGuard{}
	svc := newTestService(carts, sessions, placer, guard)

	placed, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	require.NoError(t, err)
	assert.Equal(t, uint(42), placed.ID)
	assert.Equal(t, 1, placer.calls)
	assert.Equal(t, 1, sessions.clearCalls, "cart and session cleared together after commit")
	assert.Equal(t, 1, guard.releases)

	input := placer.inputs[0]
	assert.Equal(t, int64(5997), input.Subtotal)
	assert.Equal(t, int64(500), input.DeliveryFee)
	assert.Equal(t, int64(6497), input.Total)
	assert.Equal(t, "card", input.PaymentMethod)
	assert.Equal(t, "tok_1", input.PaymentRef)
	assert.Equal(t, "Asha", input.ShippingAddress.Name)
	require.Len(t, input.Items, 1)
	assert.Equal(t, 3, input.Items[0].Quantity)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	sessions := &mockSessionStore{session: completeSession()}
	placer := &mockOrderPlacer{}
	svc := newTestService(&mockCartAccess{}, sessions, placer, &mockSubmitGuard{})

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	assert.ErrorIs(t, err, ErrCartEmpty)
	assert.Equal(t, 0, placer.calls)
	assert.Equal(t, 0, sessions.clearCalls)
}

func TestPlaceOrder_MissingAddress(t *testing.T) {
	card := payment.NewCashOnDeliverySelection()
	sess := NewSession("sess-1")
	sess.Payment = &card
	sessions := &mockSessionStore{session: sess}
	placer := &mockOrderPlacer{}
	svc := newTestService(&mockCartAccess{cart: filledCart(t)}, sessions, placer, &mockSubmitGuard{})

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	assert.ErrorIs(t, err, ErrNoAddressSelected)
	assert.Equal(t, 0, placer.calls)
}

func TestPlaceOrder_MissingPayment(t *testing.T) {
	sess := NewSession("sess-1")
	sess.Address = &order.Address{Name: "Asha"}
	sessions := &mockSessionStore{session: sess}
	placer := &mockOrderPlacer{}
	svc := newTestService(&mockCartAccess{cart: filledCart(t)}, sessions, placer, &mockSubmitGuard{})

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	assert.ErrorIs(t, err, ErrNoPaymentSelected)
	assert.Equal(t, 0, placer.calls)
}

func TestPlaceOrder_FailureKeepsCartAndSession(t *testing.T) {
	carts := &mockCartAccess{cart: filledCart(t)}
	sessions := &mockSessionStore{session: completeSession()}
	placer := &mockOrderPlacer{err: errors.New("insert failed")}
	guard := &mockSubmitGuard{}
	svc := newTestService(carts, sessions, placer, guard)

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	require.Error(t, err)
	assert.Equal(t, 0, sessions.clearCalls, "failed placement must not clear checkout state")
	assert.Equal(t, 1, guard.releases, "lock released so the shopper can retry")
}

func TestPlaceOrder_SecondSubmissionWhileInFlight(t *testing.T) {
	carts := &mockCartAccess{cart: filledCart(t)}
	sessions := &mockSessionStore{session: completeSession()}
	placer := &mockOrderPlacer{order: &order.Order{ID: 42}}
	guard := &mockSubmitGuard{acquired: true} // someone already holds the lock
	svc := newTestService(carts, sessions, placer, guard)

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, 0, placer.calls, "exactly one submission reaches the order service")
}

func TestPlaceOrder_CouponCarriedOntoOrder(t *testing.T) {
	c := filledCart(t)
	require.NoError(t, c.ApplyCoupon(&coupon.Snapshot{
		Code: "SAVE10", Kind: coupon.KindPercentage, Value: 10, DiscountAmount: 599,
	}))
	placer := &mockOrderPlacer{order: &order.Order{ID: 1}}
	svc := newTestService(&mockCartAccess{cart: c}, &mockSessionStore{session: completeSession()}, placer, &mockSubmitGuard{})

	_, err := svc.PlaceOrder(context.Background(), "sess-1", 9, "asha@example.com")

	require.NoError(t, err)
	input := placer.inputs[0]
	assert.Equal(t, "SAVE10", input.CouponCode)
	assert.Equal(t, int64(599), input.Discount)
	assert.Equal(t, int64(5997-599+500), input.Total)
}

func TestSelectCashOnDelivery_NeverCallsTokenizer(t *testing.T) {
	sessions := &mockSessionStore{}
	tokenizer := &mockTokenExchanger{}
	svc := NewService(sessions, &mockCartAccess{}, &mockAddressBook{}, tokenizer, &mockOrderPlacer{}, &mockSubmitGuard{})

	sess, err := svc.SelectCashOnDelivery(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, 0, tokenizer.calls)
	assert.Equal(t, payment.MethodCashOnDelivery, sess.Payment.Method)
	assert.Nil(t, sess.Payment.Card)
}

func TestSelectCard_TokenizerFailureLeavesSelectionUntouched(t *testing.T) {
	existing := NewSession("sess-1")
	cod := payment.NewCashOnDeliverySelection()
	existing.Payment = &cod
	sessions := &mockSessionStore{session: existing}
	tokenizer := &mockTokenExchanger{err: &payment.TokenizationError{Code: "card_declined", Message: "Your card was declined."}}
	svc := NewService(sessions, &mockCartAccess{}, &mockAddressBook{}, tokenizer, &mockOrderPlacer{}, &mockSubmitGuard{})

	_, err := svc.SelectCard(context.Background(), "sess-1", "nonce-1")

	require.Error(t, err)
	var tokErr *payment.TokenizationError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "Your card was declined.", tokErr.Message)
	assert.Empty(t, sessions.saved, "failed exchange must not overwrite the session")
	assert.Equal(t, payment.MethodCashOnDelivery, existing.Payment.Method)
}

func TestSelectAddress_SnapshotsAddress(t *testing.T) {
	sessions := &mockSessionStore{}
	book := &mockAddressBook{address: &user.Address{
		ID: 7, UserID: 9, Name: "Asha", Phone: "5550001",
		FlatLine: "12B", AreaLine: "MG Road", City: "Pune", State: "MH", PostalCode: "411001",
	}}
	svc := NewService(sessions, &mockCartAccess{}, book, &mockTokenExchanger{}, &mockOrderPlacer{}, &mockSubmitGuard{})

	sess, err := svc.SelectAddress(context.Background(), "sess-1", 9, 7)

	require.NoError(t, err)
	require.NotNil(t, sess.Address)
	assert.Equal(t, "12B", sess.Address.FlatLine)
	assert.Equal(t, uint(7), sess.AddressID)
	require.Len(t, sessions.saved, 1)
}

func TestHandleAddressDeleted(t *testing.T) {
	t.Run("clears matching selection", func(t *testing.T) {
		sess := completeSession()
		sessions := &mockSessionStore{session: sess}
		svc := newTestService(&mockCartAccess{}, sessions, &mockOrderPlacer{}, &mockSubmitGuard{})

		require.NoError(t, svc.HandleAddressDeleted(context.Background(), "sess-1", 7))

		assert.Nil(t, sess.Address)
		require.Len(t, sessions.saved, 1)
	})

	t.Run("ignores unrelated address", func(t *testing.T) {
		sess := completeSession()
		sessions := &mockSessionStore{session: sess}
		svc := newTestService(&mockCartAccess{}, sessions, &mockOrderPlacer{}, &mockSubmitGuard{})

		require.NoError(t, svc.HandleAddressDeleted(context.Background(), "sess-1", 99))

		assert.NotNil(t, sess.Address)
		assert.Empty(t, sessions.saved)
	})
}

func TestGetSummary(t *testing.T) {
	carts := &mockCartAccess{cart: filledCart(t)}
	sessions := &mockSessionStore{session: completeSession()}
	svc := newTestService(carts, sessions, &mockOrderPlacer{}, &mockSubmitGuard{})

	summary, err := svc.GetSummary(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.True(t, summary.ReadyToPlace)
	assert.Equal(t, int64(6497), summary.Totals.GrandTotal)
	assert.Len(t, summary.Items, 1)
}
