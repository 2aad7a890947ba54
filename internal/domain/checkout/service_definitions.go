// internal/domain/checkout/service_definitions.go
package checkout

import (
	"context"

	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
	"github.com/your-org/storefront-api/internal/domain/user"
)

// CartAccess reads and clears the shopper's cart
type CartAccess interface {
	Get(ctx context.Context, sessionID string) (*cart.SessionCart, error)
	ComputeTotals(c *cart.SessionCart) cart.Totals
}

// SessionStore persists checkout sessions and clears them together with
// the cart once an order is placed
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	ClearWithCart(ctx context.Context, sessionID string) error
}

// AddressBook resolves a shopper's saved addresses
type AddressBook interface {
	GetAddress(userID, addressID uint) (*user.Address, error)
}

// TokenExchanger swaps a client-side card nonce for a reusable token.
// Raw card numbers never reach this service.
type TokenExchanger interface {
	Exchange(ctx context.Context, nonce string) (*payment.CardDetails, error)
}

// OrderPlacer persists a new order transactionally
type OrderPlacer interface {
	Place(ctx context.Context, userID uint, input *order.PlaceOrderInput) (*order.Order, error)
}

// SubmitGuard serializes order submission per session so a double-submitted
// review form yields exactly one order
type SubmitGuard interface {
	TryAcquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string)
}
