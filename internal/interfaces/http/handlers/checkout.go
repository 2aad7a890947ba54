// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/checkout"
	"github.com/your-org/storefront-api/internal/domain/coupon"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CheckoutHandler handles the checkout flow endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	config          *config.Config
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: newCheckoutService(db, redisClient, cfg),
		config:          cfg,
	}
}

// newCheckoutService wires the checkout service over its concrete
// collaborators. Shared with the address handler, which needs to clear a
// deleted address out of the checkout session.
func newCheckoutService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *checkout.Service {
	products := product.NewService(db, cfg)
	coupons := coupon.NewService(db, cfg)
	carts := cart.NewService(redisClient, products, coupons, cfg)
	sessions := checkout.NewRedisStore(redisClient, cfg.Checkout.SessionTTL)
	addresses := user.NewAddressService(db, cfg)
	tokenizer := payment.NewTokenizerClient(cfg)
	orders := order.NewService(db, coupons, cfg)
	guard := checkout.NewRedisSubmitGuard(redisClient, 30*time.Second)

	return checkout.NewService(sessions, carts, addresses, tokenizer, orders, guard)
}

// GetSession returns the shopper's checkout progress
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	sess, err := h.checkoutService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sess})
}

// SelectAddressRequest picks a saved address for delivery
type SelectAddressRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
}

// SelectAddress snapshots a saved address into the checkout session
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.checkoutService.SelectAddress(c.Request.Context(), sessionID, userID, req.AddressID)
	if err != nil {
		if errors.Is(err, user.ErrAddressNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delivery address selected",
		"data":    sess,
	})
}

// ClearAddress drops the selected delivery address
func (h *CheckoutHandler) ClearAddress(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	sess, err := h.checkoutService.ClearAddress(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delivery address cleared",
		"data":    sess,
	})
}

// SelectCardRequest carries the one-time nonce produced by the payment
// widget in the shopper's browser. Card numbers never reach this API.
type SelectCardRequest struct {
	Nonce string `json:"nonce" binding:"required"`
}

// SelectCard exchanges the nonce for a card token and selects card payment
func (h *CheckoutHandler) SelectCard(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	var req SelectCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.checkoutService.SelectCard(c.Request.Context(), sessionID, req.Nonce)
	if err != nil {
		var tokErr *payment.TokenizationError
		if errors.As(err, &tokErr) {
			// surface the gateway's message word for word
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": tokErr.Message,
				"code":  tokErr.Code,
			})
			return
		}
		if errors.Is(err, payment.ErrTokenizerUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment service is temporarily unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select payment method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Card selected",
		"data":    sess,
	})
}

// SelectCashOnDelivery selects cash on delivery as the payment method
func (h *CheckoutHandler) SelectCashOnDelivery(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	sess, err := h.checkoutService.SelectCashOnDelivery(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select payment method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cash on delivery selected",
		"data":    sess,
	})
}

// ClearPayment drops the selected payment method
func (h *CheckoutHandler) ClearPayment(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	sess, err := h.checkoutService.ClearPayment(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment method cleared",
		"data":    sess,
	})
}

// GetSummary returns the review-step summary
func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	summary, err := h.checkoutService.GetSummary(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build checkout summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// PlaceOrder submits the order
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	email, _ := middleware.GetUserEmailFromContext(c)

	placed, err := h.checkoutService.PlaceOrder(c.Request.Context(), sessionID, userID, email)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrCartEmpty),
			errors.Is(err, checkout.ErrNoAddressSelected),
			errors.Is(err, checkout.ErrNoPaymentSelected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, checkout.ErrSubmissionInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, coupon.ErrExhausted):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    placed,
	})
}
