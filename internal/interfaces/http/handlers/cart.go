// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/coupon"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CartHandler {
	products := product.NewService(db, cfg)
	coupons := coupon.NewService(db, cfg)
	return &CartHandler{
		cartService: cart.NewService(redisClient, products, coupons, cfg),
		config:      cfg,
	}
}

// GetCart returns the cart with computed totals
func (h *CartHandler) GetCart(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	view, err := h.cartService.GetView(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

// AddItem adds a product variant to the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	view, err := h.cartService.AddItem(c.Request.Context(), sessionID, &req)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) || errors.Is(err, product.ErrVariantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"data":    view,
	})
}

// UpdateItem sets the quantity of a cart line; zero removes it
func (h *CartHandler) UpdateItem(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	view, err := h.cartService.UpdateItem(c.Request.Context(), sessionID, &req)
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"data":    view,
	})
}

// RemoveItem removes a cart line identified by product ID plus variant
// query parameters
func (h *CartHandler) RemoveItem(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	size := c.Query("size")
	color := c.Query("color")

	view, err := h.cartService.RemoveItem(c.Request.Context(), sessionID, uint(productID), size, color)
	if err != nil {
		if errors.Is(err, cart.ErrLineNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
		"data":    view,
	})
}

// ApplyCouponRequest carries the coupon code to apply
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyCoupon validates a coupon against the cart and applies it
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	view, err := h.cartService.ApplyCoupon(c.Request.Context(), sessionID, req.Code)
	if err != nil {
		c.JSON(couponErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon applied",
		"data":    view,
	})
}

// RemoveCoupon clears the applied coupon from the cart
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No checkout session"})
		return
	}

	view, err := h.cartService.RemoveCoupon(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon removed",
		"data":    view,
	})
}

// couponErrorStatus maps coupon validation failures to HTTP status codes
func couponErrorStatus(err error) int {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrCouponAlreadySet):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotStarted),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrBelowMinimum),
		errors.Is(err, coupon.ErrExhausted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
