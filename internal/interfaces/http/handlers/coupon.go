// internal/interfaces/http/handlers/coupon.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/coupon"
	"gorm.io/gorm"
)

// CouponHandler handles back-office coupon management
type CouponHandler struct {
	couponService *coupon.Service
	config        *config.Config
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(db *gorm.DB, cfg *config.Config) *CouponHandler {
	return &CouponHandler{
		couponService: coupon.NewService(db, cfg),
		config:        cfg,
	}
}

// GetCoupons lists all coupons
func (h *CouponHandler) GetCoupons(c *gin.Context) {
	coupons, err := h.couponService.GetCoupons()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve coupons"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": coupons})
}

// GetCoupon returns a single coupon
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	couponID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	cpn, err := h.couponService.GetCoupon(couponID)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve coupon"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cpn})
}

// CreateCoupon creates a coupon
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req coupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cpn, err := h.couponService.CreateCoupon(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    cpn,
	})
}

// UpdateCoupon edits a coupon
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	couponID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	var req coupon.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cpn, err := h.couponService.UpdateCoupon(couponID, &req)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully",
		"data":    cpn,
	})
}

// DeleteCoupon removes a coupon
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	couponID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	if err := h.couponService.DeleteCoupon(couponID); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete coupon"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon deleted successfully",
	})
}
