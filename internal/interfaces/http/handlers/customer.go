// internal/interfaces/http/handlers/customer.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/user"
	"gorm.io/gorm"
)

// CustomerHandler handles back-office customer management
type CustomerHandler struct {
	userService *user.Service
	config      *config.Config
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(db *gorm.DB, cfg *config.Config) *CustomerHandler {
	return &CustomerHandler{
		userService: user.NewService(db, cfg),
		config:      cfg,
	}
}

// GetCustomers lists customers, optionally filtered by a search term
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	var req user.CustomerListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.userService.ListCustomers(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": response})
}

// GetCustomer returns a single customer profile
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customerID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	u, err := h.userService.GetUser(customerID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": u})
}

// SetCustomerStatusRequest enables or disables a customer account
type SetCustomerStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetCustomerStatus enables or disables a customer account
func (h *CustomerHandler) SetCustomerStatus(c *gin.Context) {
	customerID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID"})
		return
	}

	var req SetCustomerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.userService.SetCustomerStatus(customerID, *req.IsActive); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Customer status updated",
	})
}
