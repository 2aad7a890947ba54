// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/storefront-api/internal/config"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not available")
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	SortBy     string `form:"sort_by,default=created_at"`
	SortOrder  string `form:"sort_order,default=desc"`
	Featured   *bool  `form:"featured"`
}

// ProductListResponse represents a paginated product listing
type ProductListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU         string                 `json:"sku" binding:"required"`
	Name        string                 `json:"name" binding:"required"`
	Slug        string                 `json:"slug" binding:"required"`
	Description string                 `json:"description"`
	CategoryID  uint                   `json:"category_id" binding:"required"`
	ImageURL    string                 `json:"image_url"`
	IsActive    bool                   `json:"is_active"`
	IsFeatured  bool                   `json:"is_featured"`
	Variants    []CreateVariantRequest `json:"variants" binding:"required,min=1,dive"`
}

// CreateVariantRequest represents a variant within product creation
type CreateVariantRequest struct {
	Size  string `json:"size" binding:"required"`
	Color string `json:"color" binding:"required"`
	Price int64  `json:"price" binding:"required,min=1"`
}

// UpdateProductRequest represents product update data
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CategoryID  *uint   `json:"category_id"`
	ImageURL    *string `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
	IsFeatured  *bool   `json:"is_featured"`
}

// GetProducts retrieves active products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	return s.listProducts(req, true)
}

// AdminGetProducts retrieves all products including inactive ones
func (s *Service) AdminGetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	return s.listProducts(req, false)
}

func (s *Service) listProducts(req *ProductListRequest, activeOnly bool) (*ProductListResponse, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{}).Preload("Category").Preload("Variants")

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Featured != nil {
		query = query.Where("is_featured = ?", *req.Featured)
	}
	if req.Search != "" {
		pattern := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductListResponse{
		Products: products,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a single active product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var prod Product
	result := s.db.Preload("Category").Preload("Variants").
		Where("id = ? AND is_active = ?", id, true).
		First(&prod)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	return &prod, nil
}

// GetProductBySlug retrieves a single active product by slug
func (s *Service) GetProductBySlug(slug string) (*Product, error) {
	var prod Product
	result := s.db.Preload("Category").Preload("Variants").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&prod)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	return &prod, nil
}

// GetVariant retrieves one purchasable variant of a product by size and color
func (s *Service) GetVariant(productID uint, size, color string) (*Product, *ProductVariant, error) {
	prod, err := s.GetProduct(productID)
	if err != nil {
		return nil, nil, err
	}

	for i := range prod.Variants {
		v := &prod.Variants[i]
		if v.IsActive && v.Size == size && v.Color == color {
			return prod, v, nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %s/%s for product '%s'", ErrVariantNotFound, size, color, prod.Name)
}

// CreateProduct creates a new product with its variants
func (s *Service) CreateProduct(req *CreateProductRequest) (*Product, error) {
	var category Category
	if err := s.db.First(&category, req.CategoryID).Error; err != nil {
		return nil, fmt.Errorf("category not found")
	}

	prod := Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsActive:    req.IsActive,
		IsFeatured:  req.IsFeatured,
	}

	prod.PriceMin = req.Variants[0].Price
	for _, v := range req.Variants {
		if v.Price < prod.PriceMin {
			prod.PriceMin = v.Price
		}
		prod.Variants = append(prod.Variants, ProductVariant{
			Size:     v.Size,
			Color:    v.Color,
			Price:    v.Price,
			IsActive: true,
		})
	}

	if err := s.db.Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return &prod, nil
}

// UpdateProduct updates an existing product
func (s *Service) UpdateProduct(id uint, req *UpdateProductRequest) (*Product, error) {
	var prod Product
	if err := s.db.First(&prod, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	if len(updates) > 0 {
		if err := s.db.Model(&prod).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	if err := s.db.Preload("Category").Preload("Variants").First(&prod, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}

	return &prod, nil
}

// DeleteProduct soft-deletes a product
func (s *Service) DeleteProduct(id uint) error {
	result := s.db.Delete(&Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product not found")
	}
	return nil
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
		"price_min":  true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
