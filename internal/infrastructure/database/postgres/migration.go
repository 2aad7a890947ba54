// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/your-org/storefront-api/internal/domain/coupon"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/product"
	"github.com/your-org/storefront-api/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// User domain - Base tables
		&user.User{},
		&user.Address{},

		// Product domain
		&product.Category{},
		&product.Product{},
		&product.ProductVariant{},

		// Coupon domain
		&coupon.Coupon{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes not covered by struct tags
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_coupons_code_upper ON coupons (UPPER(code))",
		"CREATE INDEX IF NOT EXISTS idx_products_active_category ON products (is_active, category_id)",
	}

	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// SeedInitialData seeds development data: an admin, a category, a few products and coupons
func (m *Migration) SeedInitialData() error {
	// Admin user
	var adminCount int64
	m.db.Model(&user.User{}).Where("is_admin = ?", true).Count(&adminCount)
	if adminCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("Admin@123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		admin := user.User{
			Email:     "admin@example.com",
			Password:  string(hash),
			FirstName: "Admin",
			LastName:  "User",
			IsActive:  true,
			IsAdmin:   true,
		}
		if err := m.db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	// Catalog
	var categoryCount int64
	m.db.Model(&product.Category{}).Count(&categoryCount)
	if categoryCount == 0 {
		category := product.Category{
			Name:     "Apparel",
			Slug:     "apparel",
			IsActive: true,
		}
		if err := m.db.Create(&category).Error; err != nil {
			return fmt.Errorf("failed to seed category: %w", err)
		}

		products := []product.Product{
			{
				SKU:        "TEE-001",
				Name:       "Classic Tee",
				Slug:       "classic-tee",
				PriceMin:   1999, // $19.99
				CategoryID: category.ID,
				IsActive:   true,
				Variants: []product.ProductVariant{
					{Size: "S", Color: "Black", Price: 1999, IsActive: true},
					{Size: "M", Color: "Black", Price: 1999, IsActive: true},
					{Size: "L", Color: "White", Price: 2199, IsActive: true},
				},
			},
			{
				SKU:        "HOOD-001",
				Name:       "Zip Hoodie",
				Slug:       "zip-hoodie",
				PriceMin:   4999, // $49.99
				CategoryID: category.ID,
				IsActive:   true,
				Variants: []product.ProductVariant{
					{Size: "M", Color: "Grey", Price: 4999, IsActive: true},
					{Size: "L", Color: "Grey", Price: 4999, IsActive: true},
				},
			},
		}
		for i := range products {
			if err := m.db.Create(&products[i]).Error; err != nil {
				return fmt.Errorf("failed to seed product: %w", err)
			}
		}
	}

	// Coupons
	var couponCount int64
	m.db.Model(&coupon.Coupon{}).Count(&couponCount)
	if couponCount == 0 {
		now := time.Now().UTC()
		coupons := []coupon.Coupon{
			{
				Code:        "SAVE10",
				Kind:        coupon.KindPercentage,
				Value:       10,
				MinPurchase: 2500,
				MaxDiscount: 5000,
				StartsAt:    now.AddDate(0, -1, 0),
				EndsAt:      now.AddDate(0, 6, 0),
				IsActive:    true,
			},
			{
				Code:        "FLAT500",
				Kind:        coupon.KindFixedAmount,
				Value:       500,
				MinPurchase: 5000,
				StartsAt:    now.AddDate(0, -1, 0),
				EndsAt:      now.AddDate(0, 6, 0),
				IsActive:    true,
				UsageLimit:  100,
			},
		}
		for i := range coupons {
			if err := m.db.Create(&coupons[i]).Error; err != nil {
				return fmt.Errorf("failed to seed coupon: %w", err)
			}
		}
	}

	log.Println("✅ Initial data seeded")
	return nil
}
