// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	setupAuthRoutes(rg, db, cfg)
	setupProductRoutes(rg, db, cfg)
	setupCartRoutes(rg, db, redisClient, cfg)
	setupCheckoutRoutes(rg, db, redisClient, cfg)
	setupAddressRoutes(rg, db, redisClient, cfg)
	setupOrderRoutes(rg, db, cfg)
	setupAdminRoutes(rg, db, cfg)
}

func setupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/me", authHandler.GetCurrentUser)
			protected.PUT("/profile", authHandler.UpdateProfile)
		}
	}
}

func setupProductRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
	}
}

func setupCartRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg)

	cart := rg.Group("/cart")
	cart.Use(middleware.AuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items", cartHandler.UpdateItem)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
		cart.POST("/coupon", cartHandler.ApplyCoupon)
		cart.DELETE("/coupon", cartHandler.RemoveCoupon)
	}
}

func setupCheckoutRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	checkoutHandler := handlers.NewCheckoutHandler(db, redisClient, cfg)

	checkout := rg.Group("/checkout")
	checkout.Use(middleware.AuthMiddleware(cfg))
	{
		checkout.GET("/session", checkoutHandler.GetSession)
		checkout.PUT("/address", checkoutHandler.SelectAddress)
		checkout.DELETE("/address", checkoutHandler.ClearAddress)
		checkout.PUT("/payment/card", checkoutHandler.SelectCard)
		checkout.PUT("/payment/cod", checkoutHandler.SelectCashOnDelivery)
		checkout.DELETE("/payment", checkoutHandler.ClearPayment)
		checkout.GET("/summary", checkoutHandler.GetSummary)
		checkout.POST("/place-order", checkoutHandler.PlaceOrder)
	}
}

func setupAddressRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	addressHandler := handlers.NewAddressHandler(db, redisClient, cfg)

	addresses := rg.Group("/addresses")
	addresses.Use(middleware.AuthMiddleware(cfg))
	{
		addresses.GET("", addressHandler.GetAddresses)
		addresses.POST("", addressHandler.CreateAddress)
		addresses.GET("/:id", addressHandler.GetAddress)
		addresses.PUT("/:id", addressHandler.UpdateAddress)
		addresses.DELETE("/:id", addressHandler.DeleteAddress)
	}
}

func setupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(db, cfg)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetMyOrders)
		orders.GET("/:id", orderHandler.GetMyOrder)
		orders.POST("/:id/cancel", orderHandler.CancelMyOrder)
		orders.GET("/:id/invoice", invoiceHandler.DownloadInvoice)
	}
}

func setupAdminRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)
	orderHandler := handlers.NewOrderHandler(db, cfg)
	couponHandler := handlers.NewCouponHandler(db, cfg)
	customerHandler := handlers.NewCustomerHandler(db, cfg)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		products := admin.Group("/products")
		{
			products.GET("", productHandler.AdminGetProducts)
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.AdminGetOrders)
			orders.GET("/:id", orderHandler.AdminGetOrder)
			orders.PUT("/:id/status", orderHandler.AdminUpdateOrderStatus)
		}

		coupons := admin.Group("/coupons")
		{
			coupons.GET("", couponHandler.GetCoupons)
			coupons.POST("", couponHandler.CreateCoupon)
			coupons.GET("/:id", couponHandler.GetCoupon)
			coupons.PUT("/:id", couponHandler.UpdateCoupon)
			coupons.DELETE("/:id", couponHandler.DeleteCoupon)
		}

		customers := admin.Group("/customers")
		{
			customers.GET("", customerHandler.GetCustomers)
			customers.GET("/:id", customerHandler.GetCustomer)
			customers.PUT("/:id/status", customerHandler.SetCustomerStatus)
		}
	}
}
