package api

import (
	"net/http"

	"storefront_api/internal/config"
	"storefront_api/internal/middleware"
	"storefront_api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds what the HTTP handlers need
type Server struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Config  *config.Config
	Images  storage.ImageStore
	Session middleware.SessionOptions
}

// HealthHandler reports whether the database and Redis answer
func HealthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "ok"}
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["status"], status["database"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			// Redis only backs caches and rate limits
			status["status"], status["redis"] = "degraded", "unreachable"
		}
		c.JSON(code, status)
	}
}

// NewRouter builds the engine with every route and middleware
func NewRouter(s Server) *gin.Engine {
	useJSONFieldNames()
	db, rdb, cfg := s.DB, s.Redis, s.Config
	limits := cfg.RateLimits

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware()) // Tag every request
	r.Use(middleware.RequestLogger())       // Access log
	r.Use(middleware.Recovery())            // JSON 500 on panic
	r.Use(middleware.MetricsMiddleware())   // Prometheus HTTP metrics
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/health", HealthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if local, ok := s.Images.(*storage.LocalStore); ok {
		r.Static("/uploads", local.Dir()) // Serve locally stored images
	}

	authLimit := middleware.RateLimitMiddleware(rdb, middleware.BucketAuth, limits.Auth)
	uploadLimit := middleware.RateLimitMiddleware(rdb, middleware.BucketUpload, limits.Upload)
	searchLimit := middleware.RateLimitMiddleware(rdb, middleware.BucketSearch, limits.Search)
	orderLimit := middleware.RateLimitMiddleware(rdb, middleware.BucketOrder, limits.Order)

	api := r.Group("/api", middleware.RateLimitMiddleware(rdb, middleware.BucketGlobal, limits.Global))
	{
		// Storefront catalog
		api.GET("/products", ListProductsHandler(db, rdb))
		api.GET("/products/:id", GetProductHandler(db))
		api.GET("/slugs/:slug", GetProductBySlugHandler(db))
		api.GET("/search", searchLimit, SearchProductsHandler(db, rdb))
		api.GET("/categories", ListCategoriesHandler(db, rdb))
		api.GET("/categories/:id", GetCategoryHandler(db))
		api.GET("/images/:id", ListProductImagesHandler(db))
		api.GET("/settings", ListSettingsHandler(db, rdb))
		api.GET("/settings/:key", GetSettingHandler(db))

		// Checkout
		api.POST("/orders", orderLimit, CreateOrderHandler(db, rdb))
		api.POST("/order-product", orderLimit, CreateOrderProductHandler(db))

		// Storefront accounts
		api.POST("/auth/register", authLimit, RegisterHandler(db))
		api.POST("/auth/login", authLimit, LoginHandler(db, cfg.JWTSecret))
		api.GET("/auth/me", middleware.JWTAuthMiddleware(cfg.JWTSecret), MeHandler(db))

		// Admin session
		api.POST("/admin/login", authLimit, AdminLoginHandler(db, s.Session))
		api.POST("/admin/logout", AdminLogoutHandler(s.Session))
	}

	admin := api.Group("", middleware.AdminSessionMiddleware(s.Session), middleware.AdminOnlyMiddleware(db))
	{
		admin.GET("/admin/session", AdminSessionHandler())

		admin.POST("/products", CreateProductHandler(db))
		admin.PUT("/products/:id", UpdateProductHandler(db))
		admin.DELETE("/products/:id", DeleteProductHandler(db))

		admin.POST("/categories", CreateCategoryHandler(db, rdb))
		admin.PUT("/categories/:id", UpdateCategoryHandler(db, rdb))
		admin.DELETE("/categories/:id", DeleteCategoryHandler(db, rdb))

		admin.GET("/orders", ListOrdersHandler(db, rdb))
		admin.GET("/orders/:id", GetOrderHandler(db))
		admin.PUT("/orders/:id", UpdateOrderHandler(db, rdb))
		admin.DELETE("/orders/:id", DeleteOrderHandler(db, rdb))
		admin.GET("/order-product/:id", ListOrderProductsHandler(db))

		admin.GET("/users", ListUsersHandler(db))
		admin.POST("/users", CreateUserHandler(db))
		admin.GET("/users/:id", GetUserHandler(db))
		admin.GET("/users/email/:email", GetUserByEmailHandler(db))
		admin.PUT("/users/:id", UpdateUserHandler(db))
		admin.DELETE("/users/:id", DeleteUserHandler(db))

		admin.GET("/merchants", ListMerchantsHandler(db))
		admin.POST("/merchants", CreateMerchantHandler(db))
		admin.GET("/merchants/:id", GetMerchantHandler(db))
		admin.PUT("/merchants/:id", UpdateMerchantHandler(db))
		admin.DELETE("/merchants/:id", DeleteMerchantHandler(db))

		admin.POST("/images", CreateImageHandler(db))
		admin.PUT("/images/:id", UpdateImageHandler(db))
		admin.DELETE("/images/:id", DeleteProductImagesHandler(db))
		admin.POST("/main-image", uploadLimit, UploadMainImageHandler(s.Images))

		admin.PUT("/settings/:key", PutSettingHandler(db, rdb))

		admin.POST("/bulk-upload", uploadLimit, UploadBulkHandler(db, rdb))
		admin.GET("/bulk-upload", ListBatchesHandler(db, rdb))
		admin.GET("/bulk-upload/:id", GetBatchHandler(db))
		admin.DELETE("/bulk-upload/:id", DeleteBatchHandler(db, rdb))
	}
	return r
}
