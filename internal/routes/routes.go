package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/cache"
	"github.com/IvoireMarket/shop-api/internal/config"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/handlers"
	infraRepo "github.com/IvoireMarket/shop-api/internal/infra/repository"
	"github.com/IvoireMarket/shop-api/internal/mailer"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/storage"
	"github.com/IvoireMarket/shop-api/internal/token"
	ucCheckout "github.com/IvoireMarket/shop-api/internal/usecase/checkout"
)

// Deps carries the externally-constructed collaborators so main owns every
// lifecycle (no package-level singletons).
type Deps struct {
	Cache    *cache.Cache
	Producer events.Producer
	Store    storage.Store
	Mailer   mailer.Mailer
	Audit    *audit.Dispatcher
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, deps Deps) {

	// ======================================================
	// INFRA
	// ======================================================
	codec := token.NewCodec(cfg.JWTSecret)

	auditDispatcher := deps.Audit
	if auditDispatcher == nil {
		auditDispatcher = audit.NewDispatcher(audit.New(db))
	}

	checkoutRepo := infraRepo.NewCheckoutGormRepository(db)

	// ======================================================
	// USE CASES
	// ======================================================
	createOrderUC := ucCheckout.NewCreateOrder(
		checkoutRepo,
		auditDispatcher,
		deps.Producer,
		deps.Mailer,
	)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg, codec)
	productHandler := handlers.NewProductHandler(db, deps.Cache, auditDispatcher)
	categoryHandler := handlers.NewCategoryHandler(db, auditDispatcher)
	orderHandler := handlers.NewOrderHandler(db, createOrderUC, codec, auditDispatcher, deps.Producer)
	deliveryHandler := handlers.NewDeliveryHandler(db, auditDispatcher, deps.Producer)
	userHandler := handlers.NewUserHandler(db, auditDispatcher)
	bannerHandler := handlers.NewBannerHandler(db, auditDispatcher)
	settingHandler := handlers.NewSettingHandler(db, deps.Cache)
	uploadHandler := handlers.NewUploadHandler(deps.Store)

	authMW := middleware.AuthMiddleware(codec)
	adminMW := middleware.RequireAdmin()
	courierMW := middleware.RequireRole("admin", "delivery")

	// ======================================================
	// API
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/register-admin", authHandler.RegisterAdmin)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authMW, authHandler.Me)
		api.POST("/auth/refresh", authMW, authHandler.Refresh)

		// ------------------------------
		// STOREFRONT (public)
		// ------------------------------
		api.GET("/products", productHandler.List)
		api.GET("/products/:id", productHandler.Get)
		api.GET("/categories", categoryHandler.List)
		api.GET("/categories/:id", categoryHandler.Get)
		api.GET("/banners", bannerHandler.List)
		api.GET("/banners/:id", bannerHandler.Get)
		api.GET("/settings", settingHandler.Get)

		// guest checkout stays tokenless
		api.POST("/orders", orderHandler.Create)

		// ------------------------------
		// AUTHENTICATED
		// ------------------------------
		secured := api.Group("/", authMW)
		{
			secured.GET("/orders/:id", orderHandler.Get)
			secured.DELETE("/orders/:id", orderHandler.Delete)

			secured.POST("/uploads", uploadHandler.Upload)

			secured.PATCH("/users/me", userHandler.UpdateSelf)

			// courier-facing delivery surface
			courier := secured.Group("/deliveries", courierMW)
			{
				courier.GET("/:id", deliveryHandler.Get)
				courier.GET("/:id/positions", deliveryHandler.History)
				courier.POST("/:id/positions", deliveryHandler.RecordPosition)
				courier.PATCH("/:id/status", deliveryHandler.UpdateStatus)
			}

			// ------------------------------
			// ADMIN
			// ------------------------------
			admin := secured.Group("/", adminMW)
			{
				admin.POST("/products", productHandler.Create)
				admin.PUT("/products/:id", productHandler.Update)
				admin.DELETE("/products/:id", productHandler.Delete)

				admin.POST("/categories", categoryHandler.Create)
				admin.PUT("/categories/:id", categoryHandler.Update)
				admin.DELETE("/categories/:id", categoryHandler.Delete)

				admin.GET("/orders", orderHandler.List)
				admin.PATCH("/orders/:id/status", orderHandler.UpdateStatus)

				admin.GET("/deliveries", deliveryHandler.List)
				admin.POST("/deliveries", deliveryHandler.Create)

				admin.GET("/users", userHandler.List)
				admin.GET("/users/:id", userHandler.Get)
				admin.POST("/users", userHandler.Create)
				admin.PATCH("/users/:id", userHandler.Update)
				admin.DELETE("/users/:id", userHandler.Delete)

				admin.POST("/banners", bannerHandler.Create)
				admin.PUT("/banners/:id", bannerHandler.Update)
				admin.DELETE("/banners/:id", bannerHandler.Delete)

				admin.POST("/settings", settingHandler.Upsert)
			}
		}
	}
}
