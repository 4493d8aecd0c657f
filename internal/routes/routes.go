package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/brewcrafter/internal/config"
	"github.com/example/brewcrafter/internal/handlers"
	"github.com/example/brewcrafter/internal/middleware"
	"github.com/example/brewcrafter/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, cache *redis.Client) {
	mailer := services.NewMailer(cfg)
	tokens := services.NewJWTIssuer(cfg.JWTSecret, cfg.TokenExpires)
	authService := services.NewAuthService(services.NewGormUserStore(db), mailer, tokens)
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	authHandler := handlers.NewAuthHandler(authService)
	passwordResetHandler := handlers.NewPasswordResetHandler(db, mailer)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	orderHandler := handlers.NewOrderHandler(db, telegramService)
	inventoryHandler := handlers.NewInventoryHandler(db)
	profileHandler := handlers.NewProfileHandler(db)
	adminHandler := handlers.NewAdminHandler(db, authService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	rateLimited := middleware.LoginRateLimit(cache, cfg.LoginRateLimit)
	auth.Post("/register", authHandler.RegisterCustomer)
	auth.Post("/admin/register", authHandler.RegisterAdmin)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/login", rateLimited, authHandler.Login)
	auth.Post("/step-up/birthday", rateLimited, authHandler.StepUpBirthday)
	auth.Post("/step-up/verify", rateLimited, authHandler.StepUpOTP)
	auth.Post("/forgot-password", passwordResetHandler.ForgotPassword)
	auth.Post("/verify-reset-code", passwordResetHandler.VerifyResetCode)
	auth.Post("/reset-password", passwordResetHandler.ResetPassword)

	// Public menu
	categories := api.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Get("/:id", catalogHandler.GetCategory)

	// Public product routes must be registered before the auth middleware is
	// mounted on the /api prefix, or the middleware shadows them.
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart/items", cartHandler.AddItem)
	protected.Put("/cart/items/:id", cartHandler.UpdateItem)
	protected.Delete("/cart/items/:id", cartHandler.RemoveItem)
	protected.Delete("/cart", cartHandler.ClearCart)

	protected.Post("/orders", orderHandler.Checkout)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.RequireAdmin())

	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/customers", adminHandler.ListCustomers)
	admin.Get("/customers/:id", adminHandler.GetCustomer)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Get("/profile", profileHandler.GetProfile)
	admin.Put("/profile", profileHandler.UpdateProfile)
	admin.Put("/profile/password", adminHandler.ChangePassword)

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)

	adminProducts := admin.Group("/products")
	adminProducts.Post("/", productHandler.CreateProduct)
	adminProducts.Put("/:id", productHandler.UpdateProduct)
	adminProducts.Delete("/:id", productHandler.DeleteProduct)

	inventory := admin.Group("/inventory")
	inventory.Get("/", inventoryHandler.ListItems)
	inventory.Post("/", inventoryHandler.CreateItem)
	inventory.Put("/:id", inventoryHandler.UpdateItem)
	inventory.Post("/:id/adjust", inventoryHandler.AdjustQuantity)
	inventory.Delete("/:id", inventoryHandler.DeleteItem)
}
