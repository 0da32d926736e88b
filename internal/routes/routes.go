package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/example/blacktie/internal/config"
	"github.com/example/blacktie/internal/events"
	"github.com/example/blacktie/internal/handlers"
	"github.com/example/blacktie/internal/middleware"
	"github.com/example/blacktie/internal/models"
	"github.com/example/blacktie/internal/services"
)

// Deps carries the shared clients the routes are built on. Redis, Publisher
// and Telegram are optional.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Redis     *redis.Client
	Publisher events.Publisher
	Telegram  *services.TelegramService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	telegram := deps.Telegram
	if telegram == nil {
		telegram = services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	}

	activity := services.NewActivityLogger(deps.DB, publisher)
	authService := services.NewAuthService(deps.DB, activity, cfg.PinMaxAttempts, cfg.PinLockDuration)
	customerService := services.NewCustomerService(deps.DB, activity)
	orderService := services.NewOrderService(deps.DB, activity)
	garmentService := services.NewGarmentService(deps.DB, activity)

	authHandler := handlers.NewAuthHandler(authService, cfg)
	dashboardHandler := handlers.NewDashboardHandler(services.NewDashboardService(deps.DB))
	customerHandler := handlers.NewCustomerHandler(customerService)
	orderHandler := handlers.NewOrderHandler(orderService, customerService, garmentService, telegram)
	memberHandler := handlers.NewMemberHandler(garmentService)
	catalogHandler := handlers.NewCatalogHandler(garmentService)
	adminHandler := handlers.NewAdminHandler(services.NewAdminService(deps.DB, activity), authService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(cfg.RateLimit, deps.Redis), authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/", dashboardHandler.Snapshot)
	dashboard.Get("/kpis", dashboardHandler.KPIs)
	dashboard.Get("/today", dashboardHandler.TodaysFunctions)
	dashboard.Get("/upcoming", dashboardHandler.UpcomingFunctions)
	dashboard.Get("/activity", dashboardHandler.RecentActivity)

	customers := protected.Group("/customers")
	customers.Get("/", customerHandler.ListCustomers)
	customers.Get("/search", customerHandler.SearchCustomers)
	customers.Post("/", customerHandler.CreateCustomer)
	customers.Get("/:id", customerHandler.GetCustomer)
	customers.Get("/:id/orders", customerHandler.CustomerHistory)
	customers.Put("/:id", customerHandler.UpdateCustomer)
	customers.Delete("/:id", customerHandler.DeleteCustomer)

	orders := protected.Group("/orders")
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/search", orderHandler.SearchOrders)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Post("/wizard", orderHandler.CreateOrderWithParty)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Put("/:id", orderHandler.UpdateOrder)
	orders.Delete("/:id", orderHandler.DeleteOrder)
	orders.Get("/:id/members", orderHandler.ListMembers)
	orders.Post("/:id/members", orderHandler.AddMember)

	members := protected.Group("/members")
	members.Put("/:id", orderHandler.UpdateMember)
	members.Delete("/:id", orderHandler.DeleteMember)
	members.Get("/:id/garments", memberHandler.ListGarments)
	members.Post("/:id/garments", memberHandler.AssignGarment)
	members.Get("/:id/sizes", memberHandler.ListSizes)
	members.Get("/:id/sizes/latest", memberHandler.LatestSizes)
	members.Post("/:id/sizes", memberHandler.AddSize)

	protected.Put("/member-garments/:id", memberHandler.UpdateAssignment)
	protected.Delete("/member-garments/:id", memberHandler.RemoveAssignment)
	protected.Put("/member-sizes/:id", memberHandler.UpdateSize)

	categories := protected.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", catalogHandler.CreateCategory)
	categories.Put("/:id", catalogHandler.UpdateCategory)
	categories.Get("/:id/garments", catalogHandler.GarmentsByCategory)

	garments := protected.Group("/garments")
	garments.Get("/", catalogHandler.ListGarments)
	garments.Get("/search", catalogHandler.SearchGarments)
	garments.Post("/", catalogHandler.CreateGarment)
	garments.Get("/:id", catalogHandler.GetGarment)
	garments.Put("/:id", catalogHandler.UpdateGarment)
	garments.Delete("/:id", catalogHandler.DeleteGarment)

	// Settings are reserved for administrators
	settings := protected.Group("/settings", middleware.RequireRole(string(models.StaffRoleAdmin)))
	settings.Get("/pin-attempts", adminHandler.ListPinAttempts)
	settings.Delete("/pin-attempts/:hash", adminHandler.ResetPinAttempts)
	settings.Get("/staff", adminHandler.ListStaff)
	settings.Post("/staff", adminHandler.CreateStaff)

	// Unknown paths land on the dashboard or the login screen.
	app.Use(func(c *fiber.Ctx) error {
		target := "/login"
		if middleware.HasSession(cfg, c) {
			target = "/"
		}
		if c.Path() == target {
			return fiber.NewError(fiber.StatusNotFound, "not found")
		}
		return c.Redirect(target)
	})
}
