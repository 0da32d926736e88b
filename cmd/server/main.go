package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/blacktie/internal/config"
	"github.com/example/blacktie/internal/database"
	"github.com/example/blacktie/internal/events"
	"github.com/example/blacktie/internal/handlers"
	"github.com/example/blacktie/internal/routes"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	db := database.Connect(cfg.DatabaseURL)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		utils.InfoLogger.Info("redis unavailable, login rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.RabbitMQURL)
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	app := fiber.New(fiber.Config{
		AppName:      "Black Tie Backoffice",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, routes.Deps{
		DB:        db,
		Config:    cfg,
		Redis:     rdb,
		Publisher: publisher,
		Telegram:  services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
	})

	utils.InfoLogger.Infof("starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		utils.ErrorLogger.Fatalf("fiber.Listen error: %v", err)
	}
}
