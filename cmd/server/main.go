package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/arister/internal/config"
	"github.com/example/arister/internal/database"
	"github.com/example/arister/internal/routes"
	"github.com/example/arister/internal/services"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	shiprocket, err := services.NewShiprocketService(cfg.Shiprocket)
	if err != nil {
		log.Fatalf("shiprocket init error: %v", err)
	}
	defer shiprocket.Close()

	mailer := services.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.AdminEmail)
	mailer.Start()

	app := fiber.New(fiber.Config{
		AppName: "Arister Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.Register(app, db, cfg, shiprocket, mailer)

	if _, err := shiprocket.Token(); err != nil {
		log.Printf("Shiprocket token warm-up failed: %v", err)
	}

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
