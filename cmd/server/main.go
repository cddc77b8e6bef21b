package main

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/elod87/service-book-2/internal/cache"
	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/database"
	"github.com/elod87/service-book-2/internal/logger"
	"github.com/elod87/service-book-2/internal/routes"
)

func main() {
	cfg := config.Load()

	zapLog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLog.Sync()

	db := database.Connect(cfg.DatabaseURL)
	reportCache := cache.New(cfg.RedisAddr, zapLog)

	app := fiber.New(fiber.Config{
		AppName:      "Service Book Backend",
		ErrorHandler: errorHandler(zapLog),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowCredentials: true,
	}))

	routes.Register(app, db, cfg, zapLog, reportCache)

	zapLog.Info("starting server", zap.String("port", cfg.AppPort))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		zapLog.Fatal("fiber.Listen error", zap.Error(err))
	}
}

// errorHandler translates fiber errors to their status codes and logs
// everything else as an unhandled fault before answering 500. A bad
// request never takes the process down.
func errorHandler(zapLog *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		zapLog.Error("unhandled fault",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
