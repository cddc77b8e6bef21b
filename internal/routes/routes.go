package routes

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elod87/service-book-2/internal/cache"
	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/handlers"
	"github.com/elod87/service-book-2/internal/middleware"
	"github.com/elod87/service-book-2/internal/services"
	"github.com/elod87/service-book-2/internal/token"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log *zap.Logger, reportCache *cache.Cache) {
	maker := token.NewMaker(cfg.Secrets)
	validate := validator.New()

	mailService := services.NewMailService(cfg, log)
	syncService := services.NewSyncService(db)
	googleService := services.NewGoogleService(cfg)

	authHandler := handlers.NewAuthHandler(db, cfg, maker, googleService, mailService, log)
	userHandler := handlers.NewUserHandler(db, cfg, maker, mailService, validate, log)
	customerHandler := handlers.NewCustomerHandler(db, syncService, validate, log)
	deviceHandler := handlers.NewDeviceHandler(db, syncService, validate, log)
	actionHandler := handlers.NewActionHandler(db, syncService, validate, log)
	serviceHandler := handlers.NewServiceHandler(db, validate, log)
	reportHandler := handlers.NewReportHandler(db, reportCache)
	importHandler := handlers.NewImportHandler(db, cfg, log)

	authRequired := middleware.AuthMiddleware(maker)

	auth := app.Group("/auth")
	auth.Post("/", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/validate", authHandler.Validate)
	auth.Get("/google", authHandler.GoogleLogin)
	auth.Get("/google/redirect", authHandler.GoogleRedirect)

	users := app.Group("/users")
	users.Get("/me", authRequired, userHandler.Me)
	users.Post("/", userHandler.Register)
	users.Put("/:id", authRequired, userHandler.Update)
	users.Post("/forgotpassword", userHandler.ForgotPassword)
	users.Post("/resetpassword", userHandler.ResetPassword)
	users.Post("/changepassword", authRequired, userHandler.ChangePassword)
	users.Get("/validate/:userId/:token", userHandler.ValidateMail)
	users.Get("/approve/:userId/:token/:approved", userHandler.Approve)

	customers := app.Group("/customers")
	customers.Get("/", authRequired, customerHandler.List)
	customers.Post("/", authRequired, customerHandler.Create)
	customers.Get("/:id", customerHandler.Get)
	customers.Put("/:id", authRequired, customerHandler.Update)
	customers.Delete("/:id", authRequired, customerHandler.Delete)

	devices := app.Group("/devices")
	devices.Get("/", authRequired, deviceHandler.List)
	devices.Post("/", authRequired, deviceHandler.Create)
	devices.Get("/:id", deviceHandler.Get)
	devices.Put("/:id", authRequired, deviceHandler.Update)
	devices.Delete("/:id", authRequired, deviceHandler.Delete)

	actions := app.Group("/actions")
	actions.Get("/", authRequired, actionHandler.List)
	actions.Post("/", authRequired, actionHandler.Create)
	actions.Get("/:id", actionHandler.Get)
	actions.Put("/:id", authRequired, actionHandler.Update)
	actions.Delete("/:id", authRequired, actionHandler.Delete)

	servicesGroup := app.Group("/services")
	servicesGroup.Get("/", authRequired, serviceHandler.List)
	servicesGroup.Post("/", authRequired, serviceHandler.Create)
	servicesGroup.Get("/:id", serviceHandler.Get)
	servicesGroup.Put("/:id", authRequired, serviceHandler.Update)
	servicesGroup.Delete("/:id", authRequired, serviceHandler.Delete)

	reports := app.Group("/reports", authRequired)
	reports.Get("/earningsPerMonth", reportHandler.EarningsPerMonth)
	reports.Post("/serviceCount", reportHandler.ServiceCount)

	app.Get("/import", authRequired, importHandler.Run)
}
