package main

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/config"
	"github.com/soportelantia/libercopy-sub001/internal/gateway"
	"github.com/soportelantia/libercopy-sub001/internal/handlers"
	"github.com/soportelantia/libercopy-sub001/internal/notification"
	"github.com/soportelantia/libercopy-sub001/internal/repository"
	"github.com/soportelantia/libercopy-sub001/internal/service"
	"github.com/soportelantia/libercopy-sub001/internal/signature"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	cfg := config.Load()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	rabbitClient := notification.NewClient(notification.RabbitMQConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.RabbitExchange,
	}, log)
	if err := rabbitClient.Connect(); err != nil {
		log.Fatalw("rabbitmq connection failed", "error", err)
	}
	defer rabbitClient.Close()

	// Dependencies injection
	orderRepo := repository.NewOrderRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	userRepo := repository.NewUserRepository(db)

	notifier := notification.NewPublisher(rabbitClient, log)
	callLog := calllog.NewBuffer(cfg.CallbackLogSize)

	redsysVerifier := signature.NewRedsysVerifier(cfg.RedsysSecret)
	paypalVerifier := signature.NewPayPalWebhookVerifier(cfg.PayPalWebhookID, cfg.PayPalClientSecret)

	paypalClient := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Timeout:      cfg.ProviderTimeout,
	})

	reconciler := service.NewReconciler(orderRepo, historyRepo, discountRepo, userRepo, notifier, log)
	resolver := service.NewResolver(referenceRepo)
	initiator := service.NewInitiator(orderRepo, referenceRepo, redsysVerifier, service.InitiatorConfig{
		GatewayFormURL: "https://sis.redsys.es/sis/realizarPago",
		MerchantCode:   cfg.RedsysMerchantCode,
		Terminal:       cfg.RedsysTerminal,
		PublicBaseURL:  cfg.PublicBaseURL,
		FrontendURL:    cfg.FrontendBaseURL,
	}, log)

	handler := handlers.New(handlers.Deps{
		Reconciler:     reconciler,
		Resolver:       resolver,
		Initiator:      initiator,
		Orders:         orderRepo,
		History:        historyRepo,
		PayPalVerifier: paypalVerifier,
		RedsysVerifier: redsysVerifier,
		PayPal:         paypalClient,
		CallLog:        callLog,
		Logger:         log,
		FrontendURL:    cfg.FrontendBaseURL,
	})

	app := setupFiberApp(log)
	setupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("payment service shutting down")
		if err := app.Shutdown(); err != nil {
			log.Errorw("shutdown error", "error", err)
		}
	}()

	log.Infow("payment service listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalw("server start failed", "error", err)
	}
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("database open error: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping error: %w", err)
	}

	return db, nil
}

func setupFiberApp(log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Payment Service v1.0",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}

			log.Errorw("request error", "path", c.Path(), "error", err)

			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	return app
}

func setupRoutes(app *fiber.App, handler *handlers.Handler) {
	api := app.Group("/api/v1")

	api.Get("/health", handler.HealthCheck)

	callbacks := api.Group("/callbacks")
	callbacks.Post("/paypal/webhook", handler.PayPalWebhook)
	callbacks.Get("/paypal/return", handler.PayPalReturn)
	callbacks.Post("/gateway", handler.GatewayCallback)

	payments := api.Group("/payments")
	payments.Post("/initiate", handler.InitiatePayment)
	payments.Post("/confirm", handler.ConfirmPayment)

	api.Get("/orders/:id", handler.GetOrder)
	api.Get("/orders/:id/history", handler.GetOrderHistory)
	api.Get("/admin/callback-log", handler.CallbackLog)

	app.Use("*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route not found",
		})
	})
}
