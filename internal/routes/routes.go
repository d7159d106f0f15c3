// Package routes defines the API routing configuration. It wires
// repositories, gateways and services, then registers handlers with their
// middleware.
package routes

import (
	"time"

	"arbirupee/internal/config"
	"arbirupee/internal/handlers"
	"arbirupee/internal/logging"
	"arbirupee/internal/middleware"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/auth"
	"arbirupee/internal/services/chain"
	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/services/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// SetupRoutes wires the whole application graph and registers all routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	transactionRepo := repositories.NewTransactionRepository(db)
	userRepo := repositories.NewUserRepository(db)

	chainGateway := chain.NewService(chain.Config{
		BaseURL: config.GetEnv("BRIDGE_BASE_URL", "http://localhost:8545"),
		APIKey:  config.GetEnv("BRIDGE_API_KEY", ""),
	}, logging.New("chain"))

	paymentGateway := payment.NewService(payment.Config{
		BaseURL:       config.GetEnv("RAZORPAY_BASE_URL", ""),
		KeyID:         config.GetEnv("RAZORPAY_KEY_ID", "rzp_test_key"),
		KeySecret:     config.GetEnv("RAZORPAY_KEY_SECRET", "rzp_test_secret"),
		WebhookSecret: config.GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
	}, logging.New("payment"))

	orchestratorService := orchestrator.NewService(
		transactionRepo,
		userRepo,
		chainGateway,
		paymentGateway,
		repositories.Cache,
		config.LoadLimits(),
		logging.New("orchestrator"),
	)

	authService := auth.NewService(userRepo)

	authHandler := handlers.NewAuthHandler(authService)
	transactionHandler := handlers.NewTransactionHandler(orchestratorService, userRepo)
	withdrawHandler := handlers.NewWithdrawHandler(orchestratorService, userRepo)
	webhookHandler := handlers.NewWebhookHandler(orchestratorService, logging.New("webhook"))
	adminHandler := handlers.NewAdminHandler(orchestratorService)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	// State-changing endpoints carry a tighter per-IP budget than reads.
	writeLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	})

	api := app.Group("/api")

	// Public endpoints.
	api.Get("/health", handlers.HealthCheck)
	api.Post("/auth/session", writeLimiter, authHandler.CreateSession)
	api.Post("/transactions/webhook", webhookHandler.HandlePaymentWebhook)

	// Operator surface, keyed by X-Admin-Key alone. Registered before the
	// wallet auth middleware enters the stack.
	admin := app.Group("/api/admin", middleware.AdminAuth)
	admin.Post("/transactions/:id/resolve", adminHandler.ResolvePending)

	// Authenticated surface.
	protected := api.Use(authMiddleware.Handler)

	tx := protected.Group("/transactions")
	tx.Post("/deposit", writeLimiter, transactionHandler.InitiateDeposit)
	tx.Post("/confirm-deposit", writeLimiter, transactionHandler.ConfirmDeposit)
	tx.Post("/transfer", writeLimiter, transactionHandler.Transfer)
	tx.Get("/user/stats", transactionHandler.UserStats)
	tx.Get("/:id", transactionHandler.GetTransaction)
	tx.Get("/", transactionHandler.ListTransactions)

	protected.Get("/withdraw", withdrawHandler.Details)
	protected.Post("/withdraw", writeLimiter, withdrawHandler.Withdraw)
	protected.Post("/withdraw/confirm", writeLimiter, withdrawHandler.ConfirmPayout)
}
