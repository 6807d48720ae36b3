package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/pesatap/pesatap/internal/adapter/handler"
	"github.com/pesatap/pesatap/internal/adapter/middleware"
	"github.com/pesatap/pesatap/internal/adapter/storage/memory"
	"github.com/pesatap/pesatap/internal/adapter/storage/postgres"
	"github.com/pesatap/pesatap/internal/core/config"
	"github.com/pesatap/pesatap/internal/core/ledger"
	"github.com/pesatap/pesatap/internal/core/presentment"
	"github.com/pesatap/pesatap/internal/core/settle"
	"github.com/pesatap/pesatap/internal/core/worker"
)

func main() {
	// 1. Load config
	cfg := config.LoadConfig()

	// 2. Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 3. Pick the storage driver. Memory is the dev default; postgres is the
	// durable deployment, behind the same contracts.
	var accounts ledger.AccountStore
	var txs ledger.TransactionLedger
	var closeStorage func()

	switch cfg.StorageDriver {
	case "postgres":
		pool, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("❌ Database connection failed", "error", err)
			os.Exit(1)
		}
		accounts = postgres.NewAccountStore(pool)
		txs = postgres.NewTransactionLedger(pool)
		closeStorage = pool.Close
		slog.Info("✅ Connected to postgres")
	default:
		accounts = memory.NewAccountStore()
		txs = memory.NewTransactionLedger()
		closeStorage = func() {}
		slog.Info("💾 Using in-memory storage (state is lost on restart)")
	}

	// 4. Wire the core
	dispatcher := worker.NewDispatcher(cfg.WebhookURL, cfg.WebhookSecret)
	dispatcher.Start()

	engine := settle.NewEngine(accounts, txs, dispatcher)

	accountHandler := &handler.AccountHandler{Accounts: accounts}
	transactionHandler := &handler.TransactionHandler{Engine: engine, Accounts: accounts, Ledger: txs}
	presentmentHandler := &handler.PresentmentHandler{
		Engine:   engine,
		Accounts: accounts,
		NFC:      presentment.NewSimulated(0.9),
		USSD:     presentment.NewSimulated(0.9),
	}

	idempotency := middleware.NewIdempotencyStore()

	// 5. Setup fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	// 6. Routes
	api := app.Group("/api")

	api.Post("/auth/register", accountHandler.Register)
	api.Get("/users/:id", accountHandler.GetAccount)
	api.Post("/balance/update", transactionHandler.UpdateBalance)
	api.Post("/transactions", middleware.Idempotency(idempotency), transactionHandler.CreateTransaction)
	api.Get("/transactions/user/:userId", transactionHandler.GetHistory)
	api.Post("/ussd/generate", presentmentHandler.GenerateDialCode)
	api.Post("/ussd/complete", presentmentHandler.CompleteDialCode)
	api.Post("/nfc/tap", presentmentHandler.Tap)

	// Graceful shutdown: let in-flight settlements finish, then close up.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dispatcher.Stop()
	closeStorage()
	slog.Info("👋 Server exited successfully")
}
