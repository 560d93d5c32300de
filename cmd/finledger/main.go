package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finledger/internal/amqp"
	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/config"
	appserver "finledger/internal/http"
	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting finledger")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	cacheStore, cacheCleanup, err := cache.New(cfg, logger.WithComponent(log.ComponentCache))
	if err != nil {
		logger.Error("Failed to initialize cache backend", log.FieldError, err)
		os.Exit(1)
	}
	defer cacheCleanup()

	// Event stream is optional; the API runs standalone without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP event stream enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP event stream disabled - no AMQP_URL provided")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	authSvc := services.NewAuthService(repo, tokens, logger)
	txnSvc := services.NewTransactionService(repo, cacheStore, amqpClient, logger)
	catSvc := services.NewCategoryService(repo, cacheStore, cfg.CategoriesTTL, logger)
	analyticsSvc := services.NewAnalyticsService(repo, cacheStore, cfg.AnalyticsTTL, logger)
	userSvc := services.NewUserService(repo, cacheStore, logger)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RequestsPerMinute,
		CleanupInterval:   5 * time.Minute,
	})

	server := appserver.NewServer(":"+cfg.Port, authSvc, txnSvc, catSvc, analyticsSvc, userSvc, limiter, logger)

	go func() {
		logger.Info("HTTP server listening",
			log.FieldOperation, log.OpStartup,
			"addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received",
		log.FieldOperation, log.OpShutdown,
		"signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server shutdown complete")
}
