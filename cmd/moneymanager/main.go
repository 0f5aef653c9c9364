package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"moneymanager/internal/amqp"
	"moneymanager/internal/auth"
	"moneymanager/internal/cache"
	"moneymanager/internal/cli"
	"moneymanager/internal/config"
	"moneymanager/internal/core"
	apphttp "moneymanager/internal/http"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateAuth)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	store := cli.OpenStore(startCtx, logger, cfg)

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("Failed to configure tokens", log.FieldError, err.Error())
		os.Exit(1)
	}

	opts := []services.Option{services.WithLogger(logger)}

	// Summary cache: Redis when configured, in-process LRU otherwise.
	caches := cache.NewManager(logger)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to Redis", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, services.WithSummaryCache(cache.NewRedisSummaryCache(rdb, cfg.SummaryCacheTTL, logger)))
		logger.Info("Summary cache backed by Redis")
	} else {
		summaries := cache.NewLRUSummaryCache(cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL))
		caches.Register(summaries.Cleaner())
		caches.StartCleanup(cfg.SummaryCacheTTL)
		opts = append(opts, services.WithSummaryCache(summaries))
		logger.Info("Summary cache in process", "size", cfg.SummaryCacheSize)
	}

	// Events are optional for the API; without AMQP the ledger mirror is idle.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err.Error())
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewTransactionService(store.Store, opts...)
	reconciler := services.NewTransferReconciler(store.Store)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		ClientURL:          cfg.ClientURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, svc, reconciler, store.Store, tokens)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Store close error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting moneymanager server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
