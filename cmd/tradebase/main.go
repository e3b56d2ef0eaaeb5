package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkorir/tradebase/internal/config"
	"github.com/mkorir/tradebase/internal/database"
	"github.com/mkorir/tradebase/internal/logger"
	"github.com/mkorir/tradebase/internal/psp"
	"github.com/mkorir/tradebase/internal/redis"
	"github.com/mkorir/tradebase/internal/router"
	"github.com/mkorir/tradebase/internal/server"
	"github.com/mkorir/tradebase/internal/transaction"
	"github.com/mkorir/tradebase/internal/webhook"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	db, err := database.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	defer redisClient.Close()

	srv, err := server.NewServer(cfg, &log, loggerService, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	store := transaction.NewTransactionRepository(db.Pool)
	paddleClient := psp.NewPaddleClient(cfg.Paddle.VendorID, cfg.Paddle.APIKey, cfg.Paddle.BaseURL)

	transactionService := transaction.NewTransactionService(store, redisClient, paddleClient)

	handlers := &router.Handlers{
		Webhook:     webhook.NewWebhookHandler(cfg, store, nil),
		Transaction: transaction.NewTransactionHandler(transactionService),
	}

	r := router.NewRouter(srv, handlers)

	srv.SetupHTTPServer(r)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
