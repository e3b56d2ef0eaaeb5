package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkorir/tradebase/internal/config"
	"github.com/mkorir/tradebase/internal/database"
	"github.com/mkorir/tradebase/internal/kafka"
	"github.com/mkorir/tradebase/internal/logger"
	"github.com/mkorir/tradebase/internal/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	log.Info().Msg("Starting Enrollment Worker...")

	db, err := database.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis")
	}
	defer redisClient.Close()

	consumer, err := kafka.NewConsumer(kafka.DefaultConfig(cfg.Kafka.Brokers), kafka.GroupEnrollmentWorker, kafka.TopicPaymentAccepted, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx, enrollmentHandler(db, redisClient, &log)); err != nil {
			log.Error().Err(err).Msg("Enrollment worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down Enrollment Worker...")
	cancel()

	log.Info().Msg("Enrollment Worker shutdown complete")
}
