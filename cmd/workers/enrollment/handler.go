package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkorir/tradebase/internal/database"
	"github.com/mkorir/tradebase/internal/kafka"
	"github.com/mkorir/tradebase/internal/redis"
	"github.com/mkorir/tradebase/pkg/types"
)

// defaultCourseID is granted when a payment carries no course passthrough,
// which happens for M-Pesa paybill payments made outside the checkout flow.
const defaultCourseID = "trading-fundamentals"

func enrollmentHandler(db *database.Database, redisClient *redis.Client, log *zerolog.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		log.Info().Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("Processing payment accepted event")

		var event types.PaymentAcceptedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal payment accepted event")
			return err
		}

		if event.Email == "" || event.Reference == "" {
			log.Warn().
				Int64("offset", msg.Offset).
				Str("reference", event.Reference).
				Msg("Skipping payment event with missing fields")
			return nil
		}

		courseID := event.CourseID
		if courseID == "" {
			courseID = defaultCourseID
		}

		// Serialize enrollment updates per buyer across worker instances
		lock, err := redisClient.AcquireLock(ctx, "enrollment:"+event.Email, 10*time.Second)
		if err != nil {
			log.Error().Err(err).Str("email", event.Email).Msg("Failed to acquire enrollment lock")
			return err // Retry later
		}
		defer lock.Release(ctx)

		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to begin transaction")
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO enrollments (email, course_id, transaction_reference, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'active', NOW(), NOW())
			ON CONFLICT (email, course_id) DO UPDATE
			SET status = 'active', transaction_reference = $3, updated_at = NOW()
		`, event.Email, courseID, event.Reference)
		if err != nil {
			log.Error().Err(err).Str("reference", event.Reference).Msg("Failed to upsert enrollment")
			tx.Rollback(ctx)
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE provider_webhooks
			SET status = 'processed', updated_at = NOW()
			WHERE provider = $1 AND event_id = $2
		`, event.Provider, event.EventID)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.EventID).Msg("Failed to mark webhook processed")
			tx.Rollback(ctx)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to commit enrollment")
			return err
		}

		log.Info().
			Str("email", event.Email).
			Str("course_id", courseID).
			Str("reference", event.Reference).
			Msg("Enrollment granted")
		return nil
	}
}
