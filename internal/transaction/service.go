package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorir/tradebase/internal/middleware"
	"github.com/mkorir/tradebase/internal/model"
	"github.com/mkorir/tradebase/internal/psp"
	"github.com/mkorir/tradebase/internal/redis"
	"github.com/mkorir/tradebase/pkg/types"
)

const (
	checkoutRateLimit  = 10
	checkoutRateWindow = time.Minute
)

type TransactionService struct {
	store        Store
	redis        *redis.Client
	paddleClient *psp.PaddleClient
}

func NewTransactionService(store Store, redis *redis.Client, paddleClient *psp.PaddleClient) *TransactionService {
	return &TransactionService{
		store:        store,
		redis:        redis,
		paddleClient: paddleClient,
	}
}

// InitializeCheckout creates a Paddle pay link for a course purchase and
// records a pending transaction. Duplicate requests with the same
// idempotency key replay the first response.
func (ts *TransactionService) InitializeCheckout(ctx context.Context, request *types.InitializeCheckoutRequest, idempotencyKey string) (*types.InitializeCheckoutResponse, error) {
	logger := middleware.GetLogger(ctx)

	logger.Info().Str("course_id", request.CourseID).Msg("Initializing checkout")

	cached, err := ts.redis.CheckAndSetIdempotency(ctx, idempotencyKey, 24*time.Hour)

	if cached != nil {
		logger.Info().Msg("Returning cached checkout response due to idempotency key")
		var res types.InitializeCheckoutResponse
		json.Unmarshal(cached, &res)
		return &res, nil
	}

	if errors.Is(err, redis.ErrKeyExists) {
		logger.Warn().Msg("Request still in progress with same idempotency key")
		return nil, fmt.Errorf("request in progress: please retry later")
	}

	if err != nil {
		return nil, err
	}

	limit, err := ts.redis.CheckRateLimit(ctx, "checkout:"+request.Email, checkoutRateLimit, checkoutRateWindow)
	if err != nil {
		ts.redis.MarkIdempotencyFailed(ctx, idempotencyKey)
		return nil, err
	}
	if !limit.Allowed {
		logger.Warn().Str("email", request.Email).Msg("Checkout rate limit exceeded")
		ts.redis.MarkIdempotencyFailed(ctx, idempotencyKey)
		return nil, redis.ErrRateLimitExceeded
	}

	if !validateCurrency(request.Currency) {
		logger.Error().Str("currency", request.Currency).Msg("Unsupported currency")
		ts.redis.MarkIdempotencyFailed(ctx, idempotencyKey)
		return nil, fmt.Errorf("unsupported currency")
	}

	passthrough, _ := json.Marshal(types.PayLinkPassthrough{CourseID: request.CourseID})
	payLink, err := ts.paddleClient.GeneratePayLink(ctx, &types.GeneratePayLinkRequest{
		Title:         request.CourseID,
		Prices:        fmt.Sprintf("%s:%s", request.Currency, request.Amount),
		CustomerEmail: request.Email,
		Passthrough:   string(passthrough),
		ReturnURL:     request.CallbackURL,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate pay link")
		ts.redis.MarkIdempotencyFailed(ctx, idempotencyKey)
		return nil, fmt.Errorf("failed to generate pay link: %w", err)
	}

	now := time.Now()
	pending := &model.NormalizedTransaction{
		Type:       "paddle",
		Email:      request.Email,
		Amount:     request.Amount,
		Currency:   request.Currency,
		Reference:  fmt.Sprintf("paddle-intent-%s", uuid.New().String()),
		CourseID:   request.CourseID,
		Status:     "pending",
		ReceivedAt: now,
	}
	if err := ts.store.CreatePendingTransaction(ctx, pending, idempotencyKey); err != nil {
		logger.Error().Err(err).Msg("Failed to record pending transaction")
		ts.redis.MarkIdempotencyFailed(ctx, idempotencyKey)
		return nil, fmt.Errorf("failed to record pending transaction: %w", err)
	}

	response := &types.InitializeCheckoutResponse{
		Success: true,
		PayURL:  payLink.Response.URL,
	}

	// Cache the successful response for future duplicate requests
	responseBytes, _ := json.Marshal(response)
	ts.redis.MarkIdempotencyComplete(ctx, idempotencyKey, responseBytes, 24*time.Hour)

	return response, nil
}

func validateCurrency(currency string) bool {
	supportedCurrencies := map[string]bool{
		"USD": true,
		"EUR": true,
		"KES": true,
	}
	return supportedCurrencies[currency]
}
