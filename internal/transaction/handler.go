package transaction

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mkorir/tradebase/internal/middleware"
	"github.com/mkorir/tradebase/internal/redis"
	"github.com/mkorir/tradebase/pkg/types"
)

type TransactionHandler struct {
	transactionService *TransactionService
}

func NewTransactionHandler(transactionService *TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

var validate = validator.New()

func (th *TransactionHandler) InitializeCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := middleware.GetLogger(ctx)
	logger.Info().Msg("Received request to initialize checkout")

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey == "" {
		logger.Error().Msg("Idempotency-Key header is missing")
		http.Error(w, "Idempotency-Key header is required", http.StatusBadRequest)
		return
	}

	var req types.InitializeCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to decode checkout request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(&req); err != nil {
		logger.Error().Err(err).Msg("Validation error on checkout request")
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := th.transactionService.InitializeCheckout(ctx, &req, idemKey)
	if err != nil {
		if errors.Is(err, redis.ErrRateLimitExceeded) {
			http.Error(w, "Too many checkout attempts, slow down", http.StatusTooManyRequests)
			return
		}
		logger.Error().Err(err).Msg("Failed to initialize checkout")
		http.Error(w, "Failed to initialize checkout: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
	logger.Info().Msg("Checkout initialized successfully")
}
