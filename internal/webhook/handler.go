package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mkorir/tradebase/internal/config"
	"github.com/mkorir/tradebase/internal/kafka"
	"github.com/mkorir/tradebase/internal/middleware"
	"github.com/mkorir/tradebase/internal/transaction"
	"github.com/mkorir/tradebase/pkg/types"
)

// paddleSignatureField is the body field Paddle signs its alerts with. It
// is removed before canonicalization since it cannot sign itself.
const paddleSignatureField = "p_signature"

// mpesaSignatureHeader carries the HMAC our M-Pesa confirmation proxy
// attaches to each forwarded callback.
const mpesaSignatureHeader = "X-Tradebase-Signature"

type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type WebhookHandler struct {
	cfg   *config.Config
	store transaction.Store
	clock func() time.Time
}

func NewWebhookHandler(cfg *config.Config, store transaction.Store, clock func() time.Time) *WebhookHandler {
	if clock == nil {
		clock = time.Now
	}
	return &WebhookHandler{
		cfg:   cfg,
		store: store,
		clock: clock,
	}
}

func (h *WebhookHandler) HandlePaddle(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, ProviderPaddle)
}

func (h *WebhookHandler) HandleMpesa(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, ProviderMpesa)
}

// handle runs a single delivery through verification, normalization and the
// dual persistence write. Signature failures never reach the store; write
// failures are reported but acknowledged with a 200 unless both writes fail,
// so the provider does not retry-storm us over a flaky database.
func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, provider Provider) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook body")
		h.respond(w, h.parseFailureStatus(), Response{Success: false, Error: "unreadable body"})
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		logger.Warn().Str("provider", string(provider)).Msg("Webhook body is not valid JSON")
		h.respond(w, h.parseFailureStatus(), Response{Success: false, Error: "malformed payload"})
		return
	}

	provided := h.extractSignature(r, raw, provider)
	if !VerifySignature(raw, provided, h.secretFor(provider)) {
		logger.Warn().
			Str("provider", string(provider)).
			Str("event_id", EventID(raw, provider)).
			Msg("Webhook signature verification failed")
		h.respond(w, http.StatusOK, Response{Success: false, Error: "invalid signature"})
		return
	}

	txn, err := Normalize(raw, provider, h.clock())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			// Keep the raw payload for audit even though it cannot be
			// normalized.
			if rawErr := h.store.SaveRawRecord(ctx, string(provider), EventID(raw, provider), body); rawErr != nil {
				logger.Error().Err(rawErr).Msg("Failed to save raw webhook record")
			}
			logger.Warn().Str("provider", string(provider)).Str("field", verr.Field).Msg("Webhook payload failed validation")
			h.respond(w, http.StatusOK, Response{Success: false, Error: verr.Error()})
			return
		}
		logger.Error().Err(err).Msg("Failed to normalize webhook payload")
		h.respond(w, http.StatusInternalServerError, Response{Success: false, Error: "normalization failed"})
		return
	}

	// Dual write: both records are attempted independently.
	rawErr := h.store.SaveRawRecord(ctx, string(provider), EventID(raw, provider), body)
	if rawErr != nil {
		logger.Error().Err(rawErr).Str("reference", txn.Reference).Msg("Failed to save raw webhook record")
	}

	normErr := h.store.SaveNormalizedTransaction(ctx, txn)
	if normErr != nil {
		logger.Error().Err(normErr).Str("reference", txn.Reference).Msg("Failed to save normalized transaction")
	}

	if rawErr != nil && normErr != nil {
		h.respond(w, http.StatusInternalServerError, Response{Success: false, Error: "persistence unavailable"})
		return
	}

	if normErr == nil && IsPaymentEvent(raw, provider) {
		event := types.PaymentAcceptedEvent{
			Reference:    txn.Reference,
			Provider:     string(provider),
			EventID:      EventID(raw, provider),
			Email:        txn.Email,
			Amount:       txn.Amount,
			Currency:     txn.Currency,
			CourseID:     txn.CourseID,
			CustomerName: txn.CustomerName,
		}
		// Outbox failures are logged but do not fail the delivery; the raw
		// and normalized records are already durable.
		payload, _ := json.Marshal(event)
		correlationID := middleware.GetRequestIDFromContext(ctx)
		if err := h.store.SaveOutboxEvent(ctx, kafka.EventPaymentAccepted, payload, txn.Email, correlationID); err != nil {
			logger.Error().Err(err).Str("reference", txn.Reference).Msg("Failed to enqueue payment accepted event")
		}
	}

	if rawErr != nil {
		h.respond(w, http.StatusOK, Response{Success: false, Error: "raw record write failed"})
		return
	}
	if normErr != nil {
		h.respond(w, http.StatusOK, Response{Success: false, Error: "transaction write failed"})
		return
	}

	logger.Info().
		Str("provider", string(provider)).
		Str("reference", txn.Reference).
		Msg("Webhook accepted")
	h.respond(w, http.StatusOK, Response{Success: true})
}

func (h *WebhookHandler) secretFor(provider Provider) string {
	switch provider {
	case ProviderPaddle:
		return h.cfg.Paddle.WebhookSecret
	case ProviderMpesa:
		return h.cfg.Mpesa.WebhookSecret
	}
	return ""
}

// extractSignature pulls the provider's signature from wherever that
// provider puts it, removing body-carried signatures from the payload so
// canonicalization covers only the signed fields.
func (h *WebhookHandler) extractSignature(r *http.Request, raw map[string]any, provider Provider) string {
	switch provider {
	case ProviderPaddle:
		sig, _ := raw[paddleSignatureField].(string)
		delete(raw, paddleSignatureField)
		return sig
	case ProviderMpesa:
		return r.Header.Get(mpesaSignatureHeader)
	}
	return ""
}

func (h *WebhookHandler) parseFailureStatus() int {
	if h.cfg.Webhook.AckParseFailures {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func (h *WebhookHandler) respond(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
