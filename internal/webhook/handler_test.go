package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkorir/tradebase/internal/config"
	"github.com/mkorir/tradebase/internal/model"
)

const (
	paddleTestSecret = "paddle_test_secret"
	mpesaTestSecret  = "mpesa_test_secret"
)

// fakeStore records persistence calls and fails on demand.
type fakeStore struct {
	rawCalls    []string
	normCalls   []*model.NormalizedTransaction
	outboxCalls [][]byte

	rawErr    error
	normErr   error
	outboxErr error
}

func (f *fakeStore) SaveRawRecord(ctx context.Context, provider, eventID string, payload []byte) error {
	if f.rawErr != nil {
		return f.rawErr
	}
	f.rawCalls = append(f.rawCalls, provider+":"+eventID)
	return nil
}

func (f *fakeStore) SaveNormalizedTransaction(ctx context.Context, txn *model.NormalizedTransaction) error {
	if f.normErr != nil {
		return f.normErr
	}
	f.normCalls = append(f.normCalls, txn)
	return nil
}

func (f *fakeStore) SaveOutboxEvent(ctx context.Context, eventType string, payload []byte, partitionKey, correlationID string) error {
	if f.outboxErr != nil {
		return f.outboxErr
	}
	f.outboxCalls = append(f.outboxCalls, payload)
	return nil
}

func (f *fakeStore) CreatePendingTransaction(ctx context.Context, txn *model.NormalizedTransaction, idempotencyKey string) error {
	return nil
}

func testConfig(ackParseFailures bool) *config.Config {
	return &config.Config{
		Paddle:  config.PaddleConfig{WebhookSecret: paddleTestSecret},
		Mpesa:   config.MpesaConfig{WebhookSecret: mpesaTestSecret},
		Webhook: config.WebhookConfig{AckParseFailures: ackParseFailures},
	}
}

// signedPaddleBody signs payload with the paddle test secret and returns the
// JSON body including the p_signature field.
func signedPaddleBody(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	sig, err := ComputeSignature(payload, paddleTestSecret)
	if err != nil {
		t.Fatalf("failed to sign payload: %v", err)
	}

	signed := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		signed[k] = v
	}
	signed[paddleSignatureField] = sig

	body, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return body
}

func postPaddle(h *WebhookHandler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paddle", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandlePaddle(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

var paddlePayment = map[string]any{
	"alert_name":    "payment_succeeded",
	"alert_id":      "987654321",
	"email":         "buyer@example.com",
	"amount":        "49.99",
	"currency":      "USD",
	"order_id":      "ORDER12345",
	"customer_name": "Alice Buyer",
}

func TestWebhookHandler(t *testing.T) {
	clock := func() time.Time { return testClock }

	t.Run("accepts a signed paddle payment and writes both records", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		rec := postPaddle(h, signedPaddleBody(t, paddlePayment))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if !resp.Success {
			t.Fatalf("expected success, got error %q", resp.Error)
		}

		if len(store.rawCalls) != 1 {
			t.Fatalf("expected one raw record write, got %d", len(store.rawCalls))
		}
		if store.rawCalls[0] != "paddle:987654321" {
			t.Errorf("unexpected raw record key: %s", store.rawCalls[0])
		}

		if len(store.normCalls) != 1 {
			t.Fatalf("expected one normalized write, got %d", len(store.normCalls))
		}
		txn := store.normCalls[0]
		if txn.Type != "paddle" {
			t.Errorf("expected type paddle, got %q", txn.Type)
		}
		if txn.Email != "buyer@example.com" {
			t.Errorf("expected buyer email, got %q", txn.Email)
		}
		if !strings.Contains(txn.Reference, "ORDER12345") {
			t.Errorf("reference %q does not contain order id", txn.Reference)
		}
		if !txn.ReceivedAt.Equal(testClock) {
			t.Errorf("expected injected clock timestamp, got %v", txn.ReceivedAt)
		}

		if len(store.outboxCalls) != 1 {
			t.Fatalf("expected one outbox event, got %d", len(store.outboxCalls))
		}
	})

	t.Run("rejects an invalid signature without touching the store", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		signed := make(map[string]any, len(paddlePayment)+1)
		for k, v := range paddlePayment {
			signed[k] = v
		}
		signed[paddleSignatureField] = "deadbeef"
		body, _ := json.Marshal(signed)

		rec := postPaddle(h, body)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response")
		}
		if len(store.rawCalls)+len(store.normCalls)+len(store.outboxCalls) != 0 {
			t.Errorf("expected zero persistence calls, got raw=%d norm=%d outbox=%d",
				len(store.rawCalls), len(store.normCalls), len(store.outboxCalls))
		}
	})

	t.Run("rejects a missing signature without touching the store", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		body, _ := json.Marshal(paddlePayment)
		rec := postPaddle(h, body)

		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response")
		}
		if len(store.rawCalls) != 0 || len(store.normCalls) != 0 {
			t.Error("expected zero persistence calls")
		}
	})

	t.Run("missing order id keeps the raw record but not the transaction", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		payload := map[string]any{
			"alert_name": "payment_succeeded",
			"alert_id":   "987654321",
			"email":      "buyer@example.com",
			"amount":     "49.99",
			"currency":   "USD",
		}
		rec := postPaddle(h, signedPaddleBody(t, payload))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response")
		}
		if len(store.rawCalls) != 1 {
			t.Errorf("expected raw record to be kept for audit, got %d writes", len(store.rawCalls))
		}
		if len(store.normCalls) != 0 {
			t.Errorf("expected no normalized write, got %d", len(store.normCalls))
		}
		if len(store.outboxCalls) != 0 {
			t.Errorf("expected no outbox event, got %d", len(store.outboxCalls))
		}
	})

	t.Run("malformed body is acknowledged without persistence", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		rec := postPaddle(h, []byte("{not json"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with ack enabled, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response")
		}
		if len(store.rawCalls)+len(store.normCalls) != 0 {
			t.Error("expected zero persistence calls")
		}
	})

	t.Run("malformed body is a 400 when acks are disabled", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(false), store, clock)

		rec := postPaddle(h, []byte("{not json"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 with ack disabled, got %d", rec.Code)
		}
	})

	t.Run("single write failure is reported but acknowledged", func(t *testing.T) {
		store := &fakeStore{rawErr: errors.New("disk on fire")}
		h := NewWebhookHandler(testConfig(true), store, clock)

		rec := postPaddle(h, signedPaddleBody(t, paddlePayment))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response for partial write")
		}
		if len(store.normCalls) != 1 {
			t.Errorf("expected normalized write to still be attempted, got %d", len(store.normCalls))
		}
	})

	t.Run("both writes failing is a server error", func(t *testing.T) {
		store := &fakeStore{
			rawErr:  errors.New("disk on fire"),
			normErr: errors.New("disk still on fire"),
		}
		h := NewWebhookHandler(testConfig(true), store, clock)

		rec := postPaddle(h, signedPaddleBody(t, paddlePayment))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 when both writes fail, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if resp.Success {
			t.Error("expected failure response")
		}
		if len(store.outboxCalls) != 0 {
			t.Errorf("expected no outbox event, got %d", len(store.outboxCalls))
		}
	})

	t.Run("non-payment alerts persist but do not enqueue enrollment", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		payload := map[string]any{
			"alert_name": "subscription_cancelled",
			"alert_id":   "111222333",
			"email":      "buyer@example.com",
			"order_id":   "ORDER99",
			"amount":     "0.00",
			"currency":   "USD",
		}
		rec := postPaddle(h, signedPaddleBody(t, payload))

		resp := decodeResponse(t, rec)
		if !resp.Success {
			t.Fatalf("expected success, got error %q", resp.Error)
		}
		if len(store.normCalls) != 1 {
			t.Errorf("expected normalized write, got %d", len(store.normCalls))
		}
		if len(store.outboxCalls) != 0 {
			t.Errorf("expected no outbox event for lifecycle alert, got %d", len(store.outboxCalls))
		}
	})

	t.Run("verifies mpesa confirmations via header signature", func(t *testing.T) {
		store := &fakeStore{}
		h := NewWebhookHandler(testConfig(true), store, clock)

		payload := map[string]any{
			"TransactionType": "Pay Bill",
			"TransID":         "RKTQDM7W6S",
			"TransAmount":     1500,
			"BillRefNumber":   "student@example.com",
			"FirstName":       "Wanjiku",
		}
		body, _ := json.Marshal(payload)

		// The signature is computed over the decoded payload so it must
		// match what the handler canonicalizes after parsing.
		decoded := decodePayload(t, string(body))
		sig, err := ComputeSignature(decoded, mpesaTestSecret)
		if err != nil {
			t.Fatalf("failed to sign payload: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mpesa", bytes.NewReader(body))
		req.Header.Set(mpesaSignatureHeader, sig)
		rec := httptest.NewRecorder()
		h.HandleMpesa(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeResponse(t, rec)
		if !resp.Success {
			t.Fatalf("expected success, got error %q", resp.Error)
		}
		if len(store.normCalls) != 1 {
			t.Fatalf("expected one normalized write, got %d", len(store.normCalls))
		}
		if store.normCalls[0].Currency != "KES" {
			t.Errorf("expected default currency KES, got %q", store.normCalls[0].Currency)
		}
		if len(store.outboxCalls) != 1 {
			t.Errorf("expected one outbox event, got %d", len(store.outboxCalls))
		}
	})
}
