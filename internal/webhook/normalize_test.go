package webhook

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	t.Run("maps a paddle payment", func(t *testing.T) {
		raw := decodePayload(t, `{
			"alert_name": "payment_succeeded",
			"alert_id": "987654321",
			"email": "buyer@example.com",
			"amount": "49.99",
			"currency": "USD",
			"order_id": "ORDER12345",
			"customer_name": "Alice Buyer",
			"passthrough": "{\"course_id\":\"price-action-masterclass\"}"
		}`)

		txn, err := Normalize(raw, ProviderPaddle, testClock)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if txn.Type != "paddle" {
			t.Errorf("expected type paddle, got %q", txn.Type)
		}
		if txn.Email != "buyer@example.com" {
			t.Errorf("expected buyer email, got %q", txn.Email)
		}
		if txn.Amount != "49.99" || txn.Currency != "USD" {
			t.Errorf("unexpected amount/currency: %q %q", txn.Amount, txn.Currency)
		}
		if txn.CustomerName != "Alice Buyer" {
			t.Errorf("expected customer name, got %q", txn.CustomerName)
		}
		if txn.CourseID != "price-action-masterclass" {
			t.Errorf("expected course id from passthrough, got %q", txn.CourseID)
		}
		if txn.Status != "completed" {
			t.Errorf("expected completed status, got %q", txn.Status)
		}
		if !txn.ReceivedAt.Equal(testClock) {
			t.Errorf("expected injected clock timestamp, got %v", txn.ReceivedAt)
		}
	})

	t.Run("reference embeds the provider order id verbatim", func(t *testing.T) {
		raw := decodePayload(t, `{"email":"buyer@example.com","order_id":"ORDER12345"}`)

		txn, err := Normalize(raw, ProviderPaddle, testClock)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(txn.Reference, "ORDER12345") {
			t.Errorf("reference %q does not contain order id", txn.Reference)
		}
	})

	t.Run("numeric order ids survive as substrings", func(t *testing.T) {
		raw := decodePayload(t, `{"email":"buyer@example.com","order_id":118273}`)

		txn, err := Normalize(raw, ProviderPaddle, testClock)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(txn.Reference, "118273") {
			t.Errorf("reference %q does not contain numeric order id", txn.Reference)
		}
	})

	t.Run("missing email is a validation error", func(t *testing.T) {
		raw := decodePayload(t, `{"alert_name":"payment_succeeded","order_id":"ORDER12345"}`)

		_, err := Normalize(raw, ProviderPaddle, testClock)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got: %v", err)
		}
		if verr.Field != "email" {
			t.Errorf("expected email field, got %q", verr.Field)
		}
	})

	t.Run("missing order id is a validation error", func(t *testing.T) {
		raw := decodePayload(t, `{"alert_name":"payment_succeeded","email":"buyer@example.com"}`)

		_, err := Normalize(raw, ProviderPaddle, testClock)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got: %v", err)
		}
		if verr.Field != "order_id" {
			t.Errorf("expected order_id field, got %q", verr.Field)
		}
	})

	t.Run("maps an mpesa confirmation with default currency", func(t *testing.T) {
		raw := decodePayload(t, `{
			"TransactionType": "Pay Bill",
			"TransID": "RKTQDM7W6S",
			"TransAmount": 1500,
			"BillRefNumber": "student@example.com",
			"FirstName": "Wanjiku"
		}`)

		txn, err := Normalize(raw, ProviderMpesa, testClock)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if txn.Type != "mpesa" {
			t.Errorf("expected type mpesa, got %q", txn.Type)
		}
		if txn.Email != "student@example.com" {
			t.Errorf("expected email from account reference, got %q", txn.Email)
		}
		if txn.Amount != "1500" {
			t.Errorf("expected amount 1500, got %q", txn.Amount)
		}
		if txn.Currency != "KES" {
			t.Errorf("expected default currency KES, got %q", txn.Currency)
		}
		if !strings.Contains(txn.Reference, "RKTQDM7W6S") {
			t.Errorf("reference %q does not contain transaction id", txn.Reference)
		}
	})

	t.Run("refund alerts normalize with refunded status", func(t *testing.T) {
		raw := decodePayload(t, `{"alert_name":"payment_refunded","email":"buyer@example.com","order_id":"ORDER12345","amount":"49.99","currency":"USD"}`)

		txn, err := Normalize(raw, ProviderPaddle, testClock)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if txn.Status != "refunded" {
			t.Errorf("expected refunded status, got %q", txn.Status)
		}
	})
}

func TestIsPaymentEvent(t *testing.T) {
	t.Run("paddle payment alerts qualify", func(t *testing.T) {
		raw := decodePayload(t, `{"alert_name":"payment_succeeded"}`)
		if !IsPaymentEvent(raw, ProviderPaddle) {
			t.Error("expected payment_succeeded to qualify")
		}
	})

	t.Run("paddle lifecycle alerts do not", func(t *testing.T) {
		raw := decodePayload(t, `{"alert_name":"subscription_cancelled"}`)
		if IsPaymentEvent(raw, ProviderPaddle) {
			t.Error("expected subscription_cancelled not to qualify")
		}
	})

	t.Run("mpesa confirmations always qualify", func(t *testing.T) {
		raw := decodePayload(t, `{"TransactionType":"Pay Bill"}`)
		if !IsPaymentEvent(raw, ProviderMpesa) {
			t.Error("expected mpesa confirmation to qualify")
		}
	})
}
