// Sends a signed test alert to a locally running Tradebase instance.
package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/mkorir/tradebase/internal/webhook"
)

func main() {
	secret := os.Getenv("TRADEBASE_PADDLE_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("TRADEBASE_PADDLE_WEBHOOK_SECRET must be set")
	}

	target := os.Getenv("TRADEBASE_WEBHOOK_URL")
	if target == "" {
		target = "http://localhost:8080/api/v1/webhooks/paddle"
	}

	payload := map[string]any{
		"alert_name":    "payment_succeeded",
		"alert_id":      "987654321",
		"email":         "buyer@example.com",
		"amount":        "49.99",
		"currency":      "USD",
		"order_id":      "ORDER12345",
		"customer_name": "Alice Buyer",
		"passthrough":   `{"course_id":"price-action-masterclass"}`,
	}

	signature, err := webhook.ComputeSignature(payload, secret)
	if err != nil {
		log.Fatalf("failed to sign payload: %v", err)
	}
	payload["p_signature"] = signature

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("failed to marshal payload: %v", err)
	}

	resp, err := http.Post(target, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to post webhook: %v", err)
	}
	defer resp.Body.Close()

	var result webhook.Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	log.Printf("status=%d success=%v error=%q", resp.StatusCode, result.Success, result.Error)
}
