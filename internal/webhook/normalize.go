package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkorir/tradebase/internal/model"
	"github.com/mkorir/tradebase/pkg/types"
)

// Provider tags the originating payment provider of a webhook delivery.
type Provider string

const (
	ProviderPaddle Provider = "paddle"
	ProviderMpesa  Provider = "mpesa"
)

// ValidationError reports a required payload field that the provider did
// not send.
type ValidationError struct {
	Provider Provider
	Field    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s payload missing required field %q", e.Provider, e.Field)
}

// fieldMap fixes, per provider, which raw payload keys feed each normalized
// field. Resolved at compile time so adding a provider forces a mapping.
type fieldMap struct {
	email           string
	orderID         string
	amount          string
	currency        string
	customerName    string
	eventID         string
	eventType       string
	passthrough     string
	defaultCurrency string
}

var providerFields = map[Provider]fieldMap{
	ProviderPaddle: {
		email:        "email",
		orderID:      "order_id",
		amount:       "amount",
		currency:     "currency",
		customerName: "customer_name",
		eventID:      "alert_id",
		eventType:    "alert_name",
		passthrough:  "passthrough",
	},
	ProviderMpesa: {
		// Checkout sets the C2B account reference to the buyer's email.
		email:           "BillRefNumber",
		orderID:         "TransID",
		amount:          "TransAmount",
		customerName:    "FirstName",
		eventID:         "TransID",
		eventType:       "TransactionType",
		defaultCurrency: "KES",
	},
}

// Normalize maps a provider-specific payload into the unified transaction
// shape. The caller supplies the ingestion timestamp so the function stays
// deterministic under test.
func Normalize(raw map[string]any, provider Provider, now time.Time) (*model.NormalizedTransaction, error) {
	fields, ok := providerFields[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	email := stringField(raw, fields.email)
	if email == "" {
		return nil, &ValidationError{Provider: provider, Field: fields.email}
	}

	orderID := stringField(raw, fields.orderID)
	if orderID == "" {
		return nil, &ValidationError{Provider: provider, Field: fields.orderID}
	}

	currency := stringField(raw, fields.currency)
	if currency == "" {
		currency = fields.defaultCurrency
	}

	txn := &model.NormalizedTransaction{
		Type:     string(provider),
		Email:    email,
		Amount:   stringField(raw, fields.amount),
		Currency: currency,
		// The provider's order id appears verbatim inside the reference;
		// downstream lookups match on substring.
		Reference:    fmt.Sprintf("%s-%s", provider, orderID),
		CustomerName: stringField(raw, fields.customerName),
		CourseID:     passthroughCourseID(raw, fields.passthrough),
		Status:       statusFor(raw, fields),
		ReceivedAt:   now,
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now

	return txn, nil
}

// EventID returns the provider's event identifier for the raw audit record,
// falling back to the order id when the provider sends none.
func EventID(raw map[string]any, provider Provider) string {
	fields := providerFields[provider]
	if id := stringField(raw, fields.eventID); id != "" {
		return id
	}
	return stringField(raw, fields.orderID)
}

// IsPaymentEvent reports whether the delivery represents money received,
// as opposed to cancellations and other lifecycle alerts.
func IsPaymentEvent(raw map[string]any, provider Provider) bool {
	fields := providerFields[provider]
	switch provider {
	case ProviderPaddle:
		switch stringField(raw, fields.eventType) {
		case "payment_succeeded", "subscription_payment_succeeded":
			return true
		}
		return false
	case ProviderMpesa:
		// The C2B confirmation feed only carries completed payments.
		return true
	}
	return false
}

func statusFor(raw map[string]any, fields fieldMap) string {
	switch stringField(raw, fields.eventType) {
	case "payment_refunded", "subscription_payment_refunded":
		return "refunded"
	case "payment_failed", "subscription_payment_failed":
		return "failed"
	default:
		return "completed"
	}
}

func passthroughCourseID(raw map[string]any, key string) string {
	if key == "" {
		return ""
	}
	encoded := stringField(raw, key)
	if encoded == "" {
		return ""
	}
	var pt types.PayLinkPassthrough
	if err := json.Unmarshal([]byte(encoded), &pt); err != nil {
		return ""
	}
	return strings.TrimSpace(pt.CourseID)
}

// stringField reads a payload value as a string. JSON numbers are rendered
// without a trailing exponent so amounts survive round-tripping.
func stringField(raw map[string]any, key string) string {
	if key == "" {
		return ""
	}
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
