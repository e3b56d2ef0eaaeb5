package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Model struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizedTransaction is the unified record written for every accepted
// payment notification, regardless of which provider sent it. Reference
// always embeds the provider's own order identifier so downstream lookups
// can match on substring.
type NormalizedTransaction struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type" validate:"required,oneof=paddle mpesa"`
	Email        string    `json:"email" validate:"required,email"`
	Amount       string    `json:"amount" validate:"required"`
	Currency     string    `json:"currency" validate:"required,len=3"`
	Reference    string    `json:"reference" validate:"required"`
	CustomerName string    `json:"customer_name,omitempty"`
	CourseID     string    `json:"course_id,omitempty"`
	Status       string    `json:"status" validate:"required,oneof=pending completed failed refunded"`
	ReceivedAt   time.Time `json:"received_at"`
	Model
}

// ProviderWebhook preserves the raw provider-specific payload for audit
// and debugging, exactly as received.
type ProviderWebhook struct {
	ID       uuid.UUID       `json:"id"`
	Provider string          `json:"provider" validate:"required"`
	EventID  string          `json:"event_id" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
	Status   string          `json:"status" validate:"required,oneof=received error processed"`
	Model
}

type TransactionOutbox struct {
	ID            int64           `json:"id"`
	EventType     string          `json:"event_type" validate:"required"`
	Payload       json.RawMessage `json:"payload" validate:"required"`
	PartitionKey  string          `json:"partition_key" validate:"required"`
	CorrelationID string          `json:"correlation_id"`
	Status        string          `json:"status" validate:"required,oneof=pending processed failed"`
	RetryCount    int             `json:"retry_count" validate:"gte=0"`
	LastError     string          `json:"last_error,omitempty"`
	Model
}

type Enrollment struct {
	ID                   uuid.UUID `json:"id"`
	Email                string    `json:"email" validate:"required,email"`
	CourseID             string    `json:"course_id" validate:"required"`
	TransactionReference string    `json:"transaction_reference" validate:"required"`
	Status               string    `json:"status" validate:"required,oneof=active revoked"`
	Model
}
