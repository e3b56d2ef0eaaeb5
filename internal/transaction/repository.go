package transaction

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkorir/tradebase/internal/model"
)

// Store is the persistence boundary for the payment paths. The webhook
// endpoint receives an implementation through its constructor; nothing in
// this package is reachable as a process-wide singleton.
type Store interface {
	// SaveRawRecord persists the provider-specific payload exactly as
	// received, for audit and debugging.
	SaveRawRecord(ctx context.Context, provider, eventID string, payload []byte) error

	// SaveNormalizedTransaction persists the unified transaction record.
	// Replayed deliveries with the same reference are absorbed silently.
	SaveNormalizedTransaction(ctx context.Context, txn *model.NormalizedTransaction) error

	// SaveOutboxEvent enqueues an event for the outbox relay.
	SaveOutboxEvent(ctx context.Context, eventType string, payload []byte, partitionKey, correlationID string) error

	// CreatePendingTransaction records a checkout that has not been paid yet.
	CreatePendingTransaction(ctx context.Context, txn *model.NormalizedTransaction, idempotencyKey string) error
}

type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{
		db: db,
	}
}

func (tr *TransactionRepo) SaveRawRecord(ctx context.Context, provider, eventID string, payload []byte) error {
	sql := `INSERT INTO provider_webhooks (provider, event_id, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'received', NOW(), NOW())`

	_, err := tr.db.Exec(ctx, sql, provider, eventID, payload)
	return err
}

func (tr *TransactionRepo) SaveNormalizedTransaction(ctx context.Context, txn *model.NormalizedTransaction) error {
	// Upsert keyed on reference: providers redeliver webhooks, and the
	// reference embeds their order id, so replays collapse to one row.
	sql := `INSERT INTO transactions (type, email, amount, currency, reference, customer_name, course_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (reference) DO NOTHING`

	_, err := tr.db.Exec(ctx, sql,
		txn.Type,
		txn.Email,
		txn.Amount,
		txn.Currency,
		txn.Reference,
		nullable(txn.CustomerName),
		nullable(txn.CourseID),
		txn.Status,
		txn.ReceivedAt,
	)
	return err
}

func (tr *TransactionRepo) SaveOutboxEvent(ctx context.Context, eventType string, payload []byte, partitionKey, correlationID string) error {
	sql := `INSERT INTO transaction_outbox (event_type, payload, partition_key, correlation_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW(), NOW())`

	_, err := tr.db.Exec(ctx, sql, eventType, payload, partitionKey, correlationID)
	return err
}

func (tr *TransactionRepo) CreatePendingTransaction(ctx context.Context, txn *model.NormalizedTransaction, idempotencyKey string) error {
	sql := `INSERT INTO transactions (type, email, amount, currency, reference, course_id, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $8)`

	_, err := tr.db.Exec(ctx, sql,
		txn.Type,
		txn.Email,
		txn.Amount,
		txn.Currency,
		txn.Reference,
		nullable(txn.CourseID),
		idempotencyKey,
		time.Now(),
	)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
