package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message is one outbox row. Field order matches the claim query columns.
type Message struct {
	EventID       int64
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	SchemaSubject string
	PartitionKey  string
	Payload       json.RawMessage
}

// BatchFunc delivers a claimed batch. A nil return marks the batch published.
type BatchFunc func(ctx context.Context, messages []Message) error

// Store claims unpublished outbox rows.
type Store interface {
	ProcessBatch(ctx context.Context, limit int, fn BatchFunc) (int, error)
}

// PostgresStore reads the outbox table written by the wallet repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ProcessBatch locks up to limit unpublished rows, hands them to fn and marks
// them published in the same transaction when fn succeeds. Row locks are held
// for the duration of fn so concurrent dispatchers skip the claimed rows.
func (s *PostgresStore) ProcessBatch(ctx context.Context, limit int, fn BatchFunc) (int, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const query = `SELECT event_id, tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload
        FROM outbox
        WHERE published_at IS NULL
        ORDER BY event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return 0, err
	}
	messages, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	if err := fn(ctx, messages); err != nil {
		return len(messages), err
	}

	ids := make([]int64, len(messages))
	for i, msg := range messages {
		ids[i] = msg.EventID
	}
	if _, err := tx.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return len(messages), err
	}
	return len(messages), tx.Commit(ctx)
}
