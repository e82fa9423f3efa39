package consumer

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/sabzgam/internal/events"
)

// EventLogHandler appends every wallet and walk event to the event_log table.
// Redelivered records are ignored by their topic, partition and offset.
type EventLogHandler struct {
	pool *pgxpool.Pool
}

// NewEventLogHandler constructs a handler backed by pool.
func NewEventLogHandler(pool *pgxpool.Pool) *EventLogHandler {
	return &EventLogHandler{pool: pool}
}

// EventTypes lists the events the log stores.
func (h *EventLogHandler) EventTypes() []string {
	return []string{events.TypeWalletCredited, events.TypeRewardRedeemed, events.TypeWalkCompleted}
}

// Handle stores rec.
func (h *EventLogHandler) Handle(ctx context.Context, rec Record) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO event_log (event_type, tenant_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		rec.Event.Type(), rec.Event.Tenant(), rec.SchemaID, rec.SchemaSubject,
		rec.Topic, rec.Partition, rec.Offset, rec.Payload, rec.Time,
	)
	return err
}
