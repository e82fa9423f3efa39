//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/sabzgam/internal/events"
	"example.com/sabzgam/internal/testsupport"
)

func TestEventLogHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	handler := NewEventLogHandler(pool)

	walk := events.WalkCompleted{HistoryID: "h-1", TenantID: "tenant-123", UserID: "user-1", SessionID: "s-1", Steps: 1250}
	payload, err := json.Marshal(walk)
	require.NoError(t, err)

	rec := Record{
		Topic:         events.TopicWalks,
		Partition:     0,
		Offset:        5,
		Time:          time.Now().UTC(),
		SchemaSubject: events.TopicWalks + "-value",
		SchemaID:      42,
		Event:         walk,
		Payload:       payload,
	}

	require.NoError(t, handler.Handle(ctx, rec))
	require.NoError(t, handler.Handle(ctx, rec))

	var (
		count     int
		eventType string
		tenantID  string
		stored    []byte
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&count))
	require.Equal(t, 1, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT event_type, tenant_id, payload FROM event_log LIMIT 1`).Scan(&eventType, &tenantID, &stored))
	require.Equal(t, events.TypeWalkCompleted, eventType)
	require.Equal(t, "tenant-123", tenantID)
	require.JSONEq(t, string(payload), string(stored))
}
