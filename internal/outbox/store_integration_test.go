//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/sabzgam/internal/domain"
	"example.com/sabzgam/internal/events"
	"example.com/sabzgam/internal/persistence/postgres"
	"example.com/sabzgam/internal/testsupport"
)

func TestPostgresStoreMarksDeliveredRows(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool, 125000)

	tenantID, userID := uuid.NewString(), uuid.NewString()
	_, err := repo.Credit(ctx, domain.LedgerEntry{
		ID: uuid.NewString(), TenantID: tenantID, UserID: userID,
		Kind: domain.LedgerCredit, Amount: 10000, Reference: "session-1",
		Description: "walking reward", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	producer := &stubProducer{}
	dispatcher := NewDispatcher(NewPostgresStore(pool), producer, &stubRegistry{id: 5}, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes, 1)
	require.Equal(t, events.TopicWallet, producer.writes[0].topic)
	require.Equal(t, tenantID+":"+userID, string(producer.writes[0].messages[0].Key))

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)

	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes, 1, "published rows are not delivered twice")
}

func TestPostgresStoreKeepsRowsOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := postgres.NewRepository(pool, 125000)

	_, err := repo.Credit(ctx, domain.LedgerEntry{
		ID: uuid.NewString(), TenantID: uuid.NewString(), UserID: uuid.NewString(),
		Kind: domain.LedgerCredit, Amount: 10000, Reference: "session-1",
		Description: "walking reward", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	producer := &stubProducer{err: context.DeadlineExceeded}
	dispatcher := NewDispatcher(NewPostgresStore(pool), producer, &stubRegistry{id: 5}, 10*time.Millisecond, 5)
	require.Error(t, dispatcher.processBatch(ctx))

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Equal(t, 1, pending)
}
