package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/sabzgam/internal/domain"
	"example.com/sabzgam/internal/events"
)

// Repository provides Postgres-backed persistence for wallets, walk history and outbox events.
type Repository struct {
	pool         *pgxpool.Pool
	initialGrant int64
}

// NewRepository constructs a Repository. New wallets start with initialGrant rial.
func NewRepository(pool *pgxpool.Pool, initialGrant int64) *Repository {
	return &Repository{pool: pool, initialGrant: initialGrant}
}

// Balance returns the wallet balance, or the initial grant when no wallet exists yet.
func (r *Repository) Balance(ctx context.Context, tenantID, userID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.initialGrant, nil
		}
		return 0, err
	}
	return balance, nil
}

// Credit adds the entry amount to the wallet and records the ledger entry and outbox event.
func (r *Repository) Credit(ctx context.Context, entry domain.LedgerEntry) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := r.ensureWallet(ctx, tx, entry.TenantID, entry.UserID); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $3, updated_at = $4 WHERE tenant_id=$1 AND user_id=$2 RETURNING balance`,
		entry.TenantID, entry.UserID, entry.Amount, entry.CreatedAt,
	).Scan(&balance); err != nil {
		return 0, err
	}

	if err := insertLedger(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := insertOutbox(ctx, tx, entry.TenantID, entry.UserID, "wallet", entry.ID, events.TypeWalletCredited, events.WalletCredited{
		EntryID:    entry.ID,
		TenantID:   entry.TenantID,
		UserID:     entry.UserID,
		SessionID:  entry.Reference,
		AmountRial: entry.Amount,
		Balance:    balance,
		OccurredAt: entry.CreatedAt,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Redeem debits the wallet and stores the redemption in one transaction.
func (r *Repository) Redeem(ctx context.Context, entry domain.LedgerEntry, redemption domain.Redemption) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := r.ensureWallet(ctx, tx, entry.TenantID, entry.UserID); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE tenant_id=$1 AND user_id=$2 FOR UPDATE`,
		entry.TenantID, entry.UserID,
	).Scan(&balance); err != nil {
		return 0, err
	}
	if balance < entry.Amount {
		return balance, &domain.InsufficientBalanceError{Balance: balance, Cost: entry.Amount}
	}

	if err := tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance - $3, updated_at = $4 WHERE tenant_id=$1 AND user_id=$2 RETURNING balance`,
		entry.TenantID, entry.UserID, entry.Amount, entry.CreatedAt,
	).Scan(&balance); err != nil {
		return 0, err
	}

	if err := insertLedger(ctx, tx, entry); err != nil {
		return 0, err
	}

	const insertRedemption = `INSERT INTO redemptions (redemption_id, tenant_id, user_id, reward_id, title, vendor, discount, code, cost, redeemed_at, expires_at, used)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	if _, err := tx.Exec(ctx, insertRedemption,
		redemption.ID,
		redemption.TenantID,
		redemption.UserID,
		redemption.RewardID,
		redemption.Title,
		redemption.Vendor,
		redemption.Discount,
		redemption.Code,
		redemption.Cost,
		redemption.RedeemedAt,
		redemption.ExpiresAt,
		redemption.Used,
	); err != nil {
		return 0, err
	}

	if err := insertOutbox(ctx, tx, entry.TenantID, entry.UserID, "redemption", redemption.ID, events.TypeRewardRedeemed, events.RewardRedeemed{
		RedemptionID: redemption.ID,
		TenantID:     redemption.TenantID,
		UserID:       redemption.UserID,
		RewardID:     redemption.RewardID,
		CostRial:     redemption.Cost,
		Balance:      balance,
		OccurredAt:   redemption.RedeemedAt,
	}); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// AppendHistory stores a finished walk and emits walk.completed.
func (r *Repository) AppendHistory(ctx context.Context, item domain.HistoryItem) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO walk_history (history_id, tenant_id, user_id, session_id, walked_at, steps, distance_km, coins, co2_saved_grams)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	if _, err := tx.Exec(ctx, stmt,
		item.ID,
		item.TenantID,
		item.UserID,
		item.SessionID,
		item.Date,
		item.Steps,
		item.DistanceKm,
		item.Coins,
		item.CO2SavedGrams,
	); err != nil {
		return err
	}

	if err := insertOutbox(ctx, tx, item.TenantID, item.UserID, "walk", item.ID, events.TypeWalkCompleted, events.WalkCompleted{
		HistoryID:     item.ID,
		TenantID:      item.TenantID,
		UserID:        item.UserID,
		SessionID:     item.SessionID,
		Steps:         item.Steps,
		DistanceKm:    item.DistanceKm,
		CO2SavedGrams: item.CO2SavedGrams,
		Coins:         item.Coins,
		OccurredAt:    item.Date,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListHistory returns the newest walks first.
func (r *Repository) ListHistory(ctx context.Context, tenantID, userID string, limit int) ([]domain.HistoryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT history_id, tenant_id, user_id, session_id, walked_at, steps, distance_km, coins, co2_saved_grams
        FROM walk_history WHERE tenant_id=$1 AND user_id=$2
        ORDER BY walked_at DESC, history_id DESC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, tenantID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.HistoryItem{}
	for rows.Next() {
		var item domain.HistoryItem
		if err := rows.Scan(&item.ID, &item.TenantID, &item.UserID, &item.SessionID, &item.Date, &item.Steps, &item.DistanceKm, &item.Coins, &item.CO2SavedGrams); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const redemptionColumns = `redemption_id, tenant_id, user_id, reward_id, title, vendor, discount, code, cost, redeemed_at, expires_at, used`

func scanRedemption(row pgx.Row) (domain.Redemption, error) {
	var rd domain.Redemption
	err := row.Scan(&rd.ID, &rd.TenantID, &rd.UserID, &rd.RewardID, &rd.Title, &rd.Vendor, &rd.Discount, &rd.Code, &rd.Cost, &rd.RedeemedAt, &rd.ExpiresAt, &rd.Used)
	return rd, err
}

// ListRedemptions returns the newest redemptions first.
func (r *Repository) ListRedemptions(ctx context.Context, tenantID, userID string) ([]domain.Redemption, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+redemptionColumns+` FROM redemptions WHERE tenant_id=$1 AND user_id=$2 ORDER BY redeemed_at DESC`,
		tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Redemption{}
	for rows.Next() {
		rd, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

// MarkRedemptionUsed flips the used flag once.
func (r *Repository) MarkRedemptionUsed(ctx context.Context, tenantID, userID, redemptionID string) (*domain.Redemption, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE redemptions SET used = TRUE WHERE tenant_id=$1 AND user_id=$2 AND redemption_id=$3 AND used = FALSE RETURNING `+redemptionColumns,
		tenantID, userID, redemptionID)
	rd, err := scanRedemption(row)
	if err == nil {
		return &rd, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var used bool
	err = r.pool.QueryRow(ctx,
		`SELECT used FROM redemptions WHERE tenant_id=$1 AND user_id=$2 AND redemption_id=$3`,
		tenantID, userID, redemptionID).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return nil, domain.ErrRedemptionUsed
}

func (r *Repository) ensureWallet(ctx context.Context, tx pgx.Tx, tenantID, userID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO wallets (tenant_id, user_id, balance) VALUES ($1,$2,$3) ON CONFLICT (tenant_id, user_id) DO NOTHING`,
		tenantID, userID, r.initialGrant)
	return err
}

func insertLedger(ctx context.Context, tx pgx.Tx, entry domain.LedgerEntry) error {
	const stmt = `INSERT INTO wallet_ledger (entry_id, tenant_id, user_id, kind, amount, reference, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := tx.Exec(ctx, stmt,
		entry.ID,
		entry.TenantID,
		entry.UserID,
		string(entry.Kind),
		entry.Amount,
		entry.Reference,
		entry.Description,
		entry.CreatedAt,
	)
	return err
}

func insertOutbox(ctx context.Context, tx pgx.Tx, tenantID, userID, aggregateType, aggregateID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := fmt.Sprintf("%s:%s", tenantID, userID)
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeWalletCredited: {
		Topic:         events.TopicWallet,
		SchemaSubject: events.TopicWallet + "-wallet_credited-value",
	},
	events.TypeRewardRedeemed: {
		Topic:         events.TopicWallet,
		SchemaSubject: events.TopicWallet + "-reward_redeemed-value",
	},
	events.TypeWalkCompleted: {
		Topic:         events.TopicWalks,
		SchemaSubject: events.TopicWalks + "-value",
	},
}
