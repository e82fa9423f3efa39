package outbox

import "example.com/sabzgam/internal/events"

const walletCreditedSchema = `{
  "type": "object",
  "title": "WalletCredited",
  "properties": {
    "entry_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "session_id": {"type": "string"},
    "amount_rial": {"type": "integer", "minimum": 1},
    "balance": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entry_id", "tenant_id", "user_id", "session_id", "amount_rial", "balance", "occurred_at"],
  "additionalProperties": false
}`

const rewardRedeemedSchema = `{
  "type": "object",
  "title": "RewardRedeemed",
  "properties": {
    "redemption_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "reward_id": {"type": "integer"},
    "cost_rial": {"type": "integer", "minimum": 0},
    "balance": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["redemption_id", "tenant_id", "user_id", "reward_id", "cost_rial", "balance", "occurred_at"],
  "additionalProperties": false
}`

const walkCompletedSchema = `{
  "type": "object",
  "title": "WalkCompleted",
  "properties": {
    "history_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "session_id": {"type": "string"},
    "steps": {"type": "integer", "minimum": 0},
    "distance_km": {"type": "number"},
    "co2_saved_grams": {"type": "number"},
    "coins": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["history_id", "tenant_id", "user_id", "session_id", "steps", "distance_km", "co2_saved_grams", "coins", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeWalletCredited: {Schema: walletCreditedSchema},
	events.TypeRewardRedeemed: {Schema: rewardRedeemedSchema},
	events.TypeWalkCompleted:  {Schema: walkCompletedSchema},
}
