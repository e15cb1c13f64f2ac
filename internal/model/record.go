package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FinanceRecord is one mirrored document from the remote finance service.
// ExternalID is the remote's own identifier (the `_id` of the export item);
// it is the idempotency key, so each (entity, external id) pair is stored at
// most once. Payload is kept opaque.
type FinanceRecord struct {
	ID         uuid.UUID       `db:"id"`
	Entity     EntityKind      `db:"entity"`
	ExternalID string          `db:"external_id"`
	Payload    json.RawMessage `db:"payload"`
	CreatedAt  time.Time       `db:"created_at"`
}
