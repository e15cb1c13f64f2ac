package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nodadogen/finvault/internal/model"
)

// RecordRepository persists mirrored finance records, one logical collection
// per entity kind. Rows are written once by backup ingestion and never
// updated; recovery only reads.
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository returns a RecordRepository using the given pool.
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

// Exists reports whether a record with the external id is already stored for
// the entity kind.
func (r *RecordRepository) Exists(ctx context.Context, kind model.EntityKind, externalID string) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM finance_records WHERE entity = $1 AND external_id = $2
		)`, string(kind), externalID).Scan(&found)
	return found, err
}

// InsertIfAbsent inserts the record unless the (entity, external id) pair is
// already present. The conflict check happens inside the insert itself, so two
// concurrent runs observing the same identifier cannot both store it.
// inserted is false when the row already existed.
func (r *RecordRepository) InsertIfAbsent(ctx context.Context, rec *model.FinanceRecord) (inserted bool, err error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO finance_records (id, entity, external_id, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity, external_id) DO NOTHING`,
		rec.ID, string(rec.Entity), rec.ExternalID, rec.Payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindByExternalID returns one record by its external id, or nil if absent.
func (r *RecordRepository) FindByExternalID(ctx context.Context, kind model.EntityKind, externalID string) (*model.FinanceRecord, error) {
	var rec model.FinanceRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, entity, external_id, payload, created_at
		FROM finance_records WHERE entity = $1 AND external_id = $2`,
		string(kind), externalID).Scan(
		&rec.ID, &rec.Entity, &rec.ExternalID, &rec.Payload, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// FindAll returns every record of the kind in insertion order.
func (r *RecordRepository) FindAll(ctx context.Context, kind model.EntityKind) ([]model.FinanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entity, external_id, payload, created_at
		FROM finance_records WHERE entity = $1
		ORDER BY created_at`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.FinanceRecord
	for rows.Next() {
		var rec model.FinanceRecord
		if err := rows.Scan(&rec.ID, &rec.Entity, &rec.ExternalID, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}
