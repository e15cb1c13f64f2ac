package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nodadogen/finvault/internal/model"
)

// RecoveryLogRepository is the append-only store for recovery audit entries.
type RecoveryLogRepository struct {
	pool *pgxpool.Pool
}

// NewRecoveryLogRepository returns a RecoveryLogRepository using the given pool.
func NewRecoveryLogRepository(pool *pgxpool.Pool) *RecoveryLogRepository {
	return &RecoveryLogRepository{pool: pool}
}

// Append writes one recovery log entry. ID and Date are filled if unset.
func (r *RecoveryLogRepository) Append(ctx context.Context, entry *model.RecoveryLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO recovery_logs (id, department, entity, action, date, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Department, entry.Entity, string(entry.Action), entry.Date, details)
	return err
}

// Count returns the number of entries, restricted to the given actions when
// any are passed.
func (r *RecoveryLogRepository) Count(ctx context.Context, actions ...model.RecoveryAction) (int64, error) {
	var n int64
	if len(actions) == 0 {
		err := r.pool.QueryRow(ctx, `SELECT count(*) FROM recovery_logs`).Scan(&n)
		return n, err
	}
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM recovery_logs WHERE action = ANY($1)`,
		actionStrings(actions)).Scan(&n)
	return n, err
}

// Recent returns the newest entries, most recent first, restricted to the
// given actions when any are passed.
func (r *RecoveryLogRepository) Recent(ctx context.Context, limit int, actions ...model.RecoveryAction) ([]model.RecoveryLogEntry, error) {
	var (
		query = `
		SELECT id, department, entity, action, date, details
		FROM recovery_logs
		ORDER BY date DESC
		LIMIT $1`
		args = []any{limit}
	)
	if len(actions) > 0 {
		query = `
		SELECT id, department, entity, action, date, details
		FROM recovery_logs
		WHERE action = ANY($2)
		ORDER BY date DESC
		LIMIT $1`
		args = append(args, actionStrings(actions))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.RecoveryLogEntry
	for rows.Next() {
		var (
			entry   model.RecoveryLogEntry
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Department, &entry.Entity, &entry.Action, &entry.Date, &details); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}
