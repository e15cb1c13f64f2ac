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

// BackupLogRepository is the append-only store for backup audit entries.
type BackupLogRepository struct {
	pool *pgxpool.Pool
}

// NewBackupLogRepository returns a BackupLogRepository using the given pool.
func NewBackupLogRepository(pool *pgxpool.Pool) *BackupLogRepository {
	return &BackupLogRepository{pool: pool}
}

// Append writes one backup log entry. ID and Date are filled if unset.
func (r *BackupLogRepository) Append(ctx context.Context, entry *model.BackupLogEntry) error {
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
		INSERT INTO backup_logs (id, department, entity, action, date, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Department, entry.Entity, string(entry.Action), entry.Date, details)
	return err
}

// Count returns the number of entries, restricted to the given actions when
// any are passed.
func (r *BackupLogRepository) Count(ctx context.Context, actions ...model.BackupAction) (int64, error) {
	var n int64
	if len(actions) == 0 {
		err := r.pool.QueryRow(ctx, `SELECT count(*) FROM backup_logs`).Scan(&n)
		return n, err
	}
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM backup_logs WHERE action = ANY($1)`,
		actionStrings(actions)).Scan(&n)
	return n, err
}

// LastDate returns the timestamp of the most recent entry, or nil when the
// log is empty.
func (r *BackupLogRepository) LastDate(ctx context.Context) (*time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx, `SELECT max(date) FROM backup_logs`).Scan(&last)
	return last, err
}

// Recent returns the newest entries, most recent first.
func (r *BackupLogRepository) Recent(ctx context.Context, limit int) ([]model.BackupLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, department, entity, action, date, details
		FROM backup_logs
		ORDER BY date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.BackupLogEntry
	for rows.Next() {
		var (
			entry   model.BackupLogEntry
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

// SystemStatus is one row of the per-entity health aggregation.
type SystemStatus struct {
	Name       string    `json:"name"`
	LastBackup time.Time `json:"lastBackup"`
	Status     string    `json:"status"`
}

// SystemsHealth returns, per entity, the date of its newest entry and a
// derived status: "error" when that entry is a backup-failed, otherwise
// "healthy".
func (r *BackupLogRepository) SystemsHealth(ctx context.Context) ([]SystemStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (entity) entity, date, action
		FROM backup_logs
		ORDER BY entity, date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []SystemStatus
	for rows.Next() {
		var (
			st     SystemStatus
			action string
		)
		if err := rows.Scan(&st.Name, &st.LastBackup, &action); err != nil {
			return nil, err
		}
		st.Status = "healthy"
		if action == string(model.ActionBackupFailed) {
			st.Status = "error"
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func actionStrings[T ~string](actions []T) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}
