package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/model"
	"github.com/nodadogen/finvault/internal/repository"
)

const defaultRecentLimit = 4

// BackupLogs is the read surface of the backup audit trail.
type BackupLogs interface {
	Count(ctx context.Context, actions ...model.BackupAction) (int64, error)
	LastDate(ctx context.Context) (*time.Time, error)
	Recent(ctx context.Context, limit int) ([]model.BackupLogEntry, error)
	SystemsHealth(ctx context.Context) ([]repository.SystemStatus, error)
}

// RecoveryLogs is the read surface of the recovery audit trail.
type RecoveryLogs interface {
	Count(ctx context.Context, actions ...model.RecoveryAction) (int64, error)
	Recent(ctx context.Context, limit int, actions ...model.RecoveryAction) ([]model.RecoveryLogEntry, error)
}

// StorageUsage reports how much space the local store occupies.
type StorageUsage func(ctx context.Context) (string, error)

// Stats is the summary block the admin console renders.
type Stats struct {
	TotalBackups    int64                     `json:"totalBackups"`
	LastBackup      *time.Time                `json:"lastBackup"`
	StorageUsed     string                    `json:"storageUsed"`
	StorageCapacity string                    `json:"storageCapacity"`
	RecoveryCount   int64                     `json:"recoveryCount"`
	FailedBackups   int64                     `json:"failedBackups"`
	Systems         []repository.SystemStatus `json:"systems"`
}

// Service answers the dashboard queries. It only ever reads the audit trails.
type Service struct {
	backups    BackupLogs
	recoveries RecoveryLogs
	usage      StorageUsage
	capacity   string
	logger     zerolog.Logger
}

// NewService builds the dashboard aggregator. usage may be nil.
func NewService(backups BackupLogs, recoveries RecoveryLogs, usage StorageUsage, capacity string, logger zerolog.Logger) *Service {
	return &Service{
		backups:    backups,
		recoveries: recoveries,
		usage:      usage,
		capacity:   capacity,
		logger:     logger.With().Str("component", "dashboard").Logger(),
	}
}

// Stats builds the summary block.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.backups.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count backups: %w", err)
	}
	last, err := s.backups.LastDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("last backup: %w", err)
	}
	recoveries, err := s.recoveries.Count(ctx, model.ActionRecoverySuccess, model.ActionBulkRecoverySuccess)
	if err != nil {
		return nil, fmt.Errorf("count recoveries: %w", err)
	}
	failed, err := s.backups.Count(ctx, model.ActionBackupFailed)
	if err != nil {
		return nil, fmt.Errorf("count failed backups: %w", err)
	}
	systems, err := s.backups.SystemsHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("systems health: %w", err)
	}

	used := "unknown"
	if s.usage != nil {
		if u, err := s.usage(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("storage usage lookup failed")
		} else {
			used = u
		}
	}

	return &Stats{
		TotalBackups:    total,
		LastBackup:      last,
		StorageUsed:     used,
		StorageCapacity: s.capacity,
		RecoveryCount:   recoveries,
		FailedBackups:   failed,
		Systems:         systems,
	}, nil
}

// RecentBackups returns the newest backup entries. limit <= 0 falls back to
// the console default.
func (s *Service) RecentBackups(ctx context.Context, limit int) ([]model.BackupLogEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.backups.Recent(ctx, limit)
}

// RecentRecoveries returns the newest terminal recovery entries. Dangling
// attempt entries (a crash before the terminal write) stay out of the list.
func (s *Service) RecentRecoveries(ctx context.Context, limit int) ([]model.RecoveryLogEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.recoveries.Recent(ctx, limit,
		model.ActionRecoverySuccess,
		model.ActionBulkRecoverySuccess,
		model.ActionBulkRecoveryFailed,
	)
}
