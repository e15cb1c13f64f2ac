package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/model"
	"github.com/nodadogen/finvault/internal/repository"
)

type fakeBackupLogs struct {
	total     int64
	failed    int64
	last      *time.Time
	systems   []repository.SystemStatus
	gotLimit  int
	countErrs map[model.BackupAction]error
}

func (f *fakeBackupLogs) Count(_ context.Context, actions ...model.BackupAction) (int64, error) {
	if len(actions) == 0 {
		return f.total, nil
	}
	if err := f.countErrs[actions[0]]; err != nil {
		return 0, err
	}
	if actions[0] == model.ActionBackupFailed {
		return f.failed, nil
	}
	return 0, nil
}

func (f *fakeBackupLogs) LastDate(context.Context) (*time.Time, error) { return f.last, nil }

func (f *fakeBackupLogs) Recent(_ context.Context, limit int) ([]model.BackupLogEntry, error) {
	f.gotLimit = limit
	return nil, nil
}

func (f *fakeBackupLogs) SystemsHealth(context.Context) ([]repository.SystemStatus, error) {
	return f.systems, nil
}

type fakeRecoveryLogs struct {
	successes  int64
	gotLimit   int
	gotActions []model.RecoveryAction
}

func (f *fakeRecoveryLogs) Count(_ context.Context, actions ...model.RecoveryAction) (int64, error) {
	return f.successes, nil
}

func (f *fakeRecoveryLogs) Recent(_ context.Context, limit int, actions ...model.RecoveryAction) ([]model.RecoveryLogEntry, error) {
	f.gotLimit = limit
	f.gotActions = actions
	return nil, nil
}

func TestStats(t *testing.T) {
	last := time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC)
	backups := &fakeBackupLogs{
		total:  42,
		failed: 3,
		last:   &last,
		systems: []repository.SystemStatus{
			{Name: "Billing", LastBackup: last, Status: "healthy"},
		},
	}
	recoveries := &fakeRecoveryLogs{successes: 7}
	usage := func(context.Context) (string, error) { return "1.2 GB", nil }

	stats, err := NewService(backups, recoveries, usage, "5TB", zerolog.Nop()).Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalBackups != 42 || stats.FailedBackups != 3 || stats.RecoveryCount != 7 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.LastBackup == nil || !stats.LastBackup.Equal(last) {
		t.Fatalf("unexpected last backup: %v", stats.LastBackup)
	}
	if stats.StorageUsed != "1.2 GB" || stats.StorageCapacity != "5TB" {
		t.Fatalf("unexpected storage block: %+v", stats)
	}
	if len(stats.Systems) != 1 || stats.Systems[0].Name != "Billing" {
		t.Fatalf("unexpected systems: %+v", stats.Systems)
	}
}

func TestStatsUsageFailureIsNonFatal(t *testing.T) {
	backups := &fakeBackupLogs{}
	recoveries := &fakeRecoveryLogs{}
	usage := func(context.Context) (string, error) { return "", errors.New("pg down") }

	stats, err := NewService(backups, recoveries, usage, "5TB", zerolog.Nop()).Stats(context.Background())
	if err != nil {
		t.Fatalf("usage failure must not fail stats: %v", err)
	}
	if stats.StorageUsed != "unknown" {
		t.Fatalf("expected unknown storage, got %q", stats.StorageUsed)
	}
}

func TestRecentLimitsDefault(t *testing.T) {
	backups := &fakeBackupLogs{}
	recoveries := &fakeRecoveryLogs{}
	svc := NewService(backups, recoveries, nil, "5TB", zerolog.Nop())

	if _, err := svc.RecentBackups(context.Background(), 0); err != nil {
		t.Fatalf("recent backups: %v", err)
	}
	if backups.gotLimit != 4 {
		t.Fatalf("expected default limit 4, got %d", backups.gotLimit)
	}
	if _, err := svc.RecentBackups(context.Background(), 10); err != nil {
		t.Fatalf("recent backups: %v", err)
	}
	if backups.gotLimit != 10 {
		t.Fatalf("expected explicit limit honored, got %d", backups.gotLimit)
	}
}

func TestRecentRecoveriesFiltersTerminalActions(t *testing.T) {
	recoveries := &fakeRecoveryLogs{}
	svc := NewService(&fakeBackupLogs{}, recoveries, nil, "5TB", zerolog.Nop())

	if _, err := svc.RecentRecoveries(context.Background(), 0); err != nil {
		t.Fatalf("recent recoveries: %v", err)
	}
	want := map[model.RecoveryAction]bool{
		model.ActionRecoverySuccess:     true,
		model.ActionBulkRecoverySuccess: true,
		model.ActionBulkRecoveryFailed:  true,
	}
	if len(recoveries.gotActions) != len(want) {
		t.Fatalf("unexpected action filter: %v", recoveries.gotActions)
	}
	for _, a := range recoveries.gotActions {
		if !want[a] {
			t.Fatalf("unexpected action %q in filter", a)
		}
	}
}
