package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FINVAULT_PRIMARY__ENV", "test")
	t.Setenv("FINVAULT_SERVER__PORT", "8080")
	t.Setenv("FINVAULT_SERVER__READ_TIMEOUT", "10")
	t.Setenv("FINVAULT_SERVER__WRITE_TIMEOUT", "10")
	t.Setenv("FINVAULT_SERVER__IDLE_TIMEOUT", "60")
	t.Setenv("FINVAULT_SERVER__CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("FINVAULT_DATABASE__HOST", "localhost")
	t.Setenv("FINVAULT_DATABASE__PORT", "5432")
	t.Setenv("FINVAULT_DATABASE__USER", "finvault")
	t.Setenv("FINVAULT_DATABASE__PASSWORD", "secret")
	t.Setenv("FINVAULT_DATABASE__NAME", "finvault")
	t.Setenv("FINVAULT_DATABASE__SSL_MODE", "disable")
	t.Setenv("FINVAULT_FINANCE__EXPORT_URL", "https://finance.example.com/api/get-data")
	t.Setenv("FINVAULT_FINANCE__RECOVERY_URL", "https://finance.example.com/finance-recovery/save")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Backup == nil || cfg.Backup.MaxConcurrent != 6 {
		t.Fatalf("expected default max_concurrent 6, got %+v", cfg.Backup)
	}
	if cfg.Backup.Interval() != 0 {
		t.Fatalf("expected no schedule by default, got %v", cfg.Backup.Interval())
	}
	if cfg.Finance.Department != "Finance" {
		t.Fatalf("expected default department Finance, got %q", cfg.Finance.Department)
	}
	if cfg.Finance.RequestTimeout != 30 {
		t.Fatalf("expected default request timeout 30, got %d", cfg.Finance.RequestTimeout)
	}
	if cfg.Dashboard.StorageCapacity != "5TB" {
		t.Fatalf("expected default storage capacity, got %q", cfg.Dashboard.StorageCapacity)
	}
	if cfg.Archive != nil {
		t.Fatalf("expected archive disabled by default, got %+v", cfg.Archive)
	}
	if cfg.NewRelic.Enabled() {
		t.Fatal("expected new relic disabled without license key")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FINVAULT_BACKUP__MAX_CONCURRENT", "3")
	t.Setenv("FINVAULT_BACKUP__SCHEDULE_INTERVAL", "6h")
	t.Setenv("FINVAULT_FINANCE__DEPARTMENT", "Billing")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Backup.MaxConcurrent != 3 {
		t.Fatalf("expected max_concurrent 3, got %d", cfg.Backup.MaxConcurrent)
	}
	if cfg.Backup.Interval() != 6*time.Hour {
		t.Fatalf("expected 6h interval, got %v", cfg.Backup.Interval())
	}
	if cfg.Finance.Department != "Billing" {
		t.Fatalf("expected department override, got %q", cfg.Finance.Department)
	}
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "finvault", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/finvault?sslmode=disable"
	if got := d.URL(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
