package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	Primary   Primary         `koanf:"primary" validate:"required"`
	Server    ServerConfig    `koanf:"server" validate:"required"`
	Database  DatabaseConfig  `koanf:"database" validate:"required"`
	Finance   FinanceConfig   `koanf:"finance" validate:"required"`
	Backup    *BackupConfig   `koanf:"backup"`
	Archive   *ArchiveConfig  `koanf:"archive"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	NewRelic  NewRelicConfig  `koanf:"newrelic"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

type DatabaseConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	Name     string `koanf:"name" validate:"required"`
	SSLMode  string `koanf:"ssl_mode" validate:"required"`
}

// URL renders the pgx connection string.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// FinanceConfig points at the remote finance service the backups mirror.
type FinanceConfig struct {
	ExportURL      string `koanf:"export_url" validate:"required,url"`
	RecoveryURL    string `koanf:"recovery_url" validate:"required,url"`
	RequestTimeout int    `koanf:"request_timeout"` // seconds; 0 = default
	Department     string `koanf:"department"`
}

// BackupConfig controls the backup orchestrator and scheduler.
type BackupConfig struct {
	MaxConcurrent    int    `koanf:"max_concurrent"`
	ScheduleInterval string `koanf:"schedule_interval"` // Go duration; empty = no schedule
}

func DefaultBackupConfig() *BackupConfig {
	return &BackupConfig{MaxConcurrent: 6}
}

// Interval parses ScheduleInterval. Zero means scheduled backups are off.
func (b *BackupConfig) Interval() time.Duration {
	if b == nil || b.ScheduleInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(b.ScheduleInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// ArchiveConfig configures the optional off-site export archive
// (S3-compatible object storage). Nil disables archiving.
type ArchiveConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

type DashboardConfig struct {
	StorageCapacity string `koanf:"storage_capacity"`
}

// NewRelicConfig enables APM when a license key is set.
type NewRelicConfig struct {
	LicenseKey string `koanf:"license_key"`
	AppName    string `koanf:"app_name"`
}

func (n NewRelicConfig) Enabled() bool { return n.LicenseKey != "" }

// LoadConfig loads the configuration from environment variables using koanf.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// FINVAULT_SERVER__PORT -> server.port; single underscores stay part of
	// the key (read_timeout).
	k := koanf.New(".")
	err = k.Load(env.Provider("FINVAULT_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "FINVAULT_")), "__", ".")
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig = &Config{}
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal mainconfig")
	}

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not validate the struct")
	}

	// optional sections fall back to defaults; pointer types mark absence
	if mainConfig.Backup == nil {
		mainConfig.Backup = DefaultBackupConfig()
	}
	if mainConfig.Backup.MaxConcurrent <= 0 {
		mainConfig.Backup.MaxConcurrent = 6
	}
	if mainConfig.Finance.RequestTimeout <= 0 {
		mainConfig.Finance.RequestTimeout = 30
	}
	if mainConfig.Finance.Department == "" {
		mainConfig.Finance.Department = "Finance"
	}
	if mainConfig.Dashboard.StorageCapacity == "" {
		mainConfig.Dashboard.StorageCapacity = "5TB"
	}
	if mainConfig.NewRelic.AppName == "" {
		mainConfig.NewRelic.AppName = "finvault"
	}

	return
}
