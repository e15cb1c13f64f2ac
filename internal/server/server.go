package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/archive"
	"github.com/nodadogen/finvault/internal/backup"
	"github.com/nodadogen/finvault/internal/config"
	"github.com/nodadogen/finvault/internal/dashboard"
	"github.com/nodadogen/finvault/internal/gateway"
	"github.com/nodadogen/finvault/internal/handler"
	"github.com/nodadogen/finvault/internal/jobs"
	"github.com/nodadogen/finvault/internal/metrics"
	"github.com/nodadogen/finvault/internal/recovery"
	"github.com/nodadogen/finvault/internal/repository"
	"github.com/nodadogen/finvault/internal/response"
)

// Server holds the Echo app and the long-running pieces it owns.
type Server struct {
	Echo      *echo.Echo
	Config    *config.Config
	scheduler *jobs.Service // nil when scheduled backups are off
	logger    zerolog.Logger
}

// New builds the Echo server, wires the services, and registers routes.
// Caller provides the pool; the server does not own its lifecycle.
func New(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
		}))
	}
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	records := repository.NewRecordRepository(pool)
	backupLogs := repository.NewBackupLogRepository(pool)
	recoveryLogs := repository.NewRecoveryLogRepository(pool)
	gw := gateway.NewClient(cfg.Finance, logger)

	archiveClient, err := archive.NewClient(cfg.Archive)
	if err != nil {
		logger.Warn().Err(err).Msg("archive client disabled")
		archiveClient = nil
	}
	if archiveClient != nil {
		if err := archiveClient.EnsureBucket(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("archive bucket not ready, uploads may fail")
		}
	}

	backupCfg := cfg.Backup
	if backupCfg == nil {
		backupCfg = config.DefaultBackupConfig()
	}
	var archiver backup.Archiver
	if archiveClient != nil {
		archiver = archiveClient
	}
	backupSvc := backup.NewService(gw, records, backupLogs, backup.Options{
		Department:    cfg.Finance.Department,
		MaxConcurrent: backupCfg.MaxConcurrent,
		Metrics:       collector,
		Archiver:      archiver,
		Logger:        logger,
	})
	recoverySvc := recovery.NewService(records, recoveryLogs, gw, recovery.Options{
		Department: cfg.Finance.Department,
		Metrics:    collector,
		Logger:     logger,
	})
	dashboardSvc := dashboard.NewService(backupLogs, recoveryLogs, databaseSize(pool),
		cfg.Dashboard.StorageCapacity, logger)

	var scheduler *jobs.Service
	if interval := backupCfg.Interval(); interval > 0 {
		scheduler = jobs.New(jobs.RunnerFunc(func(ctx context.Context) error {
			_, err := backupSvc.Run(ctx)
			return err
		}), interval, logger)
	}

	backupHandler := &handler.BackupHandler{Backups: backupSvc, Records: records}
	recoveryHandler := &handler.RecoveryHandler{Recovery: recoverySvc, Validate: validator.New()}
	dashboardHandler := &handler.DashboardHandler{Dashboard: dashboardSvc}
	archiveHandler := &handler.ArchiveHandler{Archive: archiveClient}

	e.GET("/api/get-finance-data", backupHandler.RunBackup)
	e.GET("/api/get-finance-data-core", backupHandler.DumpStore)
	e.POST("/api/recovery/recover-data", recoveryHandler.RecoverData)
	e.POST("/api/recovery/recover-all", recoveryHandler.RecoverAllData)
	e.GET("/api/dashboard/stats", dashboardHandler.Stats)
	e.GET("/api/dashboard/backups/recent", dashboardHandler.RecentBackups)
	e.GET("/api/dashboard/recoveries/recent", dashboardHandler.RecentRecoveries)
	e.GET("/api/archive/objects", archiveHandler.ListObjects)
	e.GET("/api/archive/content", archiveHandler.GetContent)

	e.GET("/healthz", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return response.Error(c, http.StatusServiceUnavailable, "Database unreachable", err.Error())
		}
		return response.OK(c, map[string]string{"status": "ok"}, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &Server{Echo: e, Config: cfg, scheduler: scheduler, logger: logger}
}

// databaseSize reports the store's on-disk footprint for the dashboard.
func databaseSize(pool *pgxpool.Pool) dashboard.StorageUsage {
	return func(ctx context.Context) (string, error) {
		var size string
		err := pool.QueryRow(ctx,
			`SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&size)
		if err != nil {
			return "", err
		}
		return size, nil
	}
}

// Start starts the scheduler and the HTTP server. Blocks until the context
// is cancelled or the server fails; on cancel it shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Start(ctx)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("shutdown")
		}
	}()
	return s.Echo.Start(":" + s.Config.Server.Port)
}

// Shutdown gracefully stops the HTTP server. The scheduler stops with the
// context passed to Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
