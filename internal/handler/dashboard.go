package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nodadogen/finvault/internal/dashboard"
	"github.com/nodadogen/finvault/internal/model"
	"github.com/nodadogen/finvault/internal/response"
)

// DashboardReader aggregates backup and recovery history for the console.
type DashboardReader interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
	RecentBackups(ctx context.Context, limit int) ([]model.BackupLogEntry, error)
	RecentRecoveries(ctx context.Context, limit int) ([]model.RecoveryLogEntry, error)
}

// DashboardHandler serves the console dashboard endpoints.
type DashboardHandler struct {
	Dashboard DashboardReader
}

// Stats returns the aggregate dashboard view (GET /api/dashboard/stats).
func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.Dashboard.Stats(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "Could not load dashboard stats", err.Error())
	}
	return response.OK(c, stats, "")
}

// RecentBackups lists the latest backup log entries
// (GET /api/dashboard/backups/recent?limit=N).
func (h *DashboardHandler) RecentBackups(c echo.Context) error {
	entries, err := h.Dashboard.RecentBackups(c.Request().Context(), limitParam(c))
	if err != nil {
		return response.InternalError(c, "Could not load backup history", err.Error())
	}
	return response.OK(c, entries, "")
}

// RecentRecoveries lists the latest terminal recovery log entries
// (GET /api/dashboard/recoveries/recent?limit=N).
func (h *DashboardHandler) RecentRecoveries(c echo.Context) error {
	entries, err := h.Dashboard.RecentRecoveries(c.Request().Context(), limitParam(c))
	if err != nil {
		return response.InternalError(c, "Could not load recovery history", err.Error())
	}
	return response.OK(c, entries, "")
}

// limitParam reads the limit query parameter. Zero lets the service apply
// its default.
func limitParam(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
