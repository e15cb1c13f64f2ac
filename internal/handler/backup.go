package handler

import (
	"context"
	"encoding/json"

	"github.com/labstack/echo/v4"

	"github.com/nodadogen/finvault/internal/backup"
	"github.com/nodadogen/finvault/internal/model"
	"github.com/nodadogen/finvault/internal/response"
)

// BackupRunner triggers one backup run.
type BackupRunner interface {
	Run(ctx context.Context) (*backup.Result, error)
}

// RecordReader reads stored finance records for the store dump.
type RecordReader interface {
	FindAll(ctx context.Context, kind model.EntityKind) ([]model.FinanceRecord, error)
}

// BackupHandler serves the backup trigger and the store dump.
type BackupHandler struct {
	Backups BackupRunner
	Records RecordReader
}

// RunBackup triggers a backup run (GET /api/get-finance-data). Only a failed
// export fetch reaches the error path; entity-level trouble is reported
// inside the result.
func (h *BackupHandler) RunBackup(c echo.Context) error {
	res, err := h.Backups.Run(c.Request().Context())
	if err != nil {
		return response.BadGateway(c, "Backup failed", err.Error())
	}
	return response.OK(c, res, res.Message)
}

// DumpStore returns the current store contents keyed by the internal entity
// kind names (GET /api/get-finance-data-core).
func (h *BackupHandler) DumpStore(c echo.Context) error {
	ctx := c.Request().Context()
	out := make(map[string][]json.RawMessage, len(model.Entities()))
	for _, info := range model.Entities() {
		records, err := h.Records.FindAll(ctx, info.Kind)
		if err != nil {
			return response.InternalError(c, "Could not read store", err.Error())
		}
		payloads := make([]json.RawMessage, 0, len(records))
		for _, rec := range records {
			payloads = append(payloads, rec.Payload)
		}
		out[string(info.Kind)] = payloads
	}
	return response.OK(c, out, "")
}
