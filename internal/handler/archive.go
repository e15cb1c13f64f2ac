package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/nodadogen/finvault/internal/archive"
	"github.com/nodadogen/finvault/internal/response"
)

// ArchiveHandler serves the export archive listing. The archive is optional;
// a nil client means archiving is not configured.
type ArchiveHandler struct {
	Archive *archive.Client
}

// ListObjects lists archived export snapshots (GET /api/archive/objects).
func (h *ArchiveHandler) ListObjects(c echo.Context) error {
	if h.Archive == nil {
		return response.OK(c, []archive.ObjectInfo{}, "Archive is not configured")
	}
	prefix := c.QueryParam("prefix")
	if prefix == "" {
		prefix = "exports/"
	}
	objects, err := h.Archive.ListObjects(c.Request().Context(), prefix)
	if err != nil {
		return response.InternalError(c, "Could not list archive", err.Error())
	}
	return response.OK(c, objects, "")
}

// GetContent returns one archived export snapshot by key
// (GET /api/archive/content?key=...).
func (h *ArchiveHandler) GetContent(c echo.Context) error {
	if h.Archive == nil {
		return response.BadRequest(c, "Archive is not configured", "archive is not configured")
	}
	key := c.QueryParam("key")
	if key == "" {
		return response.BadRequest(c, "Missing key", "query param key is required")
	}
	export, err := h.Archive.GetExport(c.Request().Context(), key)
	if err != nil {
		return response.InternalError(c, "Could not read archived export", err.Error())
	}
	return response.OK(c, map[string]any{"key": key, "export": export}, "")
}
