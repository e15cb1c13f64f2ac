package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nodadogen/finvault/internal/gateway"
	"github.com/nodadogen/finvault/internal/recovery"
	"github.com/nodadogen/finvault/internal/response"
)

// RecoverRequest is the body of a single-record recovery call.
type RecoverRequest struct {
	ID    string `json:"id" validate:"required"`
	Model string `json:"model" validate:"required"`
}

// RecoverAllRequest is the body of a bulk recovery call.
type RecoverAllRequest struct {
	Model string `json:"model" validate:"required"`
}

// Recoverer replays stored records back to the finance system.
type Recoverer interface {
	RecoverOne(ctx context.Context, id, modelName string) (json.RawMessage, error)
	RecoverAll(ctx context.Context, modelName string) (json.RawMessage, error)
}

// RecoveryHandler serves single and bulk recovery.
type RecoveryHandler struct {
	Recovery Recoverer
	Validate *validator.Validate
}

// RecoverData replays one record (POST /api/recovery/recover-data).
func (h *RecoveryHandler) RecoverData(c echo.Context) error {
	var req RecoverRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if err := h.Validate.Struct(req); err != nil {
		return response.BadRequest(c, "Record id and model are required", err.Error())
	}
	ack, err := h.Recovery.RecoverOne(c.Request().Context(), req.ID, req.Model)
	if err != nil {
		return recoveryError(c, err)
	}
	return response.OK(c, ack, "Record recovered")
}

// RecoverAllData replays a whole collection (POST /api/recovery/recover-all).
func (h *RecoveryHandler) RecoverAllData(c echo.Context) error {
	var req RecoverAllRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}
	if err := h.Validate.Struct(req); err != nil {
		return response.BadRequest(c, "Model is required", err.Error())
	}
	ack, err := h.Recovery.RecoverAll(c.Request().Context(), req.Model)
	if err != nil {
		return recoveryError(c, err)
	}
	return response.OK(c, ack, "Collection recovered")
}

func recoveryError(c echo.Context, err error) error {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, recovery.ErrInvalidModel):
		return response.BadRequest(c, recovery.ErrInvalidModel.Error(), err.Error())
	case errors.Is(err, recovery.ErrRecordNotFound):
		return response.NotFound(c, recovery.ErrRecordNotFound.Error(), err.Error())
	case errors.Is(err, recovery.ErrNoRecords):
		return response.NotFound(c, recovery.ErrNoRecords.Error(), err.Error())
	case errors.As(err, &gwErr):
		return response.BadGateway(c, "Finance system rejected the recovery", err.Error())
	default:
		return response.InternalError(c, "Recovery failed", err.Error())
	}
}
