package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/config"
	"github.com/nodadogen/finvault/internal/model"
)

// Export is the raw export payload from the remote finance service, keyed by
// the remote's own field names (budgetingHistory, insuranceClaims, user, ...).
// Values stay undecoded so a malformed collection cannot fail the whole fetch.
type Export map[string]json.RawMessage

// Items returns the export array named by the entity's export field. A
// missing or non-array field yields nil, which ingestion treats as zero
// records.
func (e Export) Items(field string) []json.RawMessage {
	raw, ok := e[field]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// Error describes a failed exchange with the remote finance service.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("finance gateway: %s: status %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("finance gateway: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client talks to the remote finance service: one endpoint for the full
// export, one for accepting recovered records.
type Client struct {
	exportURL   string
	recoveryURL string
	http        *http.Client
	logger      zerolog.Logger
}

// NewClient builds a Client from the finance section of the config. Every
// call is bounded by the configured request timeout.
func NewClient(cfg config.FinanceConfig, logger zerolog.Logger) *Client {
	return &Client{
		exportURL:   cfg.ExportURL,
		recoveryURL: cfg.RecoveryURL,
		http:        &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second},
		logger:      logger.With().Str("component", "gateway").Logger(),
	}
}

// FetchExport performs the full export fetch.
func (c *Client) FetchExport(ctx context.Context) (Export, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.exportURL, nil)
	if err != nil {
		return nil, &Error{Op: "fetch export", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "fetch export", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "fetch export", Status: resp.StatusCode}
	}
	var export Export
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		return nil, &Error{Op: "fetch export", Err: fmt.Errorf("decode body: %w", err)}
	}
	c.logger.Debug().Int("collections", len(export)).Msg("export fetched")
	return export, nil
}

type recoveryRequest struct {
	Model string `json:"model"`
	Data  any    `json:"data"`
}

// PushRecovery posts {model, data} to the recovery-save endpoint. data is one
// record payload or a slice of payloads. The ack body is returned verbatim
// together with the response line for audit logging.
func (c *Client) PushRecovery(ctx context.Context, modelName string, data any) (json.RawMessage, *model.GatewayResponse, error) {
	body, err := json.Marshal(recoveryRequest{Model: modelName, Data: data})
	if err != nil {
		return nil, nil, &Error{Op: "push recovery", Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recoveryURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &Error{Op: "push recovery", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &Error{Op: "push recovery", Err: err}
	}
	defer resp.Body.Close()

	line := &model.GatewayResponse{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
	ack, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, line, &Error{Op: "push recovery", Err: fmt.Errorf("read ack: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, line, &Error{Op: "push recovery", Status: resp.StatusCode}
	}
	return ack, line, nil
}
