package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/errutil"
	"github.com/nodadogen/finvault/internal/metrics"
	"github.com/nodadogen/finvault/internal/model"
)

// Error strings double as audit detail values, so they keep the remote
// console's exact wording.
var (
	ErrInvalidModel   = errors.New("Invalid model specified")
	ErrRecordNotFound = errors.New("Record not found")
	ErrNoRecords      = errors.New("No records found")
)

// RecordFinder reads stored finance records. Recovery never writes to it.
type RecordFinder interface {
	FindByExternalID(ctx context.Context, kind model.EntityKind, externalID string) (*model.FinanceRecord, error)
	FindAll(ctx context.Context, kind model.EntityKind) ([]model.FinanceRecord, error)
}

// LogStore is the append-only recovery audit trail.
type LogStore interface {
	Append(ctx context.Context, entry *model.RecoveryLogEntry) error
}

// Pusher republishes records to the remote finance service.
type Pusher interface {
	PushRecovery(ctx context.Context, modelName string, data any) (json.RawMessage, *model.GatewayResponse, error)
}

// Options tunes a Service beyond its required collaborators.
type Options struct {
	Department string
	Metrics    *metrics.Collector
	Logger     zerolog.Logger
}

// Service is the recovery orchestrator: it reads one record (or a whole
// collection) from the local store, republishes it to the finance service,
// and audits the attempt and its terminal outcome.
type Service struct {
	records    RecordFinder
	logs       LogStore
	gateway    Pusher
	metrics    *metrics.Collector
	logger     zerolog.Logger
	department string
}

// NewService builds the recovery orchestrator.
func NewService(records RecordFinder, logs LogStore, gw Pusher, opts Options) *Service {
	if opts.Department == "" {
		opts.Department = "Finance"
	}
	return &Service{
		records:    records,
		logs:       logs,
		gateway:    gw,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With().Str("component", "recovery").Logger(),
		department: opts.Department,
	}
}

// RecoverOne republishes a single stored record to the finance service and
// returns the gateway's ack verbatim. An unknown model name fails before any
// log entry is written or any collection touched.
func (s *Service) RecoverOne(ctx context.Context, id, modelName string) (json.RawMessage, error) {
	kind, ok := model.KindFromString(modelName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModel, modelName)
	}
	start := time.Now()
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionRecoveryAttempt,
		Details: model.RecoveryDetails{
			ModelType: modelName,
			RecordID:  id,
			Status:    model.RecoveryStarted,
		},
	})

	rec, err := s.records.FindByExternalID(ctx, kind, id)
	if err != nil {
		err = fmt.Errorf("lookup %s %q: %w", modelName, id, err)
		s.failOne(ctx, kind, modelName, id, start, err, nil)
		return nil, err
	}
	if rec == nil {
		s.failOne(ctx, kind, modelName, id, start, ErrRecordNotFound, nil)
		return nil, fmt.Errorf("%s %q: %w", modelName, id, ErrRecordNotFound)
	}

	ack, line, err := s.gateway.PushRecovery(ctx, modelName, rec.Payload)
	if err != nil {
		s.failOne(ctx, kind, modelName, id, start, err, line)
		return nil, err
	}

	duration := time.Since(start).Milliseconds()
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionRecoverySuccess,
		Details: model.RecoveryDetails{
			ModelType:  modelName,
			RecordID:   id,
			Status:     model.RecoveryCompleted,
			DurationMs: &duration,
			Response:   line,
		},
	})
	if s.metrics != nil {
		s.metrics.Recoveries.WithLabelValues("success").Inc()
	}
	s.logger.Info().Str("model", modelName).Str("recordId", id).Msg("record recovered")
	return ack, nil
}

// RecoverAll republishes every stored record of the kind in one gateway call.
func (s *Service) RecoverAll(ctx context.Context, modelName string) (json.RawMessage, error) {
	kind, ok := model.KindFromString(modelName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModel, modelName)
	}
	start := time.Now()
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionBulkRecoveryAttempt,
		Details: model.RecoveryDetails{
			ModelType: modelName,
			Status:    model.RecoveryStarted,
		},
	})

	records, err := s.records.FindAll(ctx, kind)
	if err != nil {
		err = fmt.Errorf("load %s records: %w", modelName, err)
		s.failBulk(ctx, kind, modelName, start, err, nil)
		return nil, err
	}
	if len(records) == 0 {
		s.failBulk(ctx, kind, modelName, start, ErrNoRecords, nil)
		return nil, fmt.Errorf("%s: %w", modelName, ErrNoRecords)
	}

	payloads := make([]json.RawMessage, len(records))
	for i, rec := range records {
		payloads[i] = rec.Payload
	}
	ack, line, err := s.gateway.PushRecovery(ctx, modelName, payloads)
	if err != nil {
		s.failBulk(ctx, kind, modelName, start, err, line)
		return nil, err
	}

	duration := time.Since(start).Milliseconds()
	count := len(records)
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionBulkRecoverySuccess,
		Details: model.RecoveryDetails{
			ModelType:        modelName,
			Status:           model.RecoveryCompleted,
			DurationMs:       &duration,
			RecordsRecovered: &count,
			Response:         line,
		},
	})
	if s.metrics != nil {
		s.metrics.Recoveries.WithLabelValues("success").Inc()
	}
	s.logger.Info().Str("model", modelName).Int("records", count).Msg("collection recovered")
	return ack, nil
}

func (s *Service) failOne(ctx context.Context, kind model.EntityKind, modelName, id string, start time.Time, cause error, line *model.GatewayResponse) {
	duration := time.Since(start).Milliseconds()
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionRecoveryFailed,
		Details: model.RecoveryDetails{
			ModelType:  modelName,
			RecordID:   id,
			Status:     model.RecoveryFailed,
			DurationMs: &duration,
			Error:      cause.Error(),
			Stack:      errutil.Chain(cause),
			Response:   line,
		},
	})
	if s.metrics != nil {
		s.metrics.Recoveries.WithLabelValues("failed").Inc()
	}
	s.logger.Error().Err(cause).Str("model", modelName).Str("recordId", id).Msg("recovery failed")
}

func (s *Service) failBulk(ctx context.Context, kind model.EntityKind, modelName string, start time.Time, cause error, line *model.GatewayResponse) {
	duration := time.Since(start).Milliseconds()
	s.appendLog(ctx, &model.RecoveryLogEntry{
		Department: s.department,
		Entity:     kind.DisplayName(),
		Action:     model.ActionBulkRecoveryFailed,
		Details: model.RecoveryDetails{
			ModelType:  modelName,
			Status:     model.RecoveryFailed,
			DurationMs: &duration,
			Error:      cause.Error(),
			Stack:      errutil.Chain(cause),
			Response:   line,
		},
	})
	if s.metrics != nil {
		s.metrics.Recoveries.WithLabelValues("failed").Inc()
	}
	s.logger.Error().Err(cause).Str("model", modelName).Msg("bulk recovery failed")
}

// appendLog writes an audit entry. A log-write failure is secondary: it is
// reported on its own and never replaces the operation's outcome.
func (s *Service) appendLog(ctx context.Context, entry *model.RecoveryLogEntry) {
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).
			Str("action", string(entry.Action)).
			Str("entity", entry.Entity).
			Msg("recovery log write failed")
	}
}
