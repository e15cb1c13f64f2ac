package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/nodadogen/finvault/internal/errutil"
	"github.com/nodadogen/finvault/internal/gateway"
	"github.com/nodadogen/finvault/internal/metrics"
	"github.com/nodadogen/finvault/internal/model"
)

// summaryEntity tags the run-level summary and failure entries, which cover
// all six collections.
const summaryEntity = "all"

// ExportFetcher pulls the full export from the remote finance service.
type ExportFetcher interface {
	FetchExport(ctx context.Context) (gateway.Export, error)
}

// RecordStore is the keyed persistence backup ingestion writes into.
type RecordStore interface {
	Exists(ctx context.Context, kind model.EntityKind, externalID string) (bool, error)
	InsertIfAbsent(ctx context.Context, rec *model.FinanceRecord) (bool, error)
}

// LogStore is the append-only backup audit trail.
type LogStore interface {
	Append(ctx context.Context, entry *model.BackupLogEntry) error
}

// Archiver stores an off-site copy of a fetched export. Archiving is best
// effort; its failure never fails a run.
type Archiver interface {
	ArchiveExport(ctx context.Context, export gateway.Export) (string, error)
}

// EntityResult is the outcome of one entity's ingestion.
type EntityResult struct {
	Entity  string `json:"entity"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
}

// Summary aggregates one full backup run.
type Summary struct {
	TotalEntities  int   `json:"totalEntities"`
	TotalRecords   int   `json:"totalRecords"`
	TotalSaved     int   `json:"totalSaved"`
	TotalSkipped   int   `json:"totalSkipped"`
	TotalErrors    int   `json:"totalErrors"`
	FailedEntities int   `json:"failedEntities"`
	DurationMs     int64 `json:"durationMs"`
}

// Result is what a run reports to its caller. Entity-level failures keep
// Success true and surface as warnings; only a failed export fetch fails the
// run as a whole.
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Details  Summary        `json:"details"`
	Entities []EntityResult `json:"entities"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Options tunes a Service beyond its required collaborators.
type Options struct {
	Department    string
	MaxConcurrent int
	Metrics       *metrics.Collector
	Archiver      Archiver
	Logger        zerolog.Logger
}

// Service is the backup orchestrator: it pulls the export, fans out one
// idempotent ingestion per entity kind, and audits every outcome.
type Service struct {
	fetcher    ExportFetcher
	store      RecordStore
	logs       LogStore
	archiver   Archiver
	metrics    *metrics.Collector
	logger     zerolog.Logger
	department string
	maxWorkers int
}

// NewService builds the backup orchestrator.
func NewService(fetcher ExportFetcher, store RecordStore, logs LogStore, opts Options) *Service {
	if opts.Department == "" {
		opts.Department = "Finance"
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 6
	}
	return &Service{
		fetcher:    fetcher,
		store:      store,
		logs:       logs,
		archiver:   opts.Archiver,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With().Str("component", "backup").Logger(),
		department: opts.Department,
		maxWorkers: opts.MaxConcurrent,
	}
}

// Run executes one backup run. It fails only when the export fetch fails; in
// that case a backup-failed entry is written and no ingestion is attempted.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	s.logger.Info().Msg("backup run started")

	export, err := s.fetcher.FetchExport(ctx)
	if err != nil {
		elapsed := time.Since(start).Milliseconds()
		s.appendLog(ctx, &model.BackupLogEntry{
			Department: s.department,
			Entity:     summaryEntity,
			Action:     model.ActionBackupFailed,
			Details: model.BackupDetails{
				Error:         err.Error(),
				Stack:         errutil.Chain(err),
				TimeElapsedMs: &elapsed,
			},
		})
		if s.metrics != nil {
			s.metrics.BackupRuns.WithLabelValues("failed").Inc()
		}
		return nil, fmt.Errorf("fetch export: %w", err)
	}

	if s.archiver != nil {
		if key, aerr := s.archiver.ArchiveExport(ctx, export); aerr != nil {
			s.logger.Warn().Err(aerr).Msg("export archive failed")
		} else {
			s.logger.Info().Str("key", key).Msg("export archived")
		}
	}

	entities := model.Entities()
	results := make([]*EntityResult, len(entities))
	hardFails := make([]error, len(entities))

	// All entities ingest concurrently and independently; one entity failing
	// hard must not stop its siblings, and the summary waits for all of them.
	sem := semaphore.NewWeighted(int64(s.maxWorkers))
	var wg sync.WaitGroup
	for i, info := range entities {
		if err := sem.Acquire(ctx, 1); err != nil {
			hardFails[i] = fmt.Errorf("%s: %w", info.DisplayName, err)
			continue
		}
		wg.Add(1)
		go func(i int, info model.EntityInfo) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if p := recover(); p != nil {
					hardFails[i] = fmt.Errorf("%s: panic: %v", info.DisplayName, p)
				}
			}()
			res, err := s.ingestEntity(ctx, info, export.Items(info.ExportField))
			if err != nil {
				hardFails[i] = fmt.Errorf("%s: %w", info.DisplayName, err)
				return
			}
			results[i] = res
		}(i, info)
	}
	wg.Wait()

	var (
		summary  Summary
		outcomes []EntityResult
		warnings []string
	)
	for i := range entities {
		if hardFails[i] != nil {
			summary.FailedEntities++
			warnings = append(warnings, hardFails[i].Error())
			continue
		}
		res := results[i]
		summary.TotalEntities++
		summary.TotalRecords += res.Saved + res.Skipped
		summary.TotalSaved += res.Saved
		summary.TotalSkipped += res.Skipped
		summary.TotalErrors += res.Errors
		outcomes = append(outcomes, *res)
	}
	summary.DurationMs = time.Since(start).Milliseconds()

	s.appendLog(ctx, &model.BackupLogEntry{
		Department: s.department,
		Entity:     summaryEntity,
		Action:     model.ActionBackupSummary,
		Details: model.BackupDetails{
			TotalRecords:          &summary.TotalRecords,
			Saved:                 &summary.TotalSaved,
			Skipped:               &summary.TotalSkipped,
			Errors:                &summary.TotalErrors,
			FailedEntitiesDetails: warnings,
			TimeElapsedMs:         &summary.DurationMs,
		},
	})
	if s.metrics != nil {
		s.metrics.BackupRuns.WithLabelValues("completed").Inc()
	}

	message := "Finance data backup completed"
	if summary.FailedEntities > 0 {
		message = fmt.Sprintf("Finance data backup completed with %d failed entities", summary.FailedEntities)
	}
	s.logger.Info().
		Int("saved", summary.TotalSaved).
		Int("skipped", summary.TotalSkipped).
		Int("errors", summary.TotalErrors).
		Int("failedEntities", summary.FailedEntities).
		Int64("durationMs", summary.DurationMs).
		Msg("backup run finished")

	return &Result{
		Success:  true,
		Message:  message,
		Details:  summary,
		Entities: outcomes,
		Warnings: warnings,
	}, nil
}

// ingestEntity processes one collection in input order. Item-level failures
// are collected, never fatal; a store failure on the existence check aborts
// the entity as a whole and is reported as a hard failure.
func (s *Service) ingestEntity(ctx context.Context, info model.EntityInfo, items []json.RawMessage) (*EntityResult, error) {
	res := &EntityResult{Entity: info.DisplayName}
	var itemErrs []model.ItemError

	for _, item := range items {
		id := model.ExternalID(item)
		if id == "" {
			itemErrs = append(itemErrs, model.ItemError{Error: "missing identifier"})
			continue
		}
		exists, err := s.store.Exists(ctx, info.Kind, id)
		if err != nil {
			return nil, fmt.Errorf("existence check: %w", err)
		}
		if exists {
			res.Skipped++
			continue
		}
		inserted, err := s.store.InsertIfAbsent(ctx, &model.FinanceRecord{
			Entity:     info.Kind,
			ExternalID: id,
			Payload:    item,
		})
		if err != nil {
			itemErrs = append(itemErrs, model.ItemError{RecordID: id, Error: err.Error()})
			continue
		}
		if inserted {
			res.Saved++
		} else {
			// lost the insert race to a concurrent run
			res.Skipped++
		}
	}
	res.Errors = len(itemErrs)

	if s.metrics != nil {
		s.metrics.RecordsSaved.Add(float64(res.Saved))
		s.metrics.RecordsSkipped.Add(float64(res.Skipped))
		s.metrics.RecordErrors.Add(float64(res.Errors))
	}

	total := len(items)
	details := model.BackupDetails{
		TotalRecords: &total,
		Saved:        &res.Saved,
		Skipped:      &res.Skipped,
		Errors:       &res.Errors,
	}
	if len(itemErrs) > 0 {
		details.SampleError = &itemErrs[0]
	}
	s.appendLog(ctx, &model.BackupLogEntry{
		Department: s.department,
		Entity:     info.DisplayName,
		Action:     model.ActionBackup,
		Details:    details,
	})
	return res, nil
}

// appendLog writes an audit entry. A log-write failure is secondary: it is
// reported on its own and never replaces the run's outcome.
func (s *Service) appendLog(ctx context.Context, entry *model.BackupLogEntry) {
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).
			Str("action", string(entry.Action)).
			Str("entity", entry.Entity).
			Msg("backup log write failed")
	}
}
