package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nodadogen/finvault/internal/gateway"
	"github.com/nodadogen/finvault/internal/model"
)

type fakeFetcher struct {
	export gateway.Export
	err    error
}

func (f *fakeFetcher) FetchExport(context.Context) (gateway.Export, error) {
	return f.export, f.err
}

type fakeStore struct {
	mu         sync.Mutex
	records    map[model.EntityKind]map[string]json.RawMessage
	existsErr  map[model.EntityKind]error
	insertErrs map[string]error // keyed by external id
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[model.EntityKind]map[string]json.RawMessage),
		existsErr:  make(map[model.EntityKind]error),
		insertErrs: make(map[string]error),
	}
}

func (s *fakeStore) preload(kind model.EntityKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[kind] == nil {
		s.records[kind] = make(map[string]json.RawMessage)
	}
	s.records[kind][id] = json.RawMessage(`{}`)
}

func (s *fakeStore) Exists(_ context.Context, kind model.EntityKind, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.existsErr[kind]; err != nil {
		return false, err
	}
	_, ok := s.records[kind][externalID]
	return ok, nil
}

func (s *fakeStore) InsertIfAbsent(_ context.Context, rec *model.FinanceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErrs[rec.ExternalID]; err != nil {
		return false, err
	}
	if s.records[rec.Entity] == nil {
		s.records[rec.Entity] = make(map[string]json.RawMessage)
	}
	if _, ok := s.records[rec.Entity][rec.ExternalID]; ok {
		return false, nil
	}
	s.records[rec.Entity][rec.ExternalID] = rec.Payload
	return true, nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []model.BackupLogEntry
	err     error
}

func (l *fakeLogs) Append(_ context.Context, entry *model.BackupLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *fakeLogs) byAction(action model.BackupAction) []model.BackupLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.BackupLogEntry
	for _, e := range l.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (l *fakeLogs) byEntity(entity string) *model.BackupLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].Entity == entity && l.entries[i].Action == model.ActionBackup {
			return &l.entries[i]
		}
	}
	return nil
}

func items(ids ...string) json.RawMessage {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf(`{"_id":%q,"amount":%d}`, id, i)
	}
	return json.RawMessage("[" + strings.Join(parts, ",") + "]")
}

func newService(f *fakeFetcher, s *fakeStore, l *fakeLogs) *Service {
	return NewService(f, s, l, Options{Logger: zerolog.Nop()})
}

func entityResult(t *testing.T, res *Result, entity string) EntityResult {
	t.Helper()
	for _, e := range res.Entities {
		if e.Entity == entity {
			return e
		}
	}
	t.Fatalf("no result for entity %q", entity)
	return EntityResult{}
}

func TestRunSavesAndSkips(t *testing.T) {
	store := newFakeStore()
	store.preload(model.KindBilling, "b1")
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{"billing": items("b1", "b2")}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	billing := entityResult(t, res, "Billing")
	if billing.Saved != 1 || billing.Skipped != 1 || billing.Errors != 0 {
		t.Fatalf("unexpected billing result: %+v", billing)
	}

	entry := logs.byEntity("Billing")
	if entry == nil {
		t.Fatal("expected a backup entry for Billing")
	}
	d := entry.Details
	if *d.TotalRecords != 2 || *d.Saved != 1 || *d.Skipped != 1 || *d.Errors != 0 {
		t.Fatalf("unexpected billing entry details: %+v", d)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{
		"billing": items("b1", "b2"),
		"budget":  items("x1"),
	}}
	svc := newService(fetcher, store, logs)

	first, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Details.TotalSaved != 3 || first.Details.TotalSkipped != 0 {
		t.Fatalf("unexpected first run summary: %+v", first.Details)
	}

	second, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Details.TotalSaved != 0 || second.Details.TotalSkipped != 3 {
		t.Fatalf("expected all records skipped on re-run, got %+v", second.Details)
	}
}

func TestRunItemFailureStaysLocal(t *testing.T) {
	store := newFakeStore()
	store.insertErrs["bad"] = errors.New("disk full")
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{
		"billing": items("b1", "bad", "b2"),
		"budget":  items("x1"),
	}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	billing := entityResult(t, res, "Billing")
	if billing.Saved+billing.Skipped+billing.Errors != 3 {
		t.Fatalf("counts must cover every item: %+v", billing)
	}
	if billing.Errors != 1 || billing.Saved != 2 {
		t.Fatalf("unexpected billing result: %+v", billing)
	}

	entry := logs.byEntity("Billing")
	if entry.Details.SampleError == nil || entry.Details.SampleError.RecordID != "bad" {
		t.Fatalf("expected sample error naming the failed id, got %+v", entry.Details.SampleError)
	}
	budget := entityResult(t, res, "Budget")
	if budget.Saved != 1 || budget.Errors != 0 {
		t.Fatalf("sibling entity affected by item failure: %+v", budget)
	}
}

func TestRunEntityHardFailureIsolated(t *testing.T) {
	store := newFakeStore()
	store.existsErr[model.KindInsuranceClaim] = errors.New("store unavailable")
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{
		"billing":         items("b1"),
		"insuranceClaims": items("c1", "c2"),
	}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run must not fail on entity hard failure: %v", err)
	}
	if !res.Success {
		t.Fatal("partial success must still report success")
	}
	if res.Details.FailedEntities != 1 {
		t.Fatalf("expected 1 failed entity, got %d", res.Details.FailedEntities)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "Insurance Claim") {
		t.Fatalf("expected a warning naming the failed entity, got %v", res.Warnings)
	}
	billing := entityResult(t, res, "Billing")
	if billing.Saved != 1 {
		t.Fatalf("sibling entity affected by hard failure: %+v", billing)
	}

	summaries := logs.byAction(model.ActionBackupSummary)
	if len(summaries) != 1 {
		t.Fatalf("expected exactly one summary entry, got %d", len(summaries))
	}
	if len(summaries[0].Details.FailedEntitiesDetails) != 1 {
		t.Fatalf("summary must carry failed entity details: %+v", summaries[0].Details)
	}
}

func TestRunSummaryArithmetic(t *testing.T) {
	store := newFakeStore()
	store.preload(model.KindBudget, "x1")
	store.insertErrs["bad"] = errors.New("constraint violation")
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{
		"billing":          items("b1", "b2", "bad"),
		"budget":           items("x1", "x2"),
		"budgetingHistory": items("h1"),
	}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sum := res.Details
	if sum.TotalRecords != sum.TotalSaved+sum.TotalSkipped {
		t.Fatalf("totalRecords %d != saved %d + skipped %d", sum.TotalRecords, sum.TotalSaved, sum.TotalSkipped)
	}
	var saved, skipped, errs int
	for _, e := range res.Entities {
		saved += e.Saved
		skipped += e.Skipped
		errs += e.Errors
	}
	if sum.TotalSaved != saved || sum.TotalSkipped != skipped || sum.TotalErrors != errs {
		t.Fatalf("summary does not match entity outcomes: %+v vs saved=%d skipped=%d errors=%d", sum, saved, skipped, errs)
	}
	if sum.TotalEntities != 6 {
		t.Fatalf("expected all 6 entities to complete, got %d", sum.TotalEntities)
	}

	summary := logs.byAction(model.ActionBackupSummary)[0].Details
	if *summary.Saved != saved || *summary.Skipped != skipped || *summary.Errors != errs {
		t.Fatalf("summary entry disagrees with outcomes: %+v", summary)
	}
}

func TestRunAbsentCollectionIsZeroRecords(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{"billing": items("b1")}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	budget := entityResult(t, res, "Budget")
	if budget.Saved != 0 || budget.Skipped != 0 || budget.Errors != 0 {
		t.Fatalf("absent collection must be zero records, got %+v", budget)
	}
	entry := logs.byEntity("Budget")
	if entry == nil || *entry.Details.TotalRecords != 0 {
		t.Fatalf("expected a zero-record backup entry for Budget, got %+v", entry)
	}
	if res.Details.FailedEntities != 0 {
		t.Fatal("absent collection must not count as a failure")
	}
}

func TestRunMissingIdentifier(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{export: gateway.Export{
		"billing": json.RawMessage(`[{"amount":1},{"_id":"b1"}]`),
	}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	billing := entityResult(t, res, "Billing")
	if billing.Errors != 1 || billing.Saved != 1 {
		t.Fatalf("unexpected billing result: %+v", billing)
	}
	entry := logs.byEntity("Billing")
	if entry.Details.SampleError == nil || entry.Details.SampleError.Error != "missing identifier" {
		t.Fatalf("expected missing identifier sample error, got %+v", entry.Details.SampleError)
	}
}

func TestRunFetchFailure(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogs{}
	fetcher := &fakeFetcher{err: errors.New("connection refused")}

	_, err := newService(fetcher, store, logs).Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail when the export fetch fails")
	}

	failed := logs.byAction(model.ActionBackupFailed)
	if len(failed) != 1 {
		t.Fatalf("expected one backup-failed entry, got %d", len(failed))
	}
	d := failed[0].Details
	if d.Error == "" || len(d.Stack) == 0 || d.TimeElapsedMs == nil {
		t.Fatalf("backup-failed entry missing error context: %+v", d)
	}
	if len(logs.byAction(model.ActionBackup)) != 0 {
		t.Fatal("no entity may be ingested after a failed fetch")
	}
	if len(store.records) != 0 {
		t.Fatal("store must stay untouched after a failed fetch")
	}
}

func TestRunLogWriteFailureIsSecondary(t *testing.T) {
	store := newFakeStore()
	logs := &fakeLogs{err: errors.New("log store down")}
	fetcher := &fakeFetcher{export: gateway.Export{"billing": items("b1")}}

	res, err := newService(fetcher, store, logs).Run(context.Background())
	if err != nil {
		t.Fatalf("log write failure must not fail the run: %v", err)
	}
	if res.Details.TotalSaved != 1 {
		t.Fatalf("ingestion must proceed despite log failures: %+v", res.Details)
	}
}
