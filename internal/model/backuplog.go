package model

import (
	"time"

	"github.com/google/uuid"
)

// BackupAction is the action tag on a backup log entry.
type BackupAction string

const (
	ActionBackup        BackupAction = "backup"
	ActionBackupSummary BackupAction = "backup-summary"
	ActionBackupFailed  BackupAction = "backup-failed"
	ActionRestore       BackupAction = "restore"
	ActionOther         BackupAction = "other"
)

// ItemError records one record that failed to ingest during a backup run.
type ItemError struct {
	RecordID string `json:"recordId,omitempty"`
	Error    string `json:"error"`
}

// BackupDetails is the details payload of a backup log entry. Count fields are
// pointers so entries that never carry them (backup-failed) omit them instead
// of reporting zeroes.
type BackupDetails struct {
	TotalRecords          *int       `json:"totalRecords,omitempty"`
	Saved                 *int       `json:"saved,omitempty"`
	Skipped               *int       `json:"skipped,omitempty"`
	Errors                *int       `json:"errors,omitempty"`
	SampleError           *ItemError `json:"sampleError,omitempty"`
	FailedEntitiesDetails []string   `json:"failedEntitiesDetails,omitempty"`
	TimeElapsedMs         *int64     `json:"timeElapsedMs,omitempty"`
	Error                 string     `json:"error,omitempty"`
	Stack                 []string   `json:"stack,omitempty"`
}

// BackupLogEntry is one immutable row in the backup audit trail. One entry is
// written per entity per run, plus a single backup-summary (or backup-failed)
// entry covering the whole run.
type BackupLogEntry struct {
	ID         uuid.UUID     `json:"id"`
	Department string        `json:"department"`
	Entity     string        `json:"entity"`
	Action     BackupAction  `json:"action"`
	Date       time.Time     `json:"date"`
	Details    BackupDetails `json:"details"`
}
