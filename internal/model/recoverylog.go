package model

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryAction is the action tag on a recovery log entry.
type RecoveryAction string

const (
	ActionRecoveryAttempt     RecoveryAction = "recovery-attempt"
	ActionRecoverySuccess     RecoveryAction = "recovery-success"
	ActionRecoveryFailed      RecoveryAction = "recovery-failed"
	ActionBulkRecoveryAttempt RecoveryAction = "bulk-recovery-attempt"
	ActionBulkRecoverySuccess RecoveryAction = "bulk-recovery-success"
	ActionBulkRecoveryFailed  RecoveryAction = "bulk-recovery-failed"
)

// RecoveryStatus is the lifecycle state recorded in recovery details.
type RecoveryStatus string

const (
	RecoveryStarted   RecoveryStatus = "started"
	RecoveryCompleted RecoveryStatus = "completed"
	RecoveryFailed    RecoveryStatus = "failed"
)

// GatewayResponse captures the remote finance service's HTTP response line for
// a recovery push.
type GatewayResponse struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
}

// RecoveryDetails is the details payload of a recovery log entry.
type RecoveryDetails struct {
	ModelType        string           `json:"modelType"`
	RecordID         string           `json:"recordId,omitempty"`
	Status           RecoveryStatus   `json:"status"`
	DurationMs       *int64           `json:"durationMs,omitempty"`
	RecordsRecovered *int             `json:"recordsRecovered,omitempty"`
	Error            string           `json:"error,omitempty"`
	Stack            []string         `json:"stack,omitempty"`
	Response         *GatewayResponse `json:"response,omitempty"`
}

// RecoveryLogEntry is one immutable row in the recovery audit trail. Every
// recovery operation writes an attempt entry first and exactly one terminal
// entry (success or failed) afterwards.
type RecoveryLogEntry struct {
	ID         uuid.UUID       `json:"id"`
	Department string          `json:"department"`
	Entity     string          `json:"entity"`
	Action     RecoveryAction  `json:"action"`
	Date       time.Time       `json:"date"`
	Details    RecoveryDetails `json:"details"`
}
