// Package auction defines core types shared across the ETL subsystems.
package auction

import "time"

// RecordBlock is one segmented auction notice from a normalized gazette.
// Ordinal is 1-based and stable for the duration of a run.
type RecordBlock struct {
	Ordinal    int    `json:"ordinal"`
	RawText    string `json:"raw_text"`
	NaturalKey string `json:"natural_key"`
}

// Batch is a contiguous slice of the record sequence dispatched as one unit.
type Batch struct {
	Number       int           `json:"batch_number"`
	StartOrdinal int           `json:"start_ordinal"`
	EndOrdinal   int           `json:"end_ordinal"`
	Records      []RecordBlock `json:"records"`
	DocumentKey  string        `json:"document_key"`
}

// BatchStatus describes the terminal state of one batch.
type BatchStatus string

// Batch status values reported in outcomes.
const (
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusPartial BatchStatus = "partial"
	BatchStatusError   BatchStatus = "error"
	BatchStatusTimeout BatchStatus = "timeout"
)

// SkipReason explains why a record was not processed.
type SkipReason string

// Skip reasons recorded in outcomes.
const (
	SkipDuplicate     SkipReason = "duplicate"
	SkipQuotaExceeded SkipReason = "quota_exceeded"
)

// RecordFailure captures one record's processing error.
type RecordFailure struct {
	Ordinal int    `json:"ordinal"`
	Key     string `json:"key,omitempty"`
	Reason  string `json:"reason"`
}

// SkippedRecord captures one record that was deliberately not processed.
type SkippedRecord struct {
	Ordinal int        `json:"ordinal"`
	Key     string     `json:"key,omitempty"`
	Reason  SkipReason `json:"reason"`
}

// BatchOutcome is the immutable result of processing one batch.
type BatchOutcome struct {
	BatchNumber      int             `json:"batch_number"`
	Status           BatchStatus     `json:"status"`
	RecordsAttempted int             `json:"records_attempted"`
	RecordsSucceeded int             `json:"records_succeeded"`
	Errors           []RecordFailure `json:"errors,omitempty"`
	Skipped          []SkippedRecord `json:"skipped,omitempty"`
}

// Strategy identifies how a run processed its records.
type Strategy string

// Processing strategies chosen by the coordinator.
const (
	StrategySequential Strategy = "sequential"
	StrategyBatched    Strategy = "batched"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

// Run status values exposed through the API.
const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunReport is the sole externally visible result of a run. A report with
// TotalFailed > 0 is a partial success, not a failure.
type RunReport struct {
	RunID             string         `json:"run_id"`
	DocumentKey       string         `json:"document_key"`
	Status            RunStatus      `json:"status"`
	TotalRecordsFound int            `json:"total_records_found"`
	Strategy          Strategy       `json:"strategy,omitempty"`
	BatchOutcomes     []BatchOutcome `json:"batch_outcomes,omitempty"`
	TotalSucceeded    int            `json:"total_succeeded"`
	TotalFailed       int            `json:"total_failed"`
	TotalSkipped      int            `json:"total_skipped"`
	TokensUsed        int64          `json:"tokens_used"`
	Warnings          []string       `json:"warnings,omitempty"`
	ErrorText         string         `json:"error_text,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	Elapsed           time.Duration  `json:"elapsed_ns"`
}

// Fields holds the structured values extracted from one auction notice,
// keyed by destination column name.
type Fields map[string]any

// CaseNumber returns the natural key column if the extractor produced one.
func (f Fields) CaseNumber() string {
	v, ok := f["case_number"].(string)
	if !ok {
		return ""
	}
	return v
}

// ExtractionResult is the output of one successful extractor call.
type ExtractionResult struct {
	Fields     Fields
	TokensUsed int
}

// RunRequest is a queued request to process one gazette document.
type RunRequest struct {
	RunID       string
	DocumentKey string
	Attempt     int
	Submitted   int64
}
