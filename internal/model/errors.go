package model

import (
	"errors"
	"fmt"
)

// FailureReason classifies why a model-backed stage failed.
type FailureReason string

const (
	ReasonMalformedResponse FailureReason = "malformed_response"
	ReasonModelUnavailable  FailureReason = "model_unavailable"
	ReasonEmptyInput        FailureReason = "empty_input"
)

// ExtractionError is a per-document Phase 1 failure. It never aborts the
// run on its own; the driver records it and continues.
type ExtractionError struct {
	Source string
	Reason FailureReason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConsolidationError is a Phase 2 failure. It is fatal to the run: no
// newsletter is produced without a successful consolidation call.
type ConsolidationError struct {
	Reason FailureReason
	Err    error
}

func (e *ConsolidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consolidate: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("consolidate: %s", e.Reason)
}

func (e *ConsolidationError) Unwrap() error { return e.Err }

// ErrContextUnavailable signals that the persistence collaborator could not
// be reached while building historical context. Non-fatal: the driver
// substitutes an empty summary.
var ErrContextUnavailable = errors.New("historical context unavailable")

// CacheError wraps a failed cache read or write. The driver treats a failed
// read as a miss and re-extracts; a failed write fails that document.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
