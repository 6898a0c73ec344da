// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package faults defines the uniform error type used across the training
// pipeline.
//
// Every stage failure is wrapped in a *Error that records the failure kind,
// the originating source file and line, and the underlying cause. The
// orchestrator surfaces Error.Error() as the run's terminal status, so the
// format is stable:
//
//	pipeline error [kind] in [file:line]: message
//
// Kinds encode the propagation policy from the pipeline design: schema,
// data-type and training failures abort the whole run, while drift, sync
// and tracking failures are isolated by their callers.
package faults

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindSchemaViolation is a missing required column or a column that
	// cannot be coerced to its declared type. Fatal to the run.
	KindSchemaViolation Kind = "schema_violation"

	// KindDataType is a dtype coercion failure raised during the
	// transformation stage's own schema pass. Fatal to the run.
	KindDataType Kind = "data_type_error"

	// KindIngestion is a document-store read or split failure. Fatal.
	KindIngestion Kind = "ingestion_failure"

	// KindTraining is any failure during model fitting or evaluation. Fatal.
	KindTraining Kind = "training_failure"

	// KindDriftComputation is a metric computation failure inside the model
	// drift stage. Fatal to that stage only; the trained model stays valid.
	KindDriftComputation Kind = "drift_computation_error"

	// KindSync is an external-store sync failure. Logged, non-fatal.
	KindSync Kind = "sync_failure"

	// KindTracking is an experiment-tracking call failure. Logged, non-fatal.
	KindTracking Kind = "tracking_failure"

	// KindInternal covers failures that fit no other kind.
	KindInternal Kind = "internal_error"
)

// Error is the uniform pipeline error. It carries the originating source
// file and line for diagnostics, mirroring the format used in run logs.
type Error struct {
	Kind Kind
	Msg  string
	File string
	Line int

	cause error
}

// New creates an Error of the given kind at the caller's location.
func New(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	e.File, e.Line = callerLocation(2)
	return e
}

// Wrap annotates err with a kind and the caller's location. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), cause: err}
	e.File, e.Line = callerLocation(2)
	return e
}

func callerLocation(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("pipeline error [%s] in [%s:%d]: %s: %v", e.Kind, e.File, e.Line, e.Msg, e.cause)
	}
	return fmt.Sprintf("pipeline error [%s] in [%s:%d]: %s", e.Kind, e.File, e.Line, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches two faults by kind, so errors.Is(err, &Error{Kind: k}) and the
// KindOf helper agree.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// KindOf extracts the Kind from err, walking the wrap chain. Returns
// KindInternal when err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries a fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
