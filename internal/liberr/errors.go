// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package liberr defines the error values produced by the part library core.
package liberr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINELS
// =============================================================================

var (
	// ErrInvalidIdentifier is wrapped by every malformed UUID error.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidVersion is wrapped by every malformed version error.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidLocale is wrapped when a locale-keyed map has a bad key
	// or lacks the fallback locale.
	ErrInvalidLocale = errors.New("invalid locale")

	// ErrInvalidRecord is wrapped when an element file cannot be turned
	// into a record (decode failure, missing required field).
	ErrInvalidRecord = errors.New("invalid library element")

	// ErrCategoryCycle is wrapped when a category parent chain loops.
	ErrCategoryCycle = errors.New("category parent cycle")

	// ErrStorage is matched by every StorageError.
	ErrStorage = errors.New("storage error")

	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports malformed identity, version or locale data of a
// single element. During a rescan it fails the whole rebuild.
type ValidationError struct {
	Path  string // element file, empty for standalone parsing
	Field string // e.g. "uuid", "version", "name"
	Value string // offending input
	Err   error  // one of the sentinels above, possibly wrapped
}

// NewValidation builds a ValidationError without path context.
func NewValidation(field, value string, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q: %s", e.Field, e.Value, msg)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// WithPath returns a copy of err annotated with path. Errors that are not
// ValidationErrors are wrapped into one with ErrInvalidRecord.
func WithPath(err error, path string) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		cp := *ve
		cp.Path = path
		return &cp
	}
	return &ValidationError{Path: path, Err: fmt.Errorf("%w: %w", ErrInvalidRecord, err)}
}

// =============================================================================
// STORAGE ERROR
// =============================================================================

// StorageError reports a failure of the cache database. It is always fatal
// to the operation in progress.
type StorageError struct {
	Op    string // "open", "schema", "insert", "query", "commit", ...
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err into a StorageError, or returns nil.
func Storage(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Table: table, Err: err}
}

// =============================================================================
// NOT FOUND ERROR
// =============================================================================

// NotFoundError reports a query for a path or UUID that is not indexed.
// Callers usually recover from it.
type NotFoundError struct {
	Kind string // "device", "package", "component_categories", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in library index: %s", e.Kind, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// =============================================================================
// SCAN WARNING
// =============================================================================

// ScanWarning describes a filesystem entry the scanner skipped. It is
// logged and collected, never returned as a failure.
type ScanWarning struct {
	Path string
	Err  error
}

func (w ScanWarning) Error() string {
	return fmt.Sprintf("skipped %s: %v", w.Path, w.Err)
}

func (w ScanWarning) Unwrap() error { return w.Err }
