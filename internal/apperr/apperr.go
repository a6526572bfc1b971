// Package apperr defines the error taxonomy shared by the parsers, the ledger
// store, the sync reconciler and the worker boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that only see its flattened form.
type Kind string

const (
	KindParse       Kind = "parse"
	KindStore       Kind = "store"
	KindSync        Kind = "sync"
	KindReferential Kind = "referential"
	KindValidation  Kind = "validation"
	KindInternal    Kind = "internal"
)

var (
	// ErrAlreadyExists is returned by add operations when the primary key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrHeaderNotFound marks a statement that ended before its header row was seen.
	ErrHeaderNotFound = errors.New("header row not found")

	// ErrInvalid marks input rejected by validation before it reaches a store.
	ErrInvalid = errors.New("invalid input")
)

// ParseReason narrows down why a statement could not be parsed.
type ParseReason string

const (
	ReasonUnsupportedFile   ParseReason = "unsupported_file"
	ReasonUnsupportedFormat ParseReason = "unsupported_format"
	ReasonHeaderNotFound    ParseReason = "header_not_found"
	ReasonTooFewFields      ParseReason = "too_few_fields"
	ReasonBadDate           ParseReason = "bad_date"
	ReasonBadAmount         ParseReason = "bad_amount"
	ReasonBadDescription    ParseReason = "bad_description"
	ReasonUnreadable        ParseReason = "unreadable"
)

// ParseError reports malformed or unsupported statement input.
// Line holds the offending raw line or row when one applies.
type ParseError struct {
	File   string
	Line   string
	Reason ParseReason
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Line != "" {
		return fmt.Sprintf("parse %s: %s (line %q)", e.File, msg, e.Line)
	}
	return fmt.Sprintf("parse %s: %s", e.File, msg)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Reason == ReasonHeaderNotFound {
		return ErrHeaderNotFound
	}
	return nil
}

// StoreError wraps a persistence-layer failure.
type StoreError struct {
	Op  string
	IDs []string
	Err error
}

func (e *StoreError) Error() string {
	if len(e.IDs) > 0 {
		return fmt.Sprintf("store %s: %v (ids %v)", e.Op, e.Err, e.IDs)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SyncError wraps a remote backup store or transport failure. It is never
// retried inside the reconciler.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string { return fmt.Sprintf("sync %s: %v", e.Op, e.Err) }

func (e *SyncError) Unwrap() error { return e.Err }

// ReferentialError reports an operation on an id that does not exist.
type ReferentialError struct {
	Entity string
	ID     string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Entity, e.ID)
}

func (e *ReferentialError) Unwrap() error { return ErrNotFound }

// Duplicate builds the StoreError used when add operations hit existing keys.
func Duplicate(op string, ids ...string) error {
	return &StoreError{Op: op, IDs: ids, Err: ErrAlreadyExists}
}

// Missing builds a ReferentialError.
func Missing(entity, id string) error {
	return &ReferentialError{Entity: entity, ID: id}
}

// Invalid builds a validation error with the given message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// KindOf reports the taxonomy bucket of err.
func KindOf(err error) Kind {
	var (
		parseErr *ParseError
		storeErr *StoreError
		syncErr  *SyncError
		refErr   *ReferentialError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &refErr):
		return KindReferential
	case errors.As(err, &storeErr):
		return KindStore
	case errors.As(err, &syncErr):
		return KindSync
	case errors.Is(err, ErrInvalid):
		return KindValidation
	default:
		return KindInternal
	}
}
