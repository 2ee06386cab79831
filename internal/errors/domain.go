// Package errors defines the error kinds the query and refresh paths branch
// on, plus the RFC 7807 rendering used by the HTTP transport.
package errors

import (
	"errors"
	"fmt"
)

// InsufficientDataError reports a cohort below the minimum sample threshold.
// It is a defined query outcome, not a fault: callers branch on it
// routinely, so it travels as an error value rather than a panic or a
// zero-filled result.
type InsufficientDataError struct {
	SampleSize  int
	MinRequired int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d qualifying records, %d required", e.SampleSize, e.MinRequired)
}

// NewInsufficientData creates an InsufficientDataError.
func NewInsufficientData(sampleSize, minRequired int) *InsufficientDataError {
	return &InsufficientDataError{SampleSize: sampleSize, MinRequired: minRequired}
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// InvalidFilterError reports a filter the query layer refuses: an unknown
// key, a non-coercible year, or a value outside the known enums. It carries
// the offending key and value so the caller can surface them.
type InvalidFilterError struct {
	Key   string
	Value string
	Cause error
}

func (e *InvalidFilterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid filter %s=%q: %v", e.Key, e.Value, e.Cause)
	}
	return fmt.Sprintf("invalid filter %s=%q", e.Key, e.Value)
}

func (e *InvalidFilterError) Unwrap() error { return e.Cause }

// NewInvalidFilter creates an InvalidFilterError.
func NewInvalidFilter(key, value string, cause error) *InvalidFilterError {
	return &InvalidFilterError{Key: key, Value: value, Cause: cause}
}

// IsInvalidFilter reports whether err is an InvalidFilterError.
func IsInvalidFilter(err error) bool {
	var target *InvalidFilterError
	return errors.As(err, &target)
}

// SourceDataError reports a malformed or missing input file. It is fatal to
// the refresh that encountered it and aborts that refresh without touching
// the previously published snapshot.
type SourceDataError struct {
	Source string
	Cause  error
}

func (e *SourceDataError) Error() string {
	return fmt.Sprintf("source data error in %s: %v", e.Source, e.Cause)
}

func (e *SourceDataError) Unwrap() error { return e.Cause }

// NewSourceDataError creates a SourceDataError.
func NewSourceDataError(source string, cause error) *SourceDataError {
	return &SourceDataError{Source: source, Cause: cause}
}

// IsSourceDataError reports whether err is a SourceDataError.
func IsSourceDataError(err error) bool {
	var target *SourceDataError
	return errors.As(err, &target)
}
