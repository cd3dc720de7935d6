package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the search engine
type ErrorType string

const (
	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeIO           ErrorType = "io"

	// Request errors
	ErrorTypePattern ErrorType = "pattern"
	ErrorTypeGlob    ErrorType = "glob"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// IoError represents a failure to list a directory or read a file.
type IoError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewIoError creates an IoError, classifying the underlying cause.
func NewIoError(op, path string, err error) *IoError {
	errorType := ErrorTypeIO
	switch {
	case errors.Is(err, fs.ErrPermission):
		errorType = ErrorTypePermission
	case errors.Is(err, fs.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	}

	return &IoError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *IoError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *IoError) Unwrap() error {
	return e.Underlying
}

// IsPermission reports whether access was denied.
func (e *IoError) IsPermission() bool {
	return e.Type == ErrorTypePermission
}

// IsNotExist reports whether the path was missing.
func (e *IoError) IsNotExist() bool {
	return e.Type == ErrorTypeFileNotFound
}

// PatternError is returned when the search pattern cannot be compiled.
type PatternError struct {
	Type       ErrorType
	Pattern    string
	Reason     string
	Underlying error
	Timestamp  time.Time
}

// NewPatternError creates a new pattern error. err may be nil when reason says it all.
func NewPatternError(pattern, reason string, err error) *PatternError {
	return &PatternError{
		Type:       ErrorTypePattern,
		Pattern:    pattern,
		Reason:     reason,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

// Unwrap returns the underlying error
func (e *PatternError) Unwrap() error {
	return e.Underlying
}

// GlobError is returned when the file name filter is malformed.
type GlobError struct {
	Type       ErrorType
	Filter     string
	Reason     string
	Underlying error
	Timestamp  time.Time
}

// NewGlobError creates a new glob error
func NewGlobError(filter string, err error) *GlobError {
	reason := "malformed glob"
	if err != nil {
		reason = err.Error()
	}
	return &GlobError{
		Type:       ErrorTypeGlob,
		Filter:     filter,
		Reason:     reason,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *GlobError) Error() string {
	return fmt.Sprintf("invalid file filter %q: %s", e.Filter, e.Reason)
}

// Unwrap returns the underlying error
func (e *GlobError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// ErrOrNil returns nil when no errors were collected.
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsRequestError reports whether err stems from a malformed request
// (pattern or name filter) rather than the filesystem.
func IsRequestError(err error) bool {
	var pe *PatternError
	var ge *GlobError
	return errors.As(err, &pe) || errors.As(err, &ge)
}
