// Package errors provides custom error types for the medisync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
var As = errors.As

// Common sentinel errors for the medisync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrLocked indicates that another sync run holds the lock marker
	ErrLocked = errors.New("sync already running")

	// ErrNoState indicates that no persisted plan snapshot exists
	ErrNoState = errors.New("no sync state")
)

// ConfigError represents a configuration error. Configuration errors are
// fatal and abort the run before any remote call is made.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// APIError represents an error from a remote collaborator API
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// FetchError represents an exhausted page fetch. A fetch error is fatal for
// the whole run: a partial snapshot must never be treated as complete.
type FetchError struct {
	Source   string
	Cursor   string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Cursor != "" {
		return fmt.Sprintf("fetch from %s failed at cursor %q after %d attempts: %v", e.Source, e.Cursor, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch from %s failed after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// LockError indicates that the lock marker already exists
type LockError struct {
	Path  string
	Since time.Time
}

// Error implements the error interface
func (e *LockError) Error() string {
	if !e.Since.IsZero() {
		return fmt.Sprintf("sync lock %s held since %s (use unlock to force-clear)", e.Path, e.Since.Format(time.RFC3339))
	}
	return fmt.Sprintf("sync lock %s already exists (use unlock to force-clear)", e.Path)
}

// Is implements errors.Is support
func (e *LockError) Is(target error) bool {
	return target == ErrLocked
}

// StateError indicates a missing or unreadable plan snapshot
type StateError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *StateError) Error() string {
	return fmt.Sprintf("sync state %s: %s", e.Path, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StateError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StateError) Is(target error) bool {
	return target == ErrNoState
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// AuthenticationError represents an authentication failure against a
// collaborator API
type AuthenticationError struct {
	Service string
	Method  string // "bearer", "token", etc.
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsLocked checks if an error indicates an existing sync lock
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// IsNoState checks if an error indicates a missing plan snapshot
func IsNoState(err error) bool {
	return errors.Is(err, ErrNoState)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	return &IOError{Operation: operation, Path: path, Message: message, Err: err}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
