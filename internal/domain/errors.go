package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrNoRepoURL indicates no repository URL was configured
	ErrNoRepoURL = errors.New("no repository URL configured")

	// ErrCloneFailed indicates the repository could not be cloned
	ErrCloneFailed = errors.New("clone failed")

	// ErrNoJavaFiles indicates the scan found nothing to index
	ErrNoJavaFiles = errors.New("no Java files found")

	// ErrParseFailed indicates a source file could not be parsed
	ErrParseFailed = errors.New("parse failed")

	// ErrEmptyIndex indicates a diagram was requested for an empty index
	ErrEmptyIndex = errors.New("code index is empty")

	// ErrIndexCorrupted indicates the persisted index is not valid JSON
	ErrIndexCorrupted = errors.New("index file is corrupted")

	// ErrRenderFailed indicates diagram rendering failed
	ErrRenderFailed = errors.New("render failed")

	// ErrGraphvizNotFound indicates the Graphviz dot binary is not installed
	ErrGraphvizNotFound = errors.New("graphviz dot binary not found")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownDiagram indicates an unsupported diagram kind
	ErrUnknownDiagram = errors.New("unknown diagram kind")
)

// ParseError represents a failure to parse one source file
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(file string, err error) *ParseError {
	return &ParseError{File: file, Err: err}
}

// CloneError represents a failed clone after all attempts
type CloneError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *CloneError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("clone %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("clone %s failed: %v", e.URL, e.Err)
}

func (e *CloneError) Unwrap() []error {
	return []error{ErrCloneFailed, e.Err}
}

// NewCloneError creates a new CloneError
func NewCloneError(url string, attempts int, err error) *CloneError {
	return &CloneError{URL: url, Attempts: attempts, Err: err}
}

// RenderError represents a failure to render one diagram kind
type RenderError struct {
	Kind string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s diagram: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{ErrRenderFailed, e.Err}
}

// NewRenderError creates a new RenderError
func NewRenderError(kind string, err error) *RenderError {
	return &RenderError{Kind: kind, Err: err}
}

// TransientError marks an error that is worth retrying (network hiccups)
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
