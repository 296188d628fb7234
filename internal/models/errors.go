package models

import (
	"fmt"
	"strings"
)

// DataSourceError means the legacy database could not be reached or queried,
// or its schema does not match. It aborts the whole run.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source: %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// ValidationError is a row-level mapping failure. The row counts as failed
// and the stage continues.
type ValidationError struct {
	Kind       Kind
	Identifier string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("invalid %s row: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid %s row %q: %s", e.Kind, e.Identifier, e.Reason)
}

// RemoteConflictError is an HTTP 422 answer to a create: the entity already
// exists on the target.
type RemoteConflictError struct {
	Method string
	Path   string
	Body   string
}

func (e *RemoteConflictError) Error() string {
	return fmt.Sprintf("%s %s: already exists", e.Method, e.Path)
}

// RemoteRequestError is any other non-2xx answer or a transport failure
// (StatusCode 0).
type RemoteRequestError struct {
	Method     string
	Path       string
	StatusCode int
	Messages   []string
	Err        error
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// StageFatalError escalates out of row processing and stops the run.
type StageFatalError struct {
	Kind Kind
	Err  error
}

func (e *StageFatalError) Error() string {
	return fmt.Sprintf("%s stage aborted: %v", e.Kind, e.Err)
}

func (e *StageFatalError) Unwrap() error { return e.Err }

// ConfigError lists every configuration field that failed validation.
type ConfigError struct {
	Fields []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, ", ")
}
