package errors

import (
	"fmt"
)

// ValidationError reports bad or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// MalformedPayloadError reports a record payload that could not be parsed.
type MalformedPayloadError struct {
	FileName string
	Err      error
}

// Error implements the error interface for MalformedPayloadError.
func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload for %q: %v", e.FileName, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// NewMalformedPayloadError wraps a parse failure of a single record.
func NewMalformedPayloadError(fileName string, err error) error {
	return &MalformedPayloadError{
		FileName: fileName,
		Err:      err,
	}
}

// RuleLoadError reports a rule that could not be resolved or evaluated.
type RuleLoadError struct {
	RuleID string
	Err    error
}

// Error implements the error interface for RuleLoadError.
func (e *RuleLoadError) Error() string {
	return fmt.Sprintf("rule %q failed to load: %v", e.RuleID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleLoadError) Unwrap() error {
	return e.Err
}

// NewRuleLoadError wraps a failure of the rule with the given id.
func NewRuleLoadError(ruleID string, err error) error {
	return &RuleLoadError{
		RuleID: ruleID,
		Err:    err,
	}
}

// UpstreamError reports that the remote instance could not serve a request.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface for UpstreamError.
func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status code %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps a failed remote operation.
func NewUpstreamError(operation string, statusCode int, err error) error {
	return &UpstreamError{
		Operation:  operation,
		StatusCode: statusCode,
		Err:        err,
	}
}

// CommandError represents an error that occurred during command execution.
type CommandError struct {
	ExitCode    int
	CommonError string
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance with the given exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
	}
}
