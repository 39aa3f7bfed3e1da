// Package errors implements the optimisation engine's fatal/non-fatal
// error taxonomy as a single tagged AppError type.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags the taxonomy's error kinds.
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"
	CodeRateLimited  Code = "RATE_LIMITED"

	// ConfigInvalid: contradictory or missing input — empty matrix, an
	// employee referencing an absent matrix, a rule referencing an
	// unknown shift. Fatal; rejected before evolving.
	CodeConfigInvalid Code = "CONFIG_INVALID"
	// NoValidBaseline: C3 could not unravel a matrix (zero dimension).
	// Fatal.
	CodeNoValidBaseline Code = "NO_VALID_BASELINE"
	// TimeoutReached: GA wall-clock budget exhausted before convergence.
	// Non-fatal — callers get the incumbent flagged best-effort.
	CodeTimeoutReached Code = "TIMEOUT_REACHED"
	// StagnationReached: GA gave up after its stagnation limit. Same
	// non-fatal handling as TimeoutReached.
	CodeStagnationReached Code = "STAGNATION_REACHED"
	// ConstraintsViolated: GA terminated but the incumbent still has at
	// least one hard violation. Non-fatal — returned with failed=true.
	CodeConstraintsViolated Code = "CONSTRAINTS_VIOLATED"
	// ExecutionError: unexpected internal fault. Fatal.
	CodeExecutionError Code = "EXECUTION_ERROR"
)

// Fatal reports whether code aborts the job outright (an Error response)
// rather than surfacing as a best-effort Success.
func (c Code) Fatal() bool {
	switch c {
	case CodeConfigInvalid, CodeNoValidBaseline, CodeExecutionError, CodeInternal, CodeInvalidInput, CodeNotFound:
		return true
	default:
		return false
	}
}

// Reason returns the tagged failure-reason string used in job responses
// for non-fatal outcomes (spec §7's "timeout", "constraints_violated", …).
func (c Code) Reason() string {
	switch c {
	case CodeTimeoutReached:
		return "timeout"
	case CodeStagnationReached:
		return "stagnation"
	case CodeConstraintsViolated:
		return "constraints_violated"
	default:
		return "error:" + string(c)
	}
}

// AppError is the engine's one error type: a code, a message, an optional
// cause, and whatever structured fields the caller wants to surface.
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New builds an AppError from a code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: codeToHTTPStatus(code)}
}

// Wrap attaches code/message to an underlying cause.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: codeToHTTPStatus(code), Cause: err}
}

func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeConfigInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout, CodeTimeoutReached:
		return http.StatusGatewayTimeout
	case CodeNoValidBaseline, CodeConstraintsViolated, CodeStagnationReached:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err is an AppError carrying code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the AppError code, or CodeUnknown if err isn't one.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus extracts the AppError's HTTP status, defaulting to 500.
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Predefined errors for the taxonomy's fatal kinds.
var (
	ErrConfigInvalid   = New(CodeConfigInvalid, "job configuration is invalid")
	ErrNoValidBaseline = New(CodeNoValidBaseline, "baseline builder could not produce a valid schedule")
	ErrExecutionError  = New(CodeExecutionError, "unexpected internal fault")
)

// ConfigInvalid builds a ConfigInvalid error with a specific reason.
func ConfigInvalid(reason string) *AppError {
	return New(CodeConfigInvalid, reason)
}

// ValidationErrors collects field-level validation failures (e.g. from
// go-playground/validator) before they're turned into a single AppError.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeInvalidInput, "validation failed")
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	return err
}
