package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // One or more scenarios failed
	ExitCommandError = 2 // Bad arguments, unreadable files, sampler errors
)

// ExitError carries the exit code a command should terminate with.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
// Errors that are not ExitErrors, such as flag parsing failures, are
// command errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Response is the envelope of every JSON document the CLI prints.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failure in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeScenariosFailed marks a run report with failing scenarios.
const CodeScenariosFailed = "E_SCENARIOS_FAILED"

// writeJSON prints data in the response envelope. A non-nil fail marks the
// response as an error.
func writeJSON(w io.Writer, data any, fail *ResponseError) error {
	resp := Response{Status: "ok", Data: data}
	if fail != nil {
		resp.Status = "error"
		resp.Error = fail
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
