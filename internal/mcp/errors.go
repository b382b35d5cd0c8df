package mcp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ganot/openproject-mcp/internal/openproject"
)

// Result codes carried by error results.
const (
	CodeInvalidArguments    = "INVALID_ARGUMENTS"
	CodeUnknownTool         = "UNKNOWN_TOOL"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeTimeout             = "TIMEOUT"
	CodeTransportError      = "TRANSPORT_ERROR"
	CodeWriteOutcomeUnknown = "WRITE_OUTCOME_UNKNOWN"
	CodeBackendError        = "BACKEND_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// ErrUnknownTool is returned for a tool name outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// DefaultErrorHints is the tool guidance used when none is configured.
// The text is appended to every error result of that tool.
var DefaultErrorHints = map[string]string{
	"set_work_package_status": "STOP on error. Do not investigate.",
}

// ValidationError reports arguments that do not match a tool's input
// schema.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
}

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError classifies an error into a result code. Every non-nil error
// maps to something; unclassified errors become INTERNAL_ERROR.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return &APIError{Code: CodeInvalidArguments, Message: err.Error(), Details: map[string]string{"field": validation.Field}, RecoveryHint: "Check the arguments against the tool's input schema"}
	}

	var backend *openproject.APIError
	hasBackend := errors.As(err, &backend)

	switch {
	case errors.Is(err, ErrUnknownTool):
		return &APIError{Code: CodeUnknownTool, Message: err.Error(), RecoveryHint: "Call tools/list for the available tools"}
	case errors.Is(err, openproject.ErrWriteOutcomeUnknown):
		return &APIError{Code: CodeWriteOutcomeUnknown, Message: err.Error(), RecoveryHint: "Read the resource to see whether the change was applied before retrying"}
	case errors.Is(err, openproject.ErrConflict):
		return &APIError{Code: CodeConflict, Message: err.Error(), Details: backendDetails(backend), RecoveryHint: "The resource changed since it was read; fetch it again and reapply the change"}
	case errors.Is(err, openproject.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: err.Error(), RecoveryHint: "Check the ID; the list tools return valid IDs"}
	case errors.Is(err, openproject.ErrTimeout):
		return &APIError{Code: CodeTimeout, Message: err.Error(), RecoveryHint: "The backend did not answer in time"}
	case errors.Is(err, openproject.ErrTransport):
		return &APIError{Code: CodeTransportError, Message: err.Error(), RecoveryHint: "The OpenProject server could not be reached; check OPENPROJECT_BASE_URL and the network"}
	case errors.Is(err, openproject.ErrInvalidArgument):
		return &APIError{Code: CodeInvalidArguments, Message: err.Error()}
	case hasBackend:
		apiErr := &APIError{Code: CodeBackendError, Message: err.Error(), Details: backendDetails(backend)}
		switch backend.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			apiErr.RecoveryHint = "Check the configured API key and its permissions"
		case http.StatusUnprocessableEntity:
			apiErr.RecoveryHint = "The backend rejected the values; see details"
		}
		return apiErr
	default:
		return &APIError{Code: CodeInternalError, Message: err.Error()}
	}
}

func backendDetails(err *openproject.APIError) any {
	if err == nil {
		return nil
	}
	details := map[string]any{"status": err.StatusCode}
	if err.Identifier != "" {
		details["identifier"] = err.Identifier
	}
	if len(err.Details) > 0 {
		details["details"] = err.Details
	}
	return details
}
