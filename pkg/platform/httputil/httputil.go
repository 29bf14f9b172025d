package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "eduhub/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope used by every endpoint. Error holds
// the human-readable message the UI shows; Code is the stable machine code.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Details   string          `json:"details,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Retryable *bool           `json:"retryable,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error: domainErr.Error(),
			Code:  DomainCodeToHTTPCode(domainErr.Code),
		})
		return
	}

	// Unexpected errors never leak their text.
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "internal server error",
		Code:  DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUpstream:
		return http.StatusBadGateway
	case dErrors.CodeMisconfigured, dErrors.CodeUpstreamUnavailable, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the code string of the JSON envelope.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeTimeout:
		return "timeout"
	case dErrors.CodeMisconfigured:
		return "server_misconfigured"
	case dErrors.CodeUpstreamUnavailable:
		return "issuer_unreachable"
	case dErrors.CodeUpstream:
		return "issuer_error"
	default:
		return "internal_error"
	}
}
