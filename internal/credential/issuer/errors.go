package issuer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen is wrapped by the TransportError returned while the
// breaker rejects calls.
var ErrCircuitOpen = errors.New("issuer circuit open")

// TransportError means no usable response arrived: the connection failed,
// the timeout expired or the circuit breaker refused the call. Retrying by
// hand is safe.
type TransportError struct {
	Err error
	// Reason is a short phrase for logs and metrics, e.g. "timeout".
	Reason string
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "issuer unreachable: " + e.Reason
	}
	if errors.Is(e.Err, ErrCircuitOpen) {
		return e.Err.Error()
	}
	return fmt.Sprintf("issuer unreachable (%s): %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IssuerError is a non-2xx answer from the issuer.
type IssuerError struct {
	StatusCode int
	// Details is the indented JSON body, or the raw text when the body is
	// not JSON.
	Details string
	// Data is the JSON body, nil when the body is not JSON.
	Data json.RawMessage
}

func (e *IssuerError) Error() string {
	return fmt.Sprintf("OCA API error: HTTP %d", e.StatusCode)
}

// Retryable reports whether the status signals a transient condition.
func (e *IssuerError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}
