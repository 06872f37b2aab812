package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/evcharge-client/internal/errors"
)

// Error classes, matchable with errors.Is
var (
	ErrNetwork      = errors.ErrNetwork
	ErrUnauthorized = errors.ErrUnauthorized
	ErrValidation   = errors.ErrValidation
	ErrServer       = errors.ErrServer
	ErrAuthExpired  = errors.ErrAuthExpired
	ErrNoToken      = errors.ErrNoToken
	ErrSessionEnded = errors.ErrSessionEnded
)

const maxPlainMessage = 200

// NetworkError means no response was received at all.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// HTTPError is any non-2xx response, including a 401 that could not be recovered.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Message    string // Server supplied message, empty when none could be extracted
}

func newHTTPError(method, url string, resp *Response) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Message:    extractMessage(resp.Body),
	}
}

func (e *HTTPError) Error() string {
	status := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, status)
}

// Is classifies the status: 401 is ErrUnauthorized, other 4xx ErrValidation
// (404 also ErrNotFound), 5xx ErrServer.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrValidation:
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusUnauthorized
	case errors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// AuthExpiredError is returned when a 401 could not be recovered because the
// refresh failed. The stored session has already been cleared.
type AuthExpiredError struct {
	Original *HTTPError // The 401 that triggered the refresh
	Cause    error      // Why the refresh failed
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("authentication expired: %v (refresh failed: %v)", e.Original, e.Cause)
}

func (e *AuthExpiredError) Unwrap() []error {
	return []error{e.Original, e.Cause}
}

func (e *AuthExpiredError) Is(target error) bool { return target == ErrAuthExpired }

// extractMessage pulls "error" then "message" out of a JSON body, or uses a
// short plain text body as is.
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		for _, key := range []string{"error", "message"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}

	if strings.HasPrefix(trimmed, "<") || len(trimmed) > maxPlainMessage {
		return ""
	}
	return trimmed
}

// ServerMessage returns the server supplied message carried by err, if any.
func ServerMessage(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return ""
}

// UserMessage renders err for display. An expired session always gets the
// fixed re-login prompt; otherwise the server message when present, the
// fallback when not.
func UserMessage(err error, fallback string) string {
	if errors.Is(err, ErrAuthExpired) {
		return "Your session has expired. Please log in again."
	}
	if msg := ServerMessage(err); msg != "" {
		return msg
	}
	if errors.Is(err, ErrNetwork) {
		return "Unable to reach the server. Check your connection and try again."
	}
	return fallback
}
