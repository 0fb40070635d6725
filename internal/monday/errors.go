package monday

import (
	"fmt"
	"strings"
)

// AuthError indicates a missing credential or a 401/403 from the API.
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("monday authentication failed: status=%d %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("monday authentication failed: %s", e.Reason)
}

// RemoteError is a non-retryable error reported by the API, either as an
// error payload or as an unexpected HTTP status.
type RemoteError struct {
	StatusCode int
	Messages   []string
	RequestID  string
}

func (e *RemoteError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	switch {
	case e.StatusCode != 0 && e.RequestID != "":
		return fmt.Sprintf("monday api error: status=%d request_id=%s message=%s", e.StatusCode, e.RequestID, msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("monday api error: status=%d message=%s", e.StatusCode, msg)
	default:
		return fmt.Sprintf("monday api error: %s", msg)
	}
}

// TransportError is returned once every attempt of a logical request failed
// on a retryable condition. Reason carries the last observed failure.
type TransportError struct {
	Attempts int
	Reason   string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("monday api failed after %d attempts: %s", e.Attempts, e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

// retryableMessage reports whether a remote error payload signals throttling.
func retryableMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "complexity")
}
