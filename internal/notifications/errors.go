package notifications

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
)

// SendError classifies a failed delivery so callers can decide on retries.
type SendError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notification failed [%s %d]: %v", e.Type, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *SendError) Unwrap() error {
	return e.Underlying
}

func (e *SendError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "timeout", "rate_limit", "transient":
		return true
	case "auth", "client", "rejected", "disabled", "ambiguous":
		return false
	default:
		return e.StatusCode >= 500
	}
}

// IsRetryable is the retry predicate for delivery errors. Unclassified
// errors are treated as transient.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.IsRetryable()
	}
	return true
}

// classifySMTP maps an SMTP client error onto a SendError.
func classifySMTP(err error) *SendError {
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		switch {
		case tp.Code == 530 || tp.Code == 534 || tp.Code == 535:
			return &SendError{Type: "auth", StatusCode: tp.Code, Underlying: err}
		case tp.Code >= 400 && tp.Code < 500:
			return &SendError{Type: "transient", StatusCode: tp.Code, Underlying: err}
		default:
			return &SendError{Type: "rejected", StatusCode: tp.Code, Underlying: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Type: "timeout", Underlying: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &SendError{Type: "network", Underlying: err}
	}
	return &SendError{Type: "unknown", Underlying: err}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
