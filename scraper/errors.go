package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrRateLimited indicates the target rate-limited the request (HTTP 429).
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrBlocked indicates the target refused the request (HTTP 403), usually
// because the egress identity is burned.
type ErrBlocked struct {
	Err error
}

func (e ErrBlocked) Error() string {
	return fmt.Errorf("blocked: %w", e.Err).Error()
}

func (e ErrBlocked) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates the per-request timeout elapsed.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrNetwork covers connection failures and other non-2xx responses.
type ErrNetwork struct {
	Err error
}

func (e ErrNetwork) Error() string {
	return fmt.Errorf("network: %w", e.Err).Error()
}

func (e ErrNetwork) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error and HTTP status to the fetch error
// taxonomy.
func classifyError(err error, statusCode int) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited{Err: statusError(err, statusCode)}
	case http.StatusForbidden:
		return ErrBlocked{Err: statusError(err, statusCode)}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}

	return ErrNetwork{Err: statusError(err, statusCode)}
}

func statusError(err error, statusCode int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("http status %d", statusCode)
}

// errorTypeLabel renders the taxonomy kind for logs and metrics.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var blocked ErrBlocked
	if errors.As(err, &blocked) {
		return "blocked"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var network ErrNetwork
	if errors.As(err, &network) {
		return "network"
	}
	return "other"
}
