// Package externalapi holds helpers shared by the market data provider clients.
package externalapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"ohlcv_ingestor/internal/feature/ohlcv/domain"
)

// transientMarkers are substrings of error text that indicate a retryable failure
// when the error carries no typed information.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"connection error",
	"broken pipe",
	"eof",
	"temporarily unavailable",
	"service unavailable",
	"too many requests",
	"rate limit",
	"429",
	"503",
}

// IsTransientError reports whether err looks like a retryable network or throttling failure.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// ClassifyError wraps a transport or client error as a provider error.
func ClassifyError(provider, msg string, err error) *domain.ProviderError {
	if IsTransientError(err) {
		return domain.NewTransient(provider, msg, err)
	}
	return domain.NewPermanent(provider, msg, err)
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= http.StatusInternalServerError
}

// ClassifyStatus maps a non-2xx HTTP status to a provider error.
func ClassifyStatus(provider string, code int) *domain.ProviderError {
	msg := fmt.Sprintf("http %d", code)
	if IsTransientStatus(code) {
		return domain.NewTransient(provider, msg, nil)
	}
	return domain.NewPermanent(provider, msg, nil)
}
