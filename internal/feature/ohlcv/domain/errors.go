// Package domain defines domain-level errors for the ohlcv ingestion feature.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors for ingestion operations.
// Callers classify failures with errors.Is; provider failures are carried by *ProviderError.
var (
	// ErrInvalidRange indicates a date window whose start is after its end.
	// It is fatal to a run and is raised before any ticker work starts.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidRequest indicates an ingestion request that cannot be resolved
	// (conflicting date modes, malformed dates, missing target fields).
	ErrInvalidRequest = errors.New("invalid ingestion request")

	// ErrTransientProvider marks a retryable provider failure
	// (timeouts, connection resets, HTTP 429/503, rate-limit signals).
	ErrTransientProvider = errors.New("transient provider error")

	// ErrEmptyProvider marks a provider call that succeeded but returned no candles.
	ErrEmptyProvider = errors.New("provider returned no data")

	// ErrPermanentProvider marks a non-retryable provider failure
	// (malformed request, unknown symbol, non-retryable 4xx).
	ErrPermanentProvider = errors.New("permanent provider error")

	// ErrNormalization indicates provider output that failed canonical validation.
	ErrNormalization = errors.New("ohlcv normalization failed")

	// ErrInstrumentNotFound is returned when a single-ticker override does not resolve.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrNoInstruments is returned when an index resolves to zero instruments.
	ErrNoInstruments = errors.New("no instruments found for index")

	// ErrRunNotFound is returned when an ingestion run id does not exist.
	ErrRunNotFound = errors.New("ingestion run not found")

	// ErrRunAlreadyFinalized is returned when a run is finalized a second time.
	ErrRunAlreadyFinalized = errors.New("ingestion run already finalized")
)

// ProviderErrorKind classifies a provider failure by what the caller should do next.
type ProviderErrorKind int

const (
	// KindTransient means try the same provider again.
	KindTransient ProviderErrorKind = iota + 1
	// KindEmpty means try the next provider.
	KindEmpty
	// KindPermanent means try the next provider.
	KindPermanent
)

func (k ProviderErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindEmpty:
		return "empty"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

func (k ProviderErrorKind) sentinel() error {
	switch k {
	case KindTransient:
		return ErrTransientProvider
	case KindEmpty:
		return ErrEmptyProvider
	case KindPermanent:
		return ErrPermanentProvider
	default:
		return nil
	}
}

// ProviderError is the error type every provider client returns.
// errors.Is(err, ErrTransientProvider) and friends match on Kind.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider string
	Msg      string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Msg
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *ProviderError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewTransient returns a KindTransient provider error.
func NewTransient(provider, msg string, err error) *ProviderError {
	return &ProviderError{Kind: KindTransient, Provider: provider, Msg: msg, Err: err}
}

// NewEmpty returns a KindEmpty provider error.
func NewEmpty(provider, msg string) *ProviderError {
	return &ProviderError{Kind: KindEmpty, Provider: provider, Msg: msg}
}

// NewPermanent returns a KindPermanent provider error.
func NewPermanent(provider, msg string, err error) *ProviderError {
	return &ProviderError{Kind: KindPermanent, Provider: provider, Msg: msg, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a transient provider failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

// KindOf returns the kind of the outermost *ProviderError in err's chain, or 0.
func KindOf(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
