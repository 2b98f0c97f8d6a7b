// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors
var (
	ErrNotTradeable    = errors.New("holding type is not tradeable")
	ErrMissingSymbol   = errors.New("holding has no symbol")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrNotFound        = errors.New("no price data found")
	ErrRateLimited     = errors.New("rate limited")
	ErrHTTP            = errors.New("upstream http error")
	ErrNetwork         = errors.New("network error")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDatabaseError   = errors.New("database error")
	ErrInputValidation = errors.New("input validation failed")
)

// ProviderErrorKind classifies a market data failure.
type ProviderErrorKind string

const (
	KindRateLimited   ProviderErrorKind = "RateLimited"
	KindHTTPError     ProviderErrorKind = "HttpError"
	KindNetworkError  ProviderErrorKind = "NetworkError"
	KindNotFound      ProviderErrorKind = "NotFound"
	KindUnknownSymbol ProviderErrorKind = "UnknownSymbol"
)

var kindSentinels = map[ProviderErrorKind]error{
	KindRateLimited:   ErrRateLimited,
	KindHTTPError:     ErrHTTP,
	KindNetworkError:  ErrNetwork,
	KindNotFound:      ErrNotFound,
	KindUnknownSymbol: ErrUnknownSymbol,
}

// ProviderError represents a failure talking to a market data provider.
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	Symbol     string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.Provider != "" {
		fmt.Fprintf(&b, " from %s", e.Provider)
	}
	fmt.Fprintf(&b, " for %s", e.Symbol)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a ProviderError against the sentinel for its kind.
func (e *ProviderError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// NewProviderError creates a new ProviderError.
func NewProviderError(kind ProviderErrorKind, provider, symbol string, statusCode int, err error) *ProviderError {
	return &ProviderError{
		Kind:       kind,
		Provider:   provider,
		Symbol:     symbol,
		StatusCode: statusCode,
		Err:        err,
	}
}

// FromStatus maps a non-2xx HTTP status to a ProviderError.
func FromStatus(provider, symbol string, status int) *ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return NewProviderError(KindRateLimited, provider, symbol, status, nil)
	case status == http.StatusNotFound:
		return NewProviderError(KindNotFound, provider, symbol, status, nil)
	default:
		return NewProviderError(KindHTTPError, provider, symbol, status, nil)
	}
}

// IsRetryable reports whether err is a transient failure worth another attempt.
// Rate limits, network failures and any other non-2xx upstream response are
// retryable. NotFound and UnknownSymbol answers are fatal.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case KindRateLimited, KindNetworkError, KindHTTPError:
		return true
	}
	return false
}

// HoldingError represents a holding that cannot be priced at all.
type HoldingError struct {
	HoldingID string
	Type      string
	Err       error
}

func (e *HoldingError) Error() string {
	return fmt.Sprintf("holding %s (%s): %v", e.HoldingID, e.Type, e.Err)
}

func (e *HoldingError) Unwrap() error {
	return e.Err
}

// NewHoldingError creates a new HoldingError.
func NewHoldingError(holdingID, holdingType string, err error) *HoldingError {
	return &HoldingError{
		HoldingID: holdingID,
		Type:      holdingType,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// RowError represents a failure while importing a single CSV row.
type RowError struct {
	Row    int
	Errors []string
}

func (e *RowError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func (e *RowError) Unwrap() error {
	return ErrInputValidation
}

// NewRowError creates a new RowError.
func NewRowError(row int, errs []string) *RowError {
	return &RowError{
		Row:    row,
		Errors: errs,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
