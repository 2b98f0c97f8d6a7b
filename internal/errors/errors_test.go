package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMatchesSentinel(t *testing.T) {
	err := NewProviderError(KindRateLimited, "yahoo", "CBA.AX", http.StatusTooManyRequests, nil)
	wrapped := fmt.Errorf("fetch: %w", err)

	assert.True(t, Is(wrapped, ErrRateLimited))
	assert.False(t, Is(wrapped, ErrNotFound))

	var pe *ProviderError
	assert.True(t, As(wrapped, &pe))
	assert.Equal(t, "CBA.AX", pe.Symbol)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
}

func TestProviderErrorMessage(t *testing.T) {
	cause := New("connection refused")
	err := NewProviderError(KindNetworkError, "coingecko", "bitcoin", 0, cause)
	assert.Equal(t, "NetworkError from coingecko for bitcoin: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ProviderErrorKind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadGateway, KindHTTPError},
		{http.StatusUnauthorized, KindHTTPError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.kind, FromStatus("p", "X", tt.status).Kind)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", NewProviderError(KindRateLimited, "", "X", 429, nil), true},
		{"network", NewProviderError(KindNetworkError, "", "X", 0, nil), true},
		{"server error", NewProviderError(KindHTTPError, "", "X", 503, nil), true},
		{"client error", NewProviderError(KindHTTPError, "", "X", 401, nil), true},
		{"bad request", FromStatus("p", "X", http.StatusBadRequest), true},
		{"not found", NewProviderError(KindNotFound, "", "X", 404, nil), false},
		{"unknown symbol", NewProviderError(KindUnknownSymbol, "", "X", 0, nil), false},
		{"not tradeable", ErrNotTradeable, false},
		{"wrapped network", fmt.Errorf("ctx: %w", NewProviderError(KindNetworkError, "", "X", 0, nil)), true},
		{"plain", New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRowErrorJoinsMessages(t *testing.T) {
	err := NewRowError(3, []string{"Row 3: a", "Row 3: b"})
	assert.Equal(t, "Row 3: a; Row 3: b", err.Error())
	assert.ErrorIs(t, err, ErrInputValidation)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ctx"))
	assert.NoError(t, Wrapf(nil, "ctx %d", 1))
}
