package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/models"
)

// CoinGecko endpoints. The pro host is used whenever an API key is configured.
const (
	DefaultCryptoBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultCryptoProBaseURL = "https://pro-api.coingecko.com/api/v3"
	cryptoAPIKeyHeader      = "x-cg-pro-api-key"
)

// CryptoClientConfig configures the crypto price client.
type CryptoClientConfig struct {
	BaseURL       string
	ProBaseURL    string
	APIKey        string
	QuoteCurrency string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// CryptoClient fetches crypto quotes from the CoinGecko simple price endpoint.
type CryptoClient struct {
	baseURL string
	apiKey  string
	quote   string
	client  *http.Client
	log     zerolog.Logger
}

// NewCryptoClient creates a new crypto price client.
func NewCryptoClient(cfg CryptoClientConfig, log zerolog.Logger) *CryptoClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultCryptoBaseURL
	}
	if cfg.APIKey != "" {
		baseURL = cfg.ProBaseURL
		if baseURL == "" {
			baseURL = DefaultCryptoProBaseURL
		}
	}
	quote := strings.ToUpper(strings.TrimSpace(cfg.QuoteCurrency))
	if quote == "" {
		quote = string(models.USD)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &CryptoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		quote:   quote,
		client:  httpClient,
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// Name returns the provider name used in errors and logs.
func (c *CryptoClient) Name() string { return "coingecko" }

// Source returns the cache source tag for this provider.
func (c *CryptoClient) Source() models.PriceSource { return models.SourceCryptoProvider }

// FetchLivePrice fetches the current price of a coin id. The provider only reports a
// percentage change, so the absolute change is derived from it.
func (c *CryptoClient) FetchLivePrice(ctx context.Context, coinID, _ string) (*LivePrice, error) {
	vs := strings.ToLower(c.quote)
	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", vs)
	params.Set("include_24hr_change", "true")
	endpoint := c.baseURL + "/simple/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(cryptoAPIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewProviderError(errors.KindNetworkError, c.Name(), coinID, 0, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("coin", coinID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Simple price request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.FromStatus(c.Name(), coinID, resp.StatusCode)
	}

	var raw map[string]map[string]*float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.NewProviderError(errors.KindNetworkError, c.Name(), coinID, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}

	entry, ok := raw[coinID]
	if !ok || entry[vs] == nil {
		return nil, errors.NewProviderError(errors.KindNotFound, c.Name(), coinID, resp.StatusCode, nil)
	}

	price := decimal.NewFromFloat(*entry[vs])
	live := &LivePrice{
		Price:    price,
		Currency: models.Currency(c.quote),
	}
	if pct := entry[vs+"_24h_change"]; pct != nil {
		live.ChangePercent = decimal.NewNullDecimal(decimal.NewFromFloat(*pct))
		live.ChangeAbsolute = DeriveChangeAbsolute(price, live.ChangePercent)
	}

	return live, nil
}
