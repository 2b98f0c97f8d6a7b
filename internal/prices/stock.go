package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/models"
	"networth-tracker/internal/symbols"
)

// DefaultStockBaseURL is the Yahoo Finance chart API host.
const DefaultStockBaseURL = "https://query2.finance.yahoo.com"

// StockClientConfig configures the stock and ETF price client.
type StockClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// StockClient fetches stock and ETF quotes from the Yahoo Finance v8 chart endpoint.
type StockClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
}

// NewStockClient creates a new stock price client.
func NewStockClient(cfg StockClientConfig, log zerolog.Logger) *StockClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultStockBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "networth-tracker/1.0"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &StockClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    httpClient,
		log:       log.With().Str("client", "yahoo").Logger(),
	}
}

// Name returns the provider name used in errors and logs.
func (c *StockClient) Name() string { return "yahoo" }

// Source returns the cache source tag for this provider.
func (c *StockClient) Source() models.PriceSource { return models.SourceStockProvider }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string   `json:"currency"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
				PreviousClose      *float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchLivePrice fetches the latest quote for a normalized stock symbol.
// The quote currency is inferred from the symbol's market suffix.
func (c *StockClient) FetchLivePrice(ctx context.Context, symbol, exchange string) (*LivePrice, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewProviderError(errors.KindNetworkError, c.Name(), symbol, 0, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("symbol", symbol).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Chart request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.FromStatus(c.Name(), symbol, resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.NewProviderError(errors.KindNetworkError, c.Name(), symbol, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}

	if raw.Chart.Error != nil || len(raw.Chart.Result) == 0 {
		var cause error
		if raw.Chart.Error != nil {
			cause = fmt.Errorf("%s: %s", raw.Chart.Error.Code, raw.Chart.Error.Description)
		}
		return nil, errors.NewProviderError(errors.KindNotFound, c.Name(), symbol, resp.StatusCode, cause)
	}

	meta := raw.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice <= 0 {
		return nil, errors.NewProviderError(errors.KindNotFound, c.Name(), symbol, resp.StatusCode, nil)
	}

	price := decimal.NewFromFloat(*meta.RegularMarketPrice)
	live := &LivePrice{
		Price:    price,
		Currency: symbols.CurrencyFor(symbol),
	}

	prev := meta.PreviousClose
	if prev == nil || *prev <= 0 {
		prev = meta.ChartPreviousClose
	}
	if prev != nil && *prev > 0 {
		previous := decimal.NewFromFloat(*prev)
		change := price.Sub(previous)
		live.ChangeAbsolute = decimal.NewNullDecimal(change)
		live.ChangePercent = decimal.NewNullDecimal(change.Div(previous).Mul(hundred).Round(4))
	}

	return live, nil
}
