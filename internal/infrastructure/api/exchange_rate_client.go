package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/cache"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
)

const (
	DefaultRatesBaseURL = "https://api.exchangerate.host"
	latestRatesPath     = "/latest"

	// maxBodyBytes bounds how much of a provider response is read
	maxBodyBytes = 1 << 20
)

// ExchangeRateClient fetches latest rates from an exchangerate.host compatible API
type ExchangeRateClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.RateTableCache
	logger     logger.Logger
}

// NewExchangeRateClient creates a new exchange rate client
func NewExchangeRateClient(baseURL string, httpClient *http.Client, cacheTTL time.Duration, log logger.Logger) *ExchangeRateClient {
	if baseURL == "" {
		baseURL = DefaultRatesBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ExchangeRateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cache:      cache.NewRateTableCache(cacheTTL),
		logger:     log.WithField("component", "exchange_rate_client"),
	}
}

// LatestRatesResponse is the body returned by the latest rates endpoint
type LatestRatesResponse struct {
	Success *bool              `json:"success,omitempty"`
	Base    string             `json:"base"`
	Date    string             `json:"date"`
	Rates   map[string]float64 `json:"rates"`
}

// FetchRates retrieves the value of one unit of base in each of symbols.
// Any transport failure, non-2xx status, or malformed body is an error; there is no retry.
func (c *ExchangeRateClient) FetchRates(ctx context.Context, base entity.CurrencyCode, symbols []entity.CurrencyCode) (entity.RateTable, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols requested")
	}

	if cached := c.cache.Get(base, symbols); cached != nil {
		c.logger.Debug("Rate cache hit", map[string]interface{}{
			"base":    string(base),
			"symbols": joinCodes(symbols),
		})
		return cached, nil
	}

	query := url.Values{}
	query.Set("base", string(base))
	query.Set("symbols", joinCodes(symbols))
	reqURL := c.baseURL + latestRatesPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Rate provider responded", map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API returned error status: %d", resp.StatusCode)
	}

	var payload LatestRatesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if payload.Success != nil && !*payload.Success {
		return nil, fmt.Errorf("API reported an unsuccessful response")
	}

	if payload.Rates == nil {
		return nil, fmt.Errorf("response has no rates")
	}

	rates := entity.NewRateTable()
	for code, rate := range payload.Rates {
		if rate <= 0 {
			continue
		}
		rates[entity.ParseCurrencyCode(code)] = rate
	}
	rates[entity.BaseCurrency] = 1

	c.cache.Put(base, symbols, rates)

	return rates, nil
}

func joinCodes(codes []entity.CurrencyCode) string {
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = string(code)
	}
	return strings.Join(parts, ",")
}
