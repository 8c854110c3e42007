package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const (
	DefaultGeoBaseURL = "https://ipapi.co"
	geoLookupPath     = "/json/"
)

// GeolocationClient resolves the caller's currency from an ipapi.co compatible API
type GeolocationClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewGeolocationClient creates a new geolocation client
func NewGeolocationClient(baseURL string, httpClient *http.Client, log logger.Logger) *GeolocationClient {
	if baseURL == "" {
		baseURL = DefaultGeoBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 5 * time.Second,
		}
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &GeolocationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     log.WithField("component", "geolocation_client"),
	}
}

// GeoResponse holds the fields read from the lookup body
type GeoResponse struct {
	Currency    string `json:"currency"`
	CountryCode string `json:"country_code"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// LookupCurrency returns the currency of the caller's country.
// The returned code is not checked against SupportedCurrencies.
func (c *GeolocationClient) LookupCurrency(ctx context.Context) (entity.CurrencyCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+geoLookupPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API returned error status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var payload GeoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if payload.Error {
		return "", fmt.Errorf("lookup failed: %s", payload.Reason)
	}

	if code := entity.ParseCurrencyCode(payload.Currency); len(code) >= 2 && len(code) <= 3 {
		return code, nil
	}

	if code, ok := currencyForCountry(payload.CountryCode); ok {
		c.logger.Debug("Currency derived from country", map[string]interface{}{
			"country":  payload.CountryCode,
			"currency": string(code),
		})
		return code, nil
	}

	return "", fmt.Errorf("response has no usable currency or country")
}

// currencyForCountry maps an ISO 3166-1 alpha-2 code to its current currency
func currencyForCountry(country string) (entity.CurrencyCode, bool) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return "", false
	}

	region, err := language.ParseRegion(country)
	if err != nil {
		return "", false
	}

	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", false
	}

	return entity.CurrencyCode(unit.String()), true
}
