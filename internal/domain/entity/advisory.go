package entity

import (
	"time"
)

// AdvisoryKind classifies a degraded-but-working condition shown to the visitor
type AdvisoryKind string

const (
	AdvisoryOfflineRates          AdvisoryKind = "offline_rates"
	AdvisoryConversionUnavailable AdvisoryKind = "conversion_unavailable"
)

// Advisory is a non-blocking notification raised during currency resolution
type Advisory struct {
	Kind        AdvisoryKind `json:"kind"`
	Currency    CurrencyCode `json:"currency"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	RaisedAt    time.Time    `json:"raised_at"`
}

// NewOfflineRatesAdvisory is raised when a static fallback rate is in use
func NewOfflineRatesAdvisory(currency CurrencyCode) Advisory {
	return Advisory{
		Kind:        AdvisoryOfflineRates,
		Currency:    currency,
		Title:       "Using offline rates",
		Description: "Prices shown in " + string(currency),
		RaisedAt:    time.Now().UTC(),
	}
}

// NewConversionUnavailableAdvisory is raised when prices fall back to the base currency
func NewConversionUnavailableAdvisory(requested CurrencyCode) Advisory {
	return Advisory{
		Kind:        AdvisoryConversionUnavailable,
		Currency:    requested,
		Title:       "Currency conversion unavailable",
		Description: "Prices shown in " + string(BaseCurrency),
		RaisedAt:    time.Now().UTC(),
	}
}
