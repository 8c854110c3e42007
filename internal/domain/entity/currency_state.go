package entity

import (
	"time"
)

// RateSource describes where the rate for the selected currency came from
type RateSource string

const (
	SourceLive     RateSource = "live"
	SourceCached   RateSource = "cached"
	SourceFallback RateSource = "fallback"
	SourceBase     RateSource = "base"
)

// CurrencyState is the visitor's resolved currency selection
type CurrencyState struct {
	SelectedCurrency CurrencyCode `json:"selected_currency"`
	Rates            RateTable    `json:"rates"`
	IsLoading        bool         `json:"is_loading"`
	Source           RateSource   `json:"source"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DefaultCurrencyState is the state before anything has been resolved
func DefaultCurrencyState() CurrencyState {
	return CurrencyState{
		SelectedCurrency: BaseCurrency,
		Rates:            NewRateTable(),
		Source:           SourceBase,
	}
}

// Rate returns the rate of the selected currency, or 1 when none is known
func (s CurrencyState) Rate() float64 {
	if rate, ok := s.Rates.Rate(s.SelectedCurrency); ok {
		return rate
	}
	return 1
}

// Copy returns a state that shares no mutable data with s
func (s CurrencyState) Copy() CurrencyState {
	s.Rates = s.Rates.Clone()
	return s
}
