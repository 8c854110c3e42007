package handler

import (
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// ChangeCurrencyRequest is the body of PUT /currency
type ChangeCurrencyRequest struct {
	Currency string `json:"currency"`
}

// CurrencyStateResponse describes the visitor's current currency
type CurrencyStateResponse struct {
	Currency   string             `json:"currency"`
	Symbol     string             `json:"symbol"`
	Rate       float64            `json:"rate"`
	Rates      map[string]float64 `json:"rates"`
	IsLoading  bool               `json:"is_loading"`
	Source     string             `json:"source"`
	UpdatedAt  string             `json:"updated_at,omitempty"`
	Supported  []string           `json:"supported"`
	Advisories []AdvisoryResponse `json:"advisories"`
}

// AdvisoryResponse is a notification for the visitor
type AdvisoryResponse struct {
	Kind        string `json:"kind"`
	Currency    string `json:"currency"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RaisedAt    string `json:"raised_at"`
}

// ConvertResponse is the result of converting a base amount
type ConvertResponse struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Rate      float64 `json:"rate"`
	Converted float64 `json:"converted"`
	Formatted string  `json:"formatted"`
}

// SymbolResponse maps a currency code to its display symbol
type SymbolResponse struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// QuoteResponse is a plan priced in the selected currency
type QuoteResponse struct {
	PlanID          string  `json:"plan_id"`
	Slug            string  `json:"slug"`
	Title           string  `json:"title"`
	Period          string  `json:"period"`
	PriceZAR        float64 `json:"price_zar"`
	Currency        string  `json:"currency"`
	ExchangeRate    float64 `json:"exchange_rate"`
	ConvertedAmount float64 `json:"converted_amount"`
	Display         string  `json:"display"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func toStateResponse(state entity.CurrencyState, symbol string, advisories []entity.Advisory) CurrencyStateResponse {
	rates := make(map[string]float64, len(state.Rates))
	for code, rate := range state.Rates {
		rates[string(code)] = rate
	}

	supported := make([]string, 0, len(entity.SupportedCurrencies))
	for _, code := range entity.SupportedCurrencies {
		supported = append(supported, string(code))
	}

	resp := CurrencyStateResponse{
		Currency:   string(state.SelectedCurrency),
		Symbol:     symbol,
		Rate:       state.Rate(),
		Rates:      rates,
		IsLoading:  state.IsLoading,
		Source:     string(state.Source),
		Supported:  supported,
		Advisories: make([]AdvisoryResponse, 0, len(advisories)),
	}

	if !state.UpdatedAt.IsZero() {
		resp.UpdatedAt = state.UpdatedAt.UTC().Format(time.RFC3339)
	}

	for _, a := range advisories {
		resp.Advisories = append(resp.Advisories, AdvisoryResponse{
			Kind:        string(a.Kind),
			Currency:    string(a.Currency),
			Title:       a.Title,
			Description: a.Description,
			RaisedAt:    a.RaisedAt.UTC().Format(time.RFC3339),
		})
	}

	return resp
}

func toQuoteResponse(q *entity.Quote) QuoteResponse {
	return QuoteResponse{
		PlanID:          q.PlanID,
		Slug:            q.Slug,
		Title:           q.Title,
		Period:          q.Period,
		PriceZAR:        q.PriceZAR,
		Currency:        string(q.Currency),
		ExchangeRate:    q.ExchangeRate,
		ConvertedAmount: q.ConvertedAmount,
		Display:         q.Display,
	}
}
