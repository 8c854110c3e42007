package entity

import (
	"errors"
	"strings"
)

// Plan is a masterclass offering priced in the base currency
type Plan struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	PriceZAR float64  `json:"price_zar"`
	Period   string   `json:"period"`
	Features []string `json:"features"`
}

// Validate ensures the plan can be listed and quoted
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Slug) == "" {
		return errors.New("plan slug is required")
	}

	if p.PriceZAR <= 0 {
		return errors.New("price must be a positive value")
	}

	return nil
}

// Quote is a plan price expressed in the visitor's currency
type Quote struct {
	PlanID          string       `json:"plan_id"`
	Slug            string       `json:"slug"`
	Title           string       `json:"title"`
	Period          string       `json:"period"`
	PriceZAR        float64      `json:"price_zar"`
	Currency        CurrencyCode `json:"currency"`
	ExchangeRate    float64      `json:"exchange_rate"`
	ConvertedAmount float64      `json:"converted_amount"`
	Display         string       `json:"display"`
}
