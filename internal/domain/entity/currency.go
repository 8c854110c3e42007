package entity

import (
	"strings"
)

// CurrencyCode is an uppercase ISO 4217 currency code
type CurrencyCode string

const (
	ZAR CurrencyCode = "ZAR"
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	GBP CurrencyCode = "GBP"
	INR CurrencyCode = "INR"
	AUD CurrencyCode = "AUD"
	CAD CurrencyCode = "CAD"
	JPY CurrencyCode = "JPY"
)

// BaseCurrency is the currency every product price is authored in
const BaseCurrency = ZAR

// SupportedCurrencies lists the currencies prices can be displayed in
var SupportedCurrencies = []CurrencyCode{ZAR, USD, EUR, GBP, INR, AUD, CAD, JPY}

// ParseCurrencyCode normalizes user input into a currency code
func ParseCurrencyCode(s string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
}

// IsSupported reports whether the code is in SupportedCurrencies
func (c CurrencyCode) IsSupported() bool {
	for _, supported := range SupportedCurrencies {
		if c == supported {
			return true
		}
	}
	return false
}

func (c CurrencyCode) String() string {
	return string(c)
}
