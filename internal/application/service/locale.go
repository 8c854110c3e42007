package service

import (
	"strings"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// defaultRegion is assumed when a locale carries no region subtag
const defaultRegion = "ZA"

var regionCurrencies = map[string]entity.CurrencyCode{
	"ZA": entity.ZAR,
	"US": entity.USD,
	"GB": entity.GBP,
	"IN": entity.INR,
	"AU": entity.AUD,
	"CA": entity.CAD,
	"JP": entity.JPY,
}

var euroRegions = map[string]bool{
	"DE": true, "FR": true, "ES": true, "IT": true, "PT": true, "NL": true, "BE": true,
	"AT": true, "IE": true, "FI": true, "GR": true, "CY": true, "LU": true, "LV": true,
	"LT": true, "MT": true, "SI": true, "SK": true, "EE": true,
}

// RegionFromLocale extracts the upper-cased region subtag of a locale such as "en-DE".
// Script subtags are skipped, so "de-Latn-DE" reads DE.
func RegionFromLocale(locale string) string {
	parts := strings.FieldsFunc(locale, func(r rune) bool {
		return r == '-' || r == '_'
	})

	for _, part := range parts[min(1, len(parts)):] {
		if len(part) == 2 {
			return strings.ToUpper(part)
		}
	}

	if len(parts) > 1 {
		return strings.ToUpper(parts[1])
	}

	return defaultRegion
}

// CurrencyForLocale maps a locale to a supported currency. Unknown regions map to USD.
func CurrencyForLocale(locale string) entity.CurrencyCode {
	region := RegionFromLocale(locale)

	if euroRegions[region] {
		return entity.EUR
	}

	if code, ok := regionCurrencies[region]; ok {
		return code
	}

	return entity.USD
}
