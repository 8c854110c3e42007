// Package service declares the external collaborators of the currency resolver
package service

import (
	"context"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// RateProvider fetches live exchange rates relative to a base currency
type RateProvider interface {
	FetchRates(ctx context.Context, base entity.CurrencyCode, symbols []entity.CurrencyCode) (entity.RateTable, error)
}

// GeoLocator looks up the visitor's currency from their network location
type GeoLocator interface {
	LookupCurrency(ctx context.Context) (entity.CurrencyCode, error)
}

// Notifier delivers advisories to whoever renders them
type Notifier interface {
	Notify(advisory entity.Advisory)
}
