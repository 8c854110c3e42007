// Package repository declares the storage ports used by the application layer
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// ErrNotFound is returned when a key has never been written
var ErrNotFound = errors.New("not found")

// PersistedRates is the rate table as last written, with its write time
type PersistedRates struct {
	Rates     entity.RateTable `json:"rates"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// StateRepository persists the visitor's currency selection across restarts
type StateRepository interface {
	// LoadCurrency returns the persisted selected currency or ErrNotFound
	LoadCurrency(ctx context.Context) (entity.CurrencyCode, error)

	// LoadRates returns the persisted rate table or ErrNotFound
	LoadRates(ctx context.Context) (*PersistedRates, error)

	SaveCurrency(ctx context.Context, currency entity.CurrencyCode) error
	SaveRates(ctx context.Context, rates *PersistedRates) error
}
