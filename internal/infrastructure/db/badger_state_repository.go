package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
)

const (
	currencyKey = "currency"
	ratesKey    = "currencyRates"
)

// BadgerStateRepository persists the currency selection in BadgerDB
type BadgerStateRepository struct {
	db *badger.DB
}

// NewBadgerStateRepository creates a new BadgerDB state repository
func NewBadgerStateRepository(db *badger.DB) *BadgerStateRepository {
	return &BadgerStateRepository{db: db}
}

// LoadCurrency returns the persisted selected currency
func (r *BadgerStateRepository) LoadCurrency(ctx context.Context) (entity.CurrencyCode, error) {
	val, err := r.get([]byte(currencyKey))
	if err != nil {
		return "", err
	}

	code := entity.ParseCurrencyCode(string(val))
	if code == "" {
		return "", repository.ErrNotFound
	}

	return code, nil
}

// LoadRates returns the persisted rate table
func (r *BadgerStateRepository) LoadRates(ctx context.Context) (*repository.PersistedRates, error) {
	val, err := r.get([]byte(ratesKey))
	if err != nil {
		return nil, err
	}

	var persisted repository.PersistedRates
	if err := json.Unmarshal(val, &persisted); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rates: %w", err)
	}

	if persisted.Rates == nil {
		persisted.Rates = entity.NewRateTable()
	}

	return &persisted, nil
}

// SaveCurrency stores the selected currency
func (r *BadgerStateRepository) SaveCurrency(ctx context.Context, currency entity.CurrencyCode) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(currencyKey), []byte(currency))
	})
	if err != nil {
		return fmt.Errorf("failed to store currency: %w", err)
	}

	return nil
}

// SaveRates stores the rate table with the base identity rate enforced
func (r *BadgerStateRepository) SaveRates(ctx context.Context, rates *repository.PersistedRates) error {
	data, err := json.Marshal(repository.PersistedRates{
		Rates:     rates.Rates.Clone(),
		UpdatedAt: rates.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ratesKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store rates: %w", err)
	}

	return nil
}

func (r *BadgerStateRepository) get(key []byte) ([]byte, error) {
	var out []byte

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		out, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	return out, nil
}
