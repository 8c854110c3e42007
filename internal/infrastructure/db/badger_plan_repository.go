package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const planKeyPrefix = "plan:"

// BadgerPlanRepository implements the plan repository interface using BadgerDB
type BadgerPlanRepository struct {
	db *badger.DB
}

// NewBadgerPlanRepository creates a new BadgerDB plan repository
func NewBadgerPlanRepository(db *badger.DB) *BadgerPlanRepository {
	return &BadgerPlanRepository{db: db}
}

// Store saves a plan keyed by slug, assigning an ID when it has none
func (r *BadgerPlanRepository) Store(ctx context.Context, plan *entity.Plan) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", fmt.Errorf("invalid plan: %w", err)
	}

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(planKeyPrefix+plan.Slug), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store plan: %w", err)
	}

	return plan.ID, nil
}

// FindBySlug retrieves a plan by its slug
func (r *BadgerPlanRepository) FindBySlug(ctx context.Context, slug string) (*entity.Plan, error) {
	var plan entity.Plan

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(planKeyPrefix + slug))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &plan)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("plan %s: %w", slug, repository.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to retrieve plan: %w", err)
	}

	return &plan, nil
}

// List returns every stored plan, cheapest first
func (r *BadgerPlanRepository) List(ctx context.Context) ([]*entity.Plan, error) {
	var plans []*entity.Plan

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(planKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var plan entity.Plan
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &plan)
			})
			if err != nil {
				return err
			}
			plans = append(plans, &plan)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].PriceZAR < plans[j].PriceZAR
	})

	return plans, nil
}
