package repository

import (
	"context"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
)

// PlanRepository defines the interface for plan catalog storage
type PlanRepository interface {
	// Store saves a plan and returns its ID
	Store(ctx context.Context, plan *entity.Plan) (string, error)

	// FindBySlug retrieves a plan by its slug
	FindBySlug(ctx context.Context, slug string) (*entity.Plan, error)

	// List returns every plan ordered by price
	List(ctx context.Context) ([]*entity.Plan, error)
}
