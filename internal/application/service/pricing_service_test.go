package service

import (
	"context"
	"errors"
	"testing"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	"github.com/damon-houk/masterclass-currency/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPricingService(t *testing.T) {
	ctx := context.Background()

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Return(entity.RateTable{entity.USD: 0.0533}, nil)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.JPY)).
		Return(entity.RateTable{entity.JPY: 8.4999}, nil)

	resolver := newTestResolver(provider, nil, nil, ResolverOptions{})
	defer resolver.Close()

	elite := &entity.Plan{ID: "plan-1", Slug: "elite", Title: "Individual Mastery", PriceZAR: 249, Period: "/masterclass"}
	premium := &entity.Plan{ID: "plan-2", Slug: "premium", Title: "One on One", PriceZAR: 1000, Period: "/empire"}

	plans := new(mocks.MockPlanRepository)
	plans.On("FindBySlug", mock.Anything, "elite").Return(elite, nil)
	plans.On("FindBySlug", mock.Anything, "broken").Return(nil, errors.New("disk failure"))
	plans.On("List", mock.Anything).Return([]*entity.Plan{elite, premium}, nil)

	svc := NewPricingService(plans, resolver, quietLogger())

	t.Run("base currency quote", func(t *testing.T) {
		quote, err := svc.Quote(ctx, "elite", "en")
		require.NoError(t, err)
		assert.Equal(t, entity.ZAR, quote.Currency)
		assert.Equal(t, 249.0, quote.ConvertedAmount)
		assert.Equal(t, 1.0, quote.ExchangeRate)
		assert.Contains(t, quote.Display, "249.00")
	})

	t.Run("rounded to minor units", func(t *testing.T) {
		resolver.ChangeCurrency(ctx, "USD")

		quote, err := svc.Quote(ctx, "elite", "en")
		require.NoError(t, err)
		assert.Equal(t, entity.USD, quote.Currency)
		// 249 * 0.0533 = 13.2717
		assert.Equal(t, 13.27, quote.ConvertedAmount)
		assert.Contains(t, quote.Display, "13.27")
	})

	t.Run("yen has no minor units", func(t *testing.T) {
		resolver.ChangeCurrency(ctx, "JPY")

		quotes, err := svc.ListQuotes(ctx, "en")
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		// 1000 * 8.4999 = 8499.9
		assert.Equal(t, 8500.0, quotes[1].ConvertedAmount)
		assert.Equal(t, "premium", quotes[1].Slug)
	})

	t.Run("repository errors", func(t *testing.T) {
		_, err := svc.Quote(ctx, "broken", "")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrPlanNotFound)
	})
}

func TestPricingServiceNotFound(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(nil, nil, nil, ResolverOptions{})
	defer resolver.Close()

	plans := new(mocks.MockPlanRepository)
	plans.On("FindBySlug", mock.Anything, "platinum").
		Return(nil, repository.ErrNotFound)

	svc := NewPricingService(plans, resolver, quietLogger())

	quote, err := svc.Quote(ctx, "platinum", "")
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSeedPlans(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(nil, nil, nil, ResolverOptions{})
	defer resolver.Close()

	defaults := DefaultPlans()

	plans := new(mocks.MockPlanRepository)
	plans.On("FindBySlug", mock.Anything, "elite").Return(defaults[0], nil)
	plans.On("FindBySlug", mock.Anything, "premium").Return(nil, repository.ErrNotFound)
	plans.On("Store", mock.Anything, defaults[1]).Return("generated-id", nil).Once()

	svc := NewPricingService(plans, resolver, quietLogger())
	require.NoError(t, svc.SeedPlans(ctx, defaults))

	plans.AssertExpectations(t)
	plans.AssertNotCalled(t, "Store", mock.Anything, defaults[0])
}
