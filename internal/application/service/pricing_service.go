package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/format"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// ErrPlanNotFound is returned when no plan has the requested slug
var ErrPlanNotFound = errors.New("plan not found")

// DefaultPlans are the masterclass offerings, priced in ZAR
func DefaultPlans() []*entity.Plan {
	return []*entity.Plan{
		{
			Slug:     "elite",
			Title:    "Individual Mastery",
			Subtitle: "Vision to Reality",
			PriceZAR: 249,
			Period:   "/masterclass",
			Features: []string{
				"3-hour growth hacking session with AI",
				"From ideation to building an MVP",
				"Luxury landing page workshop",
				"AI-powered business tactics",
			},
		},
		{
			Slug:     "premium",
			Title:    "One on One",
			Subtitle: "Ultimate Premium Experience",
			PriceZAR: 1000,
			Period:   "/empire",
			Features: []string{
				"Private 1-on-1 consultation",
				"Business architecture design",
				"Exclusive AI networking community",
				"From ideation to deployment",
			},
		},
	}
}

// PricingService quotes plan prices in the visitor's currency
type PricingService struct {
	plans    repository.PlanRepository
	resolver *CurrencyResolver
	logger   logger.Logger
}

// NewPricingService creates a new pricing service
func NewPricingService(plans repository.PlanRepository, resolver *CurrencyResolver, log logger.Logger) *PricingService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PricingService{
		plans:    plans,
		resolver: resolver,
		logger:   log.WithField("component", "pricing_service"),
	}
}

// SeedPlans stores any of plans whose slug is not already present
func (s *PricingService) SeedPlans(ctx context.Context, plans []*entity.Plan) error {
	for _, plan := range plans {
		_, err := s.plans.FindBySlug(ctx, plan.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check plan %s: %w", plan.Slug, err)
		}

		if _, err := s.plans.Store(ctx, plan); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plan.Slug, err)
		}

		s.logger.Info("Seeded plan", map[string]interface{}{
			"slug":      plan.Slug,
			"price_zar": plan.PriceZAR,
		})
	}

	return nil
}

// Quote prices a single plan in the currently selected currency
func (s *PricingService) Quote(ctx context.Context, slug, locale string) (*entity.Quote, error) {
	plan, err := s.plans.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, slug)
		}
		return nil, fmt.Errorf("failed to retrieve plan: %w", err)
	}

	quote := s.quote(plan, s.resolver.State(), locale)

	s.logger.Info("Plan quoted", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"slug":       slug,
		"currency":   string(quote.Currency),
		"amount":     quote.ConvertedAmount,
	})

	return quote, nil
}

// ListQuotes prices every plan against one snapshot of the currency state
func (s *PricingService) ListQuotes(ctx context.Context, locale string) ([]*entity.Quote, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	state := s.resolver.State()
	quotes := make([]*entity.Quote, 0, len(plans))
	for _, plan := range plans {
		quotes = append(quotes, s.quote(plan, state, locale))
	}

	return quotes, nil
}

func (s *PricingService) quote(plan *entity.Plan, state entity.CurrencyState, locale string) *entity.Quote {
	code := state.SelectedCurrency
	rate := state.Rate()

	converted := decimal.NewFromFloat(plan.PriceZAR).
		Mul(decimal.NewFromFloat(rate)).
		Round(int32(format.MinorDigits(string(code))))
	amount := converted.InexactFloat64()

	return &entity.Quote{
		PlanID:          plan.ID,
		Slug:            plan.Slug,
		Title:           plan.Title,
		Period:          plan.Period,
		PriceZAR:        plan.PriceZAR,
		Currency:        code,
		ExchangeRate:    rate,
		ConvertedAmount: amount,
		Display:         s.resolver.FormatAmount(amount, code, locale),
	}
}
