// Package mocks holds testify mocks for the domain ports
package mocks

import (
	"context"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockRateProvider mocks the RateProvider interface
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) FetchRates(ctx context.Context, base entity.CurrencyCode, symbols []entity.CurrencyCode) (entity.RateTable, error) {
	args := m.Called(ctx, base, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.RateTable), args.Error(1)
}

// MockGeoLocator mocks the GeoLocator interface
type MockGeoLocator struct {
	mock.Mock
}

func (m *MockGeoLocator) LookupCurrency(ctx context.Context) (entity.CurrencyCode, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.CurrencyCode), args.Error(1)
}

// MockStateRepository mocks the StateRepository interface
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) LoadCurrency(ctx context.Context) (entity.CurrencyCode, error) {
	args := m.Called(ctx)
	return args.Get(0).(entity.CurrencyCode), args.Error(1)
}

func (m *MockStateRepository) LoadRates(ctx context.Context) (*repository.PersistedRates, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PersistedRates), args.Error(1)
}

func (m *MockStateRepository) SaveCurrency(ctx context.Context, currency entity.CurrencyCode) error {
	args := m.Called(ctx, currency)
	return args.Error(0)
}

func (m *MockStateRepository) SaveRates(ctx context.Context, rates *repository.PersistedRates) error {
	args := m.Called(ctx, rates)
	return args.Error(0)
}

// MockPlanRepository mocks the PlanRepository interface
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Store(ctx context.Context, plan *entity.Plan) (string, error) {
	args := m.Called(ctx, plan)
	return args.String(0), args.Error(1)
}

func (m *MockPlanRepository) FindBySlug(ctx context.Context, slug string) (*entity.Plan, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Plan), args.Error(1)
}

func (m *MockPlanRepository) List(ctx context.Context) ([]*entity.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Plan), args.Error(1)
}

// MockNotifier mocks the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(advisory entity.Advisory) {
	m.Called(advisory)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	m.Called(key, value)
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}
