package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	domain "github.com/damon-houk/masterclass-currency/internal/domain/service"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/db"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func quietLogger() logger.Logger {
	return logger.NewJSONLogger(io.Discard, logger.ErrorLevel)
}

func single(code entity.CurrencyCode) []entity.CurrencyCode {
	return []entity.CurrencyCode{code}
}

func isKind(kind entity.AdvisoryKind) interface{} {
	return mock.MatchedBy(func(a entity.Advisory) bool { return a.Kind == kind })
}

func newTestResolver(provider *mocks.MockRateProvider, store repository.StateRepository, notifier *mocks.MockNotifier, opts ResolverOptions) *CurrencyResolver {
	if opts.Locale == "" {
		opts.Locale = "en-ZA"
	}

	var p domain.RateProvider
	if provider != nil {
		p = provider
	}

	var n domain.Notifier
	if notifier != nil {
		n = notifier
	}

	return NewCurrencyResolver(p, nil, store, n, nil, quietLogger(), opts)
}

func TestConvert(t *testing.T) {
	ctx := context.Background()
	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Return(entity.RateTable{entity.ZAR: 1, entity.USD: 0.0571}, nil).Once()

	r := newTestResolver(provider, nil, nil, ResolverOptions{})
	defer r.Close()

	t.Run("default state is identity", func(t *testing.T) {
		assert.Equal(t, entity.ZAR, r.State().SelectedCurrency)
		assert.Equal(t, 249.0, r.Convert(249))
	})

	t.Run("converted amount is amount times rate", func(t *testing.T) {
		state := r.ChangeCurrency(ctx, "usd")
		require.Equal(t, entity.USD, state.SelectedCurrency)
		assert.Equal(t, entity.SourceLive, state.Source)

		for _, amount := range []float64{249, 1000, 0.01, 123456.78} {
			assert.Equal(t, amount*0.0571, r.Convert(amount))
		}
		assert.Equal(t, 0.0, r.Convert(0))

		converted, snapshot := r.ConvertWithState(249)
		assert.Equal(t, 249*0.0571, converted)
		assert.Equal(t, entity.USD, snapshot.SelectedCurrency)
		assert.Equal(t, 0.0571, snapshot.Rate())
	})

	t.Run("base currency converts to itself", func(t *testing.T) {
		state := r.ChangeCurrency(ctx, "ZAR")
		assert.Equal(t, entity.ZAR, state.SelectedCurrency)
		assert.Equal(t, 1.0, state.Rates[entity.ZAR])
		for _, amount := range []float64{249, 1000, -3.5, 0} {
			assert.Equal(t, amount, r.Convert(amount))
		}
	})

	t.Run("cached rate is reused", func(t *testing.T) {
		state := r.ChangeCurrency(ctx, "USD")
		assert.Equal(t, entity.USD, state.SelectedCurrency)
		assert.Equal(t, entity.SourceCached, state.Source)
		provider.AssertNumberOfCalls(t, "FetchRates", 1)
	})
}

func TestFallbackRates(t *testing.T) {
	ctx := context.Background()
	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.EUR)).
		Return(nil, errors.New("API returned error status: 503")).Once()

	notifier := new(mocks.MockNotifier)
	notifier.On("Notify", isKind(entity.AdvisoryOfflineRates)).Once()

	r := newTestResolver(provider, nil, notifier, ResolverOptions{})
	defer r.Close()

	state := r.ChangeCurrency(ctx, "EUR")

	assert.Equal(t, entity.EUR, state.SelectedCurrency)
	assert.Equal(t, entity.FallbackRates[entity.EUR], state.Rates[entity.EUR])
	assert.Equal(t, entity.SourceFallback, state.Source)
	assert.False(t, state.IsLoading)
	assert.Equal(t, 100*entity.FallbackRates[entity.EUR], r.Convert(100))

	notifier.AssertNumberOfCalls(t, "Notify", 1)
	provider.AssertExpectations(t)
}

func TestLiveResponseMissingTarget(t *testing.T) {
	ctx := context.Background()
	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.JPY)).
		Return(entity.RateTable{entity.ZAR: 1}, nil).Once()

	notifier := new(mocks.MockNotifier)
	notifier.On("Notify", isKind(entity.AdvisoryOfflineRates)).Once()

	r := newTestResolver(provider, nil, notifier, ResolverOptions{})
	defer r.Close()

	state := r.ChangeCurrency(ctx, "JPY")
	assert.Equal(t, entity.JPY, state.SelectedCurrency)
	assert.Equal(t, 8.5, state.Rates[entity.JPY])
	notifier.AssertExpectations(t)
}

func TestSafeDegradation(t *testing.T) {
	ctx := context.Background()

	t.Run("no live and no fallback rate", func(t *testing.T) {
		provider := new(mocks.MockRateProvider)
		provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.GBP)).
			Return(nil, errors.New("failed to execute request: dial tcp: timeout")).Once()

		notifier := new(mocks.MockNotifier)
		notifier.On("Notify", isKind(entity.AdvisoryConversionUnavailable)).Once()

		fallback := entity.FallbackRates.Clone()
		delete(fallback, entity.GBP)

		r := newTestResolver(provider, nil, notifier, ResolverOptions{FallbackRates: fallback})
		defer r.Close()

		state := r.ChangeCurrency(ctx, "GBP")

		assert.Equal(t, entity.ZAR, state.SelectedCurrency)
		assert.Equal(t, 1.0, state.Rates[entity.ZAR])
		assert.Equal(t, entity.SourceBase, state.Source)
		assert.False(t, state.IsLoading)
		assert.Equal(t, 42.0, r.Convert(42))
		notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("unsupported code is a request for base", func(t *testing.T) {
		provider := new(mocks.MockRateProvider)
		notifier := new(mocks.MockNotifier)
		notifier.On("Notify", isKind(entity.AdvisoryConversionUnavailable)).Once()

		r := newTestResolver(provider, nil, notifier, ResolverOptions{})
		defer r.Close()

		state := r.ChangeCurrency(ctx, "XYZ")

		assert.Equal(t, entity.ZAR, state.SelectedCurrency)
		assert.Equal(t, 1.0, state.Rates[entity.ZAR])
		provider.AssertNotCalled(t, "FetchRates", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("panicking provider never leaves state loading", func(t *testing.T) {
		provider := new(mocks.MockRateProvider)
		provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.CAD)).
			Run(func(args mock.Arguments) { panic("boom") }).
			Return(nil, nil)

		r := newTestResolver(provider, nil, nil, ResolverOptions{})
		defer r.Close()

		assert.NotPanics(t, func() { r.ChangeCurrency(ctx, "CAD") })
		state := r.State()
		assert.False(t, state.IsLoading)
		assert.Equal(t, entity.ZAR, state.SelectedCurrency)
	})
}

func TestStaleResponseRejected(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(entity.RateTable{entity.USD: 0.06}, nil).Once()
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.EUR)).
		Return(entity.RateTable{entity.EUR: 0.05}, nil).Once()

	r := newTestResolver(provider, nil, nil, ResolverOptions{})
	defer r.Close()

	usdDone := make(chan entity.CurrencyState, 1)
	go func() {
		usdDone <- r.ChangeCurrency(ctx, "USD")
	}()

	<-started
	eur := r.ChangeCurrency(ctx, "EUR")
	assert.Equal(t, entity.EUR, eur.SelectedCurrency)

	// The USD response arrives after EUR has resolved
	close(release)
	<-usdDone

	final := r.State()
	assert.Equal(t, entity.EUR, final.SelectedCurrency)
	assert.Equal(t, 0.05, final.Rates[entity.EUR])
	assert.NotContains(t, final.Rates, entity.USD)
	assert.False(t, final.IsLoading)
	assert.Equal(t, 10*0.05, r.Convert(10))
	provider.AssertExpectations(t)
}

func TestDetectCurrency(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		geo    entity.CurrencyCode
		geoErr error
		locale string
		want   entity.CurrencyCode
	}{
		{"geolocation wins", entity.GBP, nil, "en-DE", entity.GBP},
		{"geolocation down, euro region", "", errors.New("timeout"), "en-DE", entity.EUR},
		{"geolocation down, unknown region", "", errors.New("timeout"), "en-ZZ", entity.USD},
		{"unsupported geolocated currency", "BRL", nil, "en-IN", entity.INR},
		{"no region in locale", "", errors.New("timeout"), "en", entity.ZAR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := new(mocks.MockGeoLocator)
			geo.On("LookupCurrency", mock.Anything).Return(tt.geo, tt.geoErr)

			r := NewCurrencyResolver(nil, geo, nil, nil, nil, quietLogger(), ResolverOptions{
				Locale:         tt.locale,
				UseGeolocation: true,
			})
			defer r.Close()

			assert.Equal(t, tt.want, r.DetectCurrency(ctx))
		})
	}

	t.Run("geolocation disabled", func(t *testing.T) {
		geo := new(mocks.MockGeoLocator)
		r := NewCurrencyResolver(nil, geo, nil, nil, nil, quietLogger(), ResolverOptions{Locale: "fr-FR"})
		defer r.Close()

		assert.Equal(t, entity.EUR, r.DetectCurrency(ctx))
		geo.AssertNotCalled(t, "LookupCurrency", mock.Anything)
	})
}

func TestCurrencyForLocale(t *testing.T) {
	tests := map[string]entity.CurrencyCode{
		"en-DE":      entity.EUR,
		"en-ZZ":      entity.USD,
		"en-US":      entity.USD,
		"en-GB":      entity.GBP,
		"en_AU":      entity.AUD,
		"fr-ca":      entity.CAD,
		"ja-JP":      entity.JPY,
		"hi-IN":      entity.INR,
		"af-ZA":      entity.ZAR,
		"pt-PT":      entity.EUR,
		"zh-Hant-TW": entity.USD,
		"de-Latn-DE": entity.EUR,
		"":           entity.ZAR,
	}

	for locale, want := range tests {
		assert.Equal(t, want, CurrencyForLocale(locale), locale)
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("first visit detects and fetches the full table", func(t *testing.T) {
		store := new(mocks.MockStateRepository)
		store.On("LoadCurrency", mock.Anything).Return(entity.CurrencyCode(""), repository.ErrNotFound)
		store.On("LoadRates", mock.Anything).Return(nil, repository.ErrNotFound)
		store.On("SaveCurrency", mock.Anything, entity.INR).Return(errors.New("quota exceeded"))
		store.On("SaveRates", mock.Anything, mock.Anything).Return(errors.New("quota exceeded"))

		geo := new(mocks.MockGeoLocator)
		geo.On("LookupCurrency", mock.Anything).Return(entity.INR, nil)

		provider := new(mocks.MockRateProvider)
		provider.On("FetchRates", mock.Anything, entity.ZAR, entity.SupportedCurrencies).
			Return(entity.RateTable{entity.ZAR: 1, entity.INR: 4.61, entity.USD: 0.057}, nil).Once()

		r := NewCurrencyResolver(provider, geo, store, nil, nil, quietLogger(), ResolverOptions{
			Locale:         "en-ZA",
			UseGeolocation: true,
			RatesTTL:       time.Hour,
		})
		defer r.Close()

		state := r.Initialize(ctx)

		assert.Equal(t, entity.INR, state.SelectedCurrency)
		assert.Equal(t, 4.61, state.Rates[entity.INR])
		assert.Equal(t, 0.057, state.Rates[entity.USD])
		assert.Equal(t, entity.SourceLive, state.Source)
		assert.False(t, state.IsLoading)
		store.AssertExpectations(t)
	})

	t.Run("expired persisted rates are refreshed", func(t *testing.T) {
		now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

		store := new(mocks.MockStateRepository)
		store.On("LoadCurrency", mock.Anything).Return(entity.AUD, nil)
		store.On("LoadRates", mock.Anything).Return(&repository.PersistedRates{
			Rates:     entity.RateTable{entity.AUD: 0.079},
			UpdatedAt: now.Add(-48 * time.Hour),
		}, nil)
		store.On("SaveCurrency", mock.Anything, entity.AUD).Return(nil)
		store.On("SaveRates", mock.Anything, mock.MatchedBy(func(p *repository.PersistedRates) bool {
			return p.Rates[entity.AUD] == 0.081 && p.UpdatedAt.Equal(now)
		})).Return(nil)

		provider := new(mocks.MockRateProvider)
		provider.On("FetchRates", mock.Anything, entity.ZAR, entity.SupportedCurrencies).
			Return(entity.RateTable{entity.AUD: 0.081}, nil).Once()

		r := NewCurrencyResolver(provider, nil, store, nil, nil, quietLogger(), ResolverOptions{
			Locale:   "en-ZA",
			RatesTTL: 24 * time.Hour,
			Now:      func() time.Time { return now },
		})
		defer r.Close()

		state := r.Initialize(ctx)
		assert.Equal(t, entity.AUD, state.SelectedCurrency)
		assert.Equal(t, 0.081, state.Rates[entity.AUD])
		store.AssertExpectations(t)
		provider.AssertExpectations(t)
	})

	t.Run("corrupt persisted rates are ignored", func(t *testing.T) {
		store := new(mocks.MockStateRepository)
		store.On("LoadCurrency", mock.Anything).Return(entity.CurrencyCode(""), errors.New("storage unavailable"))
		store.On("LoadRates", mock.Anything).Return(nil, errors.New("failed to unmarshal rates"))
		store.On("SaveCurrency", mock.Anything, entity.USD).Return(nil)
		store.On("SaveRates", mock.Anything, mock.Anything).Return(nil)

		provider := new(mocks.MockRateProvider)
		provider.On("FetchRates", mock.Anything, entity.ZAR, entity.SupportedCurrencies).
			Return(entity.RateTable{entity.USD: 0.056}, nil).Once()

		r := NewCurrencyResolver(provider, nil, store, nil, nil, quietLogger(), ResolverOptions{Locale: "en-US"})
		defer r.Close()

		state := r.Initialize(ctx)
		assert.Equal(t, entity.USD, state.SelectedCurrency)
		assert.Equal(t, entity.SourceLive, state.Source)
	})
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()

	badgerDB, err := db.OpenBadger("")
	require.NoError(t, err)
	defer badgerDB.Close()
	store := db.NewBadgerStateRepository(badgerDB)

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.GBP)).
		Return(entity.RateTable{entity.GBP: 0.043}, nil).Once()

	first := NewCurrencyResolver(provider, nil, store, nil, nil, quietLogger(), ResolverOptions{
		Locale:   "en-ZA",
		RatesTTL: time.Hour,
	})
	state := first.ChangeCurrency(ctx, "GBP")
	require.Equal(t, entity.GBP, state.SelectedCurrency)
	first.Close()

	// Simulated reload: a fresh resolver over the same storage
	reloadProvider := new(mocks.MockRateProvider)
	geo := new(mocks.MockGeoLocator)
	second := NewCurrencyResolver(reloadProvider, geo, store, nil, nil, quietLogger(), ResolverOptions{
		Locale:         "en-ZA",
		UseGeolocation: true,
		RatesTTL:       time.Hour,
	})
	defer second.Close()

	reloaded := second.Initialize(ctx)

	assert.Equal(t, entity.GBP, reloaded.SelectedCurrency)
	assert.Equal(t, 0.043, reloaded.Rates[entity.GBP])
	assert.Equal(t, entity.SourceCached, reloaded.Source)
	assert.False(t, reloaded.IsLoading)
	reloadProvider.AssertNotCalled(t, "FetchRates", mock.Anything, mock.Anything, mock.Anything)
	geo.AssertNotCalled(t, "LookupCurrency", mock.Anything)
}

func TestSubscribeObservesLoading(t *testing.T) {
	ctx := context.Background()
	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Return(entity.RateTable{entity.USD: 0.055}, nil)

	r := newTestResolver(provider, nil, nil, ResolverOptions{})
	defer r.Close()

	var mu sync.Mutex
	var seen []entity.CurrencyState
	unsubscribe := r.Subscribe(func(s entity.CurrencyState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	r.ChangeCurrency(ctx, "USD")

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[1].IsLoading)
	assert.Equal(t, entity.USD, seen[1].SelectedCurrency)
	mu.Unlock()

	unsubscribe()
	r.ChangeCurrency(ctx, "ZAR")

	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestCloseCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			close(started)
			<-ctx.Done()
		}).
		Return(nil, context.Canceled).Once()

	notifier := new(mocks.MockNotifier)
	notifier.On("Notify", mock.Anything).Maybe()

	r := newTestResolver(provider, nil, notifier, ResolverOptions{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Initialize(context.Background())
	}()

	<-started
	r.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Initialize did not return after Close")
	}

	assert.False(t, r.State().IsLoading)
	assert.Equal(t, entity.ZAR, r.State().SelectedCurrency)
	notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestSymbolNeverFails(t *testing.T) {
	r := newTestResolver(nil, nil, nil, ResolverOptions{})
	defer r.Close()

	assert.NotPanics(t, func() {
		assert.NotEmpty(t, r.Symbol("XXX"))
		assert.Equal(t, "not-a-code", r.Symbol("not-a-code"))
	})
	assert.Equal(t, "R", r.Symbol("ZAR"))
}

func TestStorageFailuresAreLoggedAndSwallowed(t *testing.T) {
	log := new(mocks.MockLogger)
	log.On("WithField", "component", "currency_resolver").Once()
	log.On("Debug", mock.Anything, mock.Anything).Maybe()
	log.On("Info", mock.Anything, mock.Anything).Maybe()
	log.On("Warn", "Failed to persist currency", mock.Anything).Once()
	log.On("Warn", "Failed to persist rates", mock.Anything).Once()

	store := new(mocks.MockStateRepository)
	store.On("SaveCurrency", mock.Anything, entity.USD).Return(errors.New("disk full"))
	store.On("SaveRates", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Return(entity.RateTable{entity.USD: 0.055}, nil)

	r := NewCurrencyResolver(provider, nil, store, nil, nil, log, ResolverOptions{Locale: "en-ZA"})
	defer r.Close()

	state := r.ChangeCurrency(context.Background(), "USD")

	assert.Equal(t, entity.USD, state.SelectedCurrency)
	assert.Equal(t, entity.SourceLive, state.Source)
	log.AssertExpectations(t)
	log.AssertNotCalled(t, "Error", mock.Anything, mock.Anything)
}

func TestSubscriberSeesLatestRequest(t *testing.T) {
	ctx := context.Background()

	provider := new(mocks.MockRateProvider)
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.USD)).
		Return(entity.RateTable{entity.USD: 0.055}, nil).Once()
	provider.On("FetchRates", mock.Anything, entity.ZAR, single(entity.EUR)).
		Return(entity.RateTable{entity.EUR: 0.05}, nil).Once()

	r := newTestResolver(provider, nil, nil, ResolverOptions{})
	defer r.Close()

	usdDelivering := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var last entity.CurrencyState

	r.Subscribe(func(s entity.CurrencyState) {
		if !s.IsLoading && s.SelectedCurrency == entity.USD {
			once.Do(func() { close(usdDelivering) })
			// A slow observer still holding the USD result when EUR resolves
			time.Sleep(100 * time.Millisecond)
		}

		mu.Lock()
		last = s
		mu.Unlock()
	})

	usdDone := make(chan struct{})
	go func() {
		defer close(usdDone)
		r.ChangeCurrency(ctx, "USD")
	}()

	<-usdDelivering
	eur := r.ChangeCurrency(ctx, "EUR")
	<-usdDone

	assert.Equal(t, entity.EUR, eur.SelectedCurrency)
	assert.Equal(t, entity.EUR, r.State().SelectedCurrency)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, entity.EUR, last.SelectedCurrency)
	assert.False(t, last.IsLoading)
}
