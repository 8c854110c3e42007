// Package service holds the application services of the currency subsystem
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/domain/repository"
	domain "github.com/damon-houk/masterclass-currency/internal/domain/service"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/format"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/metrics"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/middleware"
)

// ResolverOptions tunes detection and cache freshness
type ResolverOptions struct {
	// Locale is the client locale used when geolocation gives no answer, e.g. "en-ZA"
	Locale string

	// UseGeolocation enables the IP lookup tier of detection
	UseGeolocation bool

	// RatesTTL is how long persisted rates are trusted without a fetch. Zero never expires them.
	RatesTTL time.Duration

	// FallbackRates replaces entity.FallbackRates when set
	FallbackRates entity.RateTable

	Now func() time.Time
}

// CurrencyResolver owns the visitor's currency state. Every failure degrades to
// the next tier: live rates, then fallback rates, then the base currency.
type CurrencyResolver struct {
	provider domain.RateProvider
	geo      domain.GeoLocator
	store    repository.StateRepository
	notifier domain.Notifier
	metrics  *metrics.Metrics
	logger   logger.Logger
	opts     ResolverOptions
	fallback entity.RateTable

	root      context.Context
	closeRoot context.CancelFunc

	mu          sync.RWMutex
	state       entity.CurrencyState
	token       uint64
	cancelFetch context.CancelFunc
	closed      bool
	subscribers map[int]func(entity.CurrencyState)
	nextSubID   int
	// version counts state writes; publish delivers versions in increasing order
	version uint64

	persistMu sync.Mutex

	publishMu sync.Mutex
	published uint64
}

// NewCurrencyResolver creates a resolver in the default base-currency state.
// geo, store, notifier and m may be nil.
func NewCurrencyResolver(
	provider domain.RateProvider,
	geo domain.GeoLocator,
	store repository.StateRepository,
	notifier domain.Notifier,
	m *metrics.Metrics,
	log logger.Logger,
	opts ResolverOptions,
) *CurrencyResolver {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	fallback := entity.FallbackRates
	if opts.FallbackRates != nil {
		fallback = opts.FallbackRates
	}

	root, cancel := context.WithCancel(context.Background())

	return &CurrencyResolver{
		provider:    provider,
		geo:         geo,
		store:       store,
		notifier:    notifier,
		metrics:     m,
		logger:      log.WithField("component", "currency_resolver"),
		opts:        opts,
		fallback:    fallback,
		root:        root,
		closeRoot:   cancel,
		state:       entity.DefaultCurrencyState(),
		subscribers: make(map[int]func(entity.CurrencyState)),
	}
}

// Initialize restores the persisted selection, or detects one, and resolves its rate
func (r *CurrencyResolver) Initialize(ctx context.Context) entity.CurrencyState {
	token, fetchCtx, done := r.begin(ctx)
	defer done()
	defer r.recoverResolution(ctx, token)

	requestID := middleware.GetRequestID(ctx)
	target, persisted := r.loadPersisted(fetchCtx)

	if target == "" {
		target = r.DetectCurrency(fetchCtx)
		r.logger.Info("Detected visitor currency", map[string]interface{}{
			"request_id": requestID,
			"currency":   string(target),
		})
	}

	if persisted != nil && r.isFresh(persisted.UpdatedAt) {
		if rate, ok := persisted.Rates.Rate(target); ok {
			r.logger.Info("Using persisted rates", map[string]interface{}{
				"request_id": requestID,
				"currency":   string(target),
				"rate":       rate,
				"updated_at": persisted.UpdatedAt.Format(time.RFC3339),
			})

			state, _ := r.finish(ctx, token, func(s *entity.CurrencyState) *entity.Advisory {
				s.Rates = s.Rates.Merge(persisted.Rates)
				s.SelectedCurrency = target
				s.Source = entity.SourceCached
				s.UpdatedAt = persisted.UpdatedAt
				return nil
			})
			return state
		}
	}

	live, err := r.fetch(fetchCtx, entity.SupportedCurrencies)

	return r.resolve(ctx, token, target, persisted, live, err)
}

// ChangeCurrency switches the selected currency. Codes outside SupportedCurrencies
// resolve to the base currency.
func (r *CurrencyResolver) ChangeCurrency(ctx context.Context, target string) entity.CurrencyState {
	token, fetchCtx, done := r.begin(ctx)
	defer done()
	defer r.recoverResolution(ctx, token)

	code := entity.ParseCurrencyCode(target)
	requestID := middleware.GetRequestID(ctx)

	r.logger.Info("Changing currency", map[string]interface{}{
		"request_id": requestID,
		"currency":   string(code),
	})

	if !code.IsSupported() {
		r.logger.Warn("Unsupported currency requested", map[string]interface{}{
			"request_id": requestID,
			"currency":   target,
		})
		state, _ := r.finish(ctx, token, revertToBase(code))
		return state
	}

	if code == entity.BaseCurrency {
		state, _ := r.finish(ctx, token, func(s *entity.CurrencyState) *entity.Advisory {
			s.SelectedCurrency = entity.BaseCurrency
			s.Source = entity.SourceBase
			return nil
		})
		return state
	}

	if _, ok := r.State().Rates.Rate(code); ok {
		state, _ := r.finish(ctx, token, func(s *entity.CurrencyState) *entity.Advisory {
			if _, stillCached := s.Rates.Rate(code); !stillCached {
				return r.applyFallback(s, code)
			}
			s.SelectedCurrency = code
			s.Source = entity.SourceCached
			return nil
		})
		return state
	}

	live, err := r.fetch(fetchCtx, []entity.CurrencyCode{code})

	return r.resolve(ctx, token, code, nil, live, err)
}

// DetectCurrency picks a currency from geolocation, then from the client locale.
// It never fails.
func (r *CurrencyResolver) DetectCurrency(ctx context.Context) entity.CurrencyCode {
	if r.opts.UseGeolocation && r.geo != nil {
		code, err := r.geo.LookupCurrency(ctx)
		switch {
		case err != nil:
			r.logger.Debug("Geolocation unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		case !code.IsSupported():
			r.logger.Debug("Geolocated currency not supported", map[string]interface{}{
				"currency": string(code),
			})
		default:
			return code
		}
	}

	return CurrencyForLocale(r.opts.Locale)
}

// Convert expresses a base-currency amount in the selected currency.
// A missing rate leaves the amount unchanged.
func (r *CurrencyResolver) Convert(amountBase float64) float64 {
	converted, _ := r.ConvertWithState(amountBase)
	return converted
}

// ConvertWithState is Convert plus the state snapshot the rate was read from
func (r *CurrencyResolver) ConvertWithState(amountBase float64) (float64, entity.CurrencyState) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return amountBase * r.state.Rate(), r.state.Copy()
}

// Symbol returns the display symbol for a currency code
func (r *CurrencyResolver) Symbol(code string) string {
	return format.Symbol(code)
}

// FormatAmount formats an amount that is already in currency
func (r *CurrencyResolver) FormatAmount(amount float64, currency entity.CurrencyCode, locale string) string {
	if locale == "" {
		locale = r.opts.Locale
	}
	return format.Amount(amount, string(currency), locale)
}

// State returns a snapshot of the current state
func (r *CurrencyResolver) State() entity.CurrencyState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.Copy()
}

// Subscribe registers fn to receive state transitions in order. A transition that is
// already older than one delivered is skipped. fn runs synchronously and must not call
// Initialize or ChangeCurrency. The returned func unsubscribes.
func (r *CurrencyResolver) Subscribe(fn func(entity.CurrencyState)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// Close cancels in-flight fetches and stops further state changes
func (r *CurrencyResolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.state.IsLoading = false
	r.mu.Unlock()

	r.closeRoot()
}

// begin claims a new request token, cancels the previous fetch and marks the state loading
func (r *CurrencyResolver) begin(ctx context.Context) (uint64, context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.root, cancel)

	r.mu.Lock()
	if r.cancelFetch != nil {
		r.cancelFetch()
	}
	r.token++
	token := r.token
	r.cancelFetch = cancel
	if !r.closed {
		r.state.IsLoading = true
	}
	r.version++
	version := r.version
	snapshot := r.state.Copy()
	r.mu.Unlock()

	r.publish(snapshot, version)

	return token, fetchCtx, func() {
		stop()
		cancel()

		r.mu.Lock()
		if r.token == token {
			r.cancelFetch = nil
		}
		r.mu.Unlock()
	}
}

// finish applies a resolution if token is still the latest request.
// Superseded results are discarded without persisting or notifying.
func (r *CurrencyResolver) finish(ctx context.Context, token uint64, apply func(*entity.CurrencyState) *entity.Advisory) (entity.CurrencyState, bool) {
	r.mu.Lock()
	if r.closed || token != r.token {
		snapshot := r.state.Copy()
		r.mu.Unlock()

		r.logger.Debug("Discarding superseded resolution", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"token":      token,
		})
		return snapshot, false
	}

	next := r.state.Copy()
	advisory := apply(&next)
	next.Rates = next.Rates.Clone()
	next.IsLoading = false
	r.state = next
	r.version++
	version := r.version
	snapshot := next.Copy()
	r.mu.Unlock()

	r.persist(ctx, token, snapshot)
	r.metrics.ObserveResolution(string(snapshot.Source))

	r.logger.Info("Currency resolved", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"currency":   string(snapshot.SelectedCurrency),
		"rate":       snapshot.Rate(),
		"source":     string(snapshot.Source),
	})

	if advisory != nil {
		r.raise(ctx, *advisory)
	}

	r.publish(snapshot, version)

	return snapshot, true
}

// resolve runs the live -> fallback -> base cascade for target
func (r *CurrencyResolver) resolve(ctx context.Context, token uint64, target entity.CurrencyCode, persisted *repository.PersistedRates, live entity.RateTable, fetchErr error) entity.CurrencyState {
	now := r.opts.Now()

	state, _ := r.finish(ctx, token, func(s *entity.CurrencyState) *entity.Advisory {
		if persisted != nil {
			s.Rates = s.Rates.Merge(persisted.Rates)
			s.UpdatedAt = persisted.UpdatedAt
		}

		if fetchErr == nil {
			s.Rates = s.Rates.Merge(live)
			s.UpdatedAt = now

			if _, ok := live.Rate(target); ok {
				s.SelectedCurrency = target
				s.Source = entity.SourceLive
				return nil
			}
		}

		if target == entity.BaseCurrency {
			s.SelectedCurrency = entity.BaseCurrency
			s.Source = entity.SourceBase
			return nil
		}

		return r.applyFallback(s, target)
	})

	return state
}

// applyFallback adopts the static rate for target, or reverts to base when there is none
func (r *CurrencyResolver) applyFallback(s *entity.CurrencyState, target entity.CurrencyCode) *entity.Advisory {
	rate, ok := r.fallback.Rate(target)
	if !ok || !target.IsSupported() {
		return revertToBase(target)(s)
	}

	s.Rates = s.Rates.Merge(entity.RateTable{target: rate})
	s.SelectedCurrency = target
	s.Source = entity.SourceFallback

	advisory := entity.NewOfflineRatesAdvisory(target)
	return &advisory
}

func revertToBase(requested entity.CurrencyCode) func(*entity.CurrencyState) *entity.Advisory {
	return func(s *entity.CurrencyState) *entity.Advisory {
		s.SelectedCurrency = entity.BaseCurrency
		s.Rates = s.Rates.Clone()
		s.Source = entity.SourceBase

		advisory := entity.NewConversionUnavailableAdvisory(requested)
		return &advisory
	}
}

// recoverResolution keeps a panicking collaborator from leaving the state loading
func (r *CurrencyResolver) recoverResolution(ctx context.Context, token uint64) {
	rec := recover()
	if rec == nil {
		return
	}

	r.logger.Error("Currency resolution panicked", map[string]interface{}{
		"request_id": middleware.GetRequestID(ctx),
		"panic":      fmt.Sprint(rec),
	})

	r.mu.RLock()
	requested := r.state.SelectedCurrency
	r.mu.RUnlock()

	r.finish(ctx, token, revertToBase(requested))
}

func (r *CurrencyResolver) fetch(ctx context.Context, symbols []entity.CurrencyCode) (entity.RateTable, error) {
	if r.provider == nil {
		return nil, errors.New("no rate provider configured")
	}

	rates, err := r.provider.FetchRates(ctx, entity.BaseCurrency, symbols)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
		r.metrics.ObserveFetch(outcome)

		r.logger.Warn("Live rate fetch failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"symbols":    len(symbols),
			"error":      err.Error(),
		})
		return nil, err
	}

	r.metrics.ObserveFetch("success")
	return rates, nil
}

func (r *CurrencyResolver) loadPersisted(ctx context.Context) (entity.CurrencyCode, *repository.PersistedRates) {
	if r.store == nil {
		return "", nil
	}

	code, err := r.store.LoadCurrency(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		r.logger.Warn("Failed to load persisted currency", map[string]interface{}{
			"error": err.Error(),
		})
		code = ""
	}

	persisted, err := r.store.LoadRates(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("Failed to load persisted rates", map[string]interface{}{
				"error": err.Error(),
			})
		}
		persisted = nil
	}

	return code, persisted
}

// persist writes the state unless a newer request has started since it was resolved
func (r *CurrencyResolver) persist(ctx context.Context, token uint64, s entity.CurrencyState) {
	if r.store == nil {
		return
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.RLock()
	current := r.token == token
	r.mu.RUnlock()
	if !current {
		return
	}

	if err := r.store.SaveCurrency(ctx, s.SelectedCurrency); err != nil {
		r.logger.Warn("Failed to persist currency", map[string]interface{}{
			"error": err.Error(),
		})
	}

	err := r.store.SaveRates(ctx, &repository.PersistedRates{
		Rates:     s.Rates,
		UpdatedAt: s.UpdatedAt,
	})
	if err != nil {
		r.logger.Warn("Failed to persist rates", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (r *CurrencyResolver) raise(ctx context.Context, advisory entity.Advisory) {
	r.metrics.ObserveAdvisory(string(advisory.Kind))

	r.logger.Warn(advisory.Title, map[string]interface{}{
		"request_id":  middleware.GetRequestID(ctx),
		"kind":        string(advisory.Kind),
		"currency":    string(advisory.Currency),
		"description": advisory.Description,
	})

	if r.notifier != nil {
		r.notifier.Notify(advisory)
	}
}

// publish delivers s unless a newer version has already been delivered
func (r *CurrencyResolver) publish(s entity.CurrencyState, version uint64) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	if version <= r.published {
		return
	}
	r.published = version

	r.mu.RLock()
	subscribers := make([]func(entity.CurrencyState), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subscribers = append(subscribers, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subscribers {
		fn(s.Copy())
	}
}

func (r *CurrencyResolver) isFresh(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	if r.opts.RatesTTL <= 0 {
		return true
	}
	return r.opts.Now().Sub(updatedAt) <= r.opts.RatesTTL
}
