package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/masterclass-currency/internal/application/service"
	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/api"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/config"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/db"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/handler"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/metrics"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/middleware"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/notify"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, err.Error())
		level = logger.InfoLevel
	}

	log := logger.NewJSONLogger(os.Stdout, level)
	logger.SetDefaultLogger(log)

	for _, warning := range cfg.Warnings {
		log.Warn("Configuration warning", map[string]interface{}{"warning": warning})
	}

	log.Info("Starting masterclass currency service", map[string]interface{}{
		"port":     cfg.Port,
		"data_dir": cfg.DataDir,
		"locale":   cfg.ClientLocale,
	})

	badgerDB, err := db.OpenBadger(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to open database", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Error("Error closing BadgerDB", map[string]interface{}{"error": err.Error()})
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	rates := api.NewExchangeRateClient(cfg.RatesAPIURL, httpClient, cfg.RateCacheTTL, log)
	geo := api.NewGeolocationClient(cfg.GeoAPIURL, httpClient, log)
	advisories := notify.NewAdvisoryLog(0, log)

	resolver := service.NewCurrencyResolver(
		rates,
		geo,
		db.NewBadgerStateRepository(badgerDB),
		advisories,
		m,
		log,
		service.ResolverOptions{
			Locale:         cfg.ClientLocale,
			UseGeolocation: cfg.DetectWithGeolocation,
			RatesTTL:       cfg.RatesTTL,
		},
	)
	defer resolver.Close()

	unsubscribe := resolver.Subscribe(func(s entity.CurrencyState) {
		log.Debug("Currency state changed", map[string]interface{}{
			"currency":   string(s.SelectedCurrency),
			"rate":       s.Rate(),
			"is_loading": s.IsLoading,
			"source":     string(s.Source),
		})
	})
	defer unsubscribe()

	go resolver.Initialize(middleware.WithRequestID(context.Background(), "startup"))

	pricing := service.NewPricingService(db.NewBadgerPlanRepository(badgerDB), resolver, log)
	if err := pricing.SeedPlans(context.Background(), service.DefaultPlans()); err != nil {
		log.Fatal("Failed to seed plans", map[string]interface{}{"error": err.Error()})
	}

	router := mux.NewRouter()

	handler.RegisterHealthRoute(router, log)
	handler.NewCurrencyHandler(resolver, advisories, log).RegisterRoutes(router)
	handler.NewPlanHandler(pricing, log).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(log, cfg.CORSOrigins)(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server exited", nil)
}
