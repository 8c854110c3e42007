// Package handler exposes the currency service over HTTP
package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/damon-houk/masterclass-currency/internal/application/service"
	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

const recentAdvisories = 5

// AdvisorySource lists the advisories most recently raised, newest first
type AdvisorySource interface {
	Recent(n int) []entity.Advisory
}

// CurrencyHandler handles HTTP requests for the visitor's currency
type CurrencyHandler struct {
	resolver   *service.CurrencyResolver
	advisories AdvisorySource
	logger     logger.Logger
}

// NewCurrencyHandler creates a new currency handler. advisories may be nil.
func NewCurrencyHandler(resolver *service.CurrencyResolver, advisories AdvisorySource, log logger.Logger) *CurrencyHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CurrencyHandler{
		resolver:   resolver,
		advisories: advisories,
		logger:     log,
	}
}

// GetCurrency returns the current state
func (h *CurrencyHandler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.logger, http.StatusOK, h.stateResponse(h.resolver.State()))
}

// ChangeCurrency switches the selected currency. Unsupported codes are not an
// error: the resolver reverts to ZAR and raises an advisory.
func (h *CurrencyHandler) ChangeCurrency(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req ChangeCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	if strings.TrimSpace(req.Currency) == "" {
		sendErrorResponse(w, h.logger, "Missing currency",
			"The 'currency' field is required (e.g., USD, EUR, GBP)", http.StatusBadRequest, requestID)
		return
	}

	state := h.resolver.ChangeCurrency(r.Context(), req.Currency)

	h.logger.Info("Currency changed", map[string]interface{}{
		"request_id": requestID,
		"requested":  req.Currency,
		"selected":   string(state.SelectedCurrency),
		"source":     string(state.Source),
	})

	sendJSON(w, h.logger, http.StatusOK, h.stateResponse(state))
}

// Convert converts a ZAR amount into the selected currency
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	raw := r.URL.Query().Get("amount")
	if raw == "" {
		sendErrorResponse(w, h.logger, "Missing amount parameter",
			"The 'amount' query parameter is required", http.StatusBadRequest, requestID)
		return
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     raw,
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"Amount must be a finite number", http.StatusBadRequest, requestID)
		return
	}

	converted, state := h.resolver.ConvertWithState(amount)
	locale := r.URL.Query().Get("locale")

	sendJSON(w, h.logger, http.StatusOK, ConvertResponse{
		Amount:    amount,
		Currency:  string(state.SelectedCurrency),
		Rate:      state.Rate(),
		Converted: converted,
		Formatted: h.resolver.FormatAmount(converted, state.SelectedCurrency, locale),
	})
}

// Symbol returns the display symbol for any code, supported or not
func (h *CurrencyHandler) Symbol(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	sendJSON(w, h.logger, http.StatusOK, SymbolResponse{
		Code:   code,
		Symbol: h.resolver.Symbol(code),
	})
}

func (h *CurrencyHandler) stateResponse(state entity.CurrencyState) CurrencyStateResponse {
	var advisories []entity.Advisory
	if h.advisories != nil {
		advisories = h.advisories.Recent(recentAdvisories)
	}

	return toStateResponse(state, h.resolver.Symbol(string(state.SelectedCurrency)), advisories)
}

// RegisterRoutes registers the currency handler routes
func (h *CurrencyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/currency", h.GetCurrency).Methods(http.MethodGet)
	router.HandleFunc("/currency", h.ChangeCurrency).Methods(http.MethodPut)
	router.HandleFunc("/currency/convert", h.Convert).Methods(http.MethodGet)
	router.HandleFunc("/currency/symbols/{code}", h.Symbol).Methods(http.MethodGet)

	h.logger.Info("Currency routes registered", map[string]interface{}{
		"routes": []string{
			"GET /currency",
			"PUT /currency",
			"GET /currency/convert",
			"GET /currency/symbols/{code}",
		},
	})
}
