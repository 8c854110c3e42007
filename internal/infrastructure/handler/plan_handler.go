package handler

import (
	"errors"
	"net/http"

	"github.com/damon-houk/masterclass-currency/internal/application/service"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// PlanHandler serves plan prices in the visitor's currency
type PlanHandler struct {
	service *service.PricingService
	logger  logger.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(service *service.PricingService, log logger.Logger) *PlanHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PlanHandler{
		service: service,
		logger:  log,
	}
}

// ListPlans quotes every plan
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	quotes, err := h.service.ListQuotes(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		h.logger.Error("Failed to list plans", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"Plans could not be loaded. Please try again later.", http.StatusInternalServerError, requestID)
		return
	}

	resp := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, toQuoteResponse(q))
	}

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// QuotePlan quotes a single plan by slug
func (h *PlanHandler) QuotePlan(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	slug := mux.Vars(r)["slug"]

	quote, err := h.service.Quote(r.Context(), slug, r.URL.Query().Get("locale"))
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			h.logger.Warn("Plan not found", map[string]interface{}{
				"request_id": requestID,
				"slug":       slug,
			})
			sendErrorResponse(w, h.logger, "Plan not found",
				"The requested plan could not be found", http.StatusNotFound, requestID)
			return
		}

		h.logger.Error("Failed to quote plan", map[string]interface{}{
			"request_id": requestID,
			"slug":       slug,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Internal server error",
			"An unexpected error occurred. Please try again later.", http.StatusInternalServerError, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, toQuoteResponse(quote))
}

// RegisterRoutes registers the plan handler routes
func (h *PlanHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plans", h.ListPlans).Methods(http.MethodGet)
	router.HandleFunc("/plans/{slug}/quote", h.QuotePlan).Methods(http.MethodGet)

	h.logger.Info("Plan routes registered", map[string]interface{}{
		"routes": []string{
			"GET /plans",
			"GET /plans/{slug}/quote",
		},
	})
}
