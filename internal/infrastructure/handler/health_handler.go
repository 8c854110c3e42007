package handler

import (
	"net/http"

	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
	"github.com/gorilla/mux"
)

// RegisterHealthRoute registers GET /health
func RegisterHealthRoute(router *mux.Router, log logger.Logger) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		sendJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}
