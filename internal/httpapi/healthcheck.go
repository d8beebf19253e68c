package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"prodline-server/internal/utils"
)

// Pinger checks that the series store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
	handleLiveness(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store  Pinger
	logger *slog.Logger
}

func NewHealthchecker(store Pinger, logger *slog.Logger) healthchecker {
	return &healthcheckerImpl{store: store, logger: logger}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLiveness answers without touching the store.
func (h *healthcheckerImpl) handleLiveness(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func registerHealthcheck(mux *http.ServeMux, store Pinger, logger *slog.Logger) {
	healthchecker := NewHealthchecker(store, logger)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
	mux.HandleFunc("GET /api/health/{$}", healthchecker.handleLiveness)
}
