package httpapi

import (
	"log/slog"
	"net/http"
)

// NewMux registers the health probes and, when metrics is non-nil, /metrics.
// Feature modules add their routes afterwards.
func NewMux(store Pinger, metrics http.Handler, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store, logger)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
