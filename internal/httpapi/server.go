package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"prodline-server/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler, logger *slog.Logger, observer RequestObserver) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestID(requestLogger(logger, observer, handler)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
