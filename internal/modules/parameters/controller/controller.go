package controller

import (
	"context"
	"log/slog"
	"net/http"

	"prodline-server/internal/modules/parameters/service"
	"prodline-server/internal/modules/parameters/types"
)

// ReadingService is the part of service.Service the HTTP layer calls.
type ReadingService interface {
	Options() service.Options
	Perturb(ctx context.Context) (types.Reading, error)
	LatestMeasured(ctx context.Context) (*types.Reading, error)
	LatestTarget(ctx context.Context) (*types.Reading, error)
	ParseHours(raw string) (int, error)
	History(ctx context.Context, hours int) ([]types.Reading, error)
	Series(ctx context.Context, hours int) (types.Series, error)
	Create(ctx context.Context, in service.CreateInput) (types.Reading, error)
	Deviation(ctx context.Context) (types.DeviationReport, error)
	Overview(ctx context.Context) (types.Overview, error)
}

type ParametersController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type parametersControllerImpl struct {
	service ReadingService
	logger  *slog.Logger
}

func NewParametersController(svc ReadingService, logger *slog.Logger) ParametersController {
	if logger == nil {
		logger = slog.Default()
	}
	return &parametersControllerImpl{service: svc, logger: logger}
}

func (c *parametersControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /parameters/latest/{$}", c.handleLatest)
	mux.HandleFunc("GET /parameters/target/{$}", c.handleTarget)
	mux.HandleFunc("GET /parameters/history/{$}", c.handleHistory)
	mux.HandleFunc("GET /parameters/stream/{$}", c.handleStream)
	mux.HandleFunc("GET /parameters/deviation/{$}", c.handleDeviation)
	mux.HandleFunc("POST /parameters/{$}", c.handleCreate)

	mux.HandleFunc("GET /api/parameters/{$}", c.handleSeries)
	mux.HandleFunc("POST /api/parameters/{$}", c.handleAPICreate)

	mux.HandleFunc("GET /{$}", c.handleRoot)
	mux.HandleFunc("GET /dashboard/{$}", c.handleDashboard)
	mux.HandleFunc("GET /parameters/{$}", c.handleHistoryPage)
	mux.HandleFunc("GET /partials/current", c.handleCurrentPartial)
	mux.HandleFunc("GET /partials/history", c.handleHistoryPartial)
}
